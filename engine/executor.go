package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/exitcode"
	"github.com/wippyai/fvm-ffi/manifest"
	"github.com/wippyai/fvm-ffi/trace"
	"github.com/wippyai/fvm-ffi/types"
)

// Gas schedule of the reference engine.
const (
	GasMessageBase  int64 = 1000
	GasPerChainByte int64 = 10
	GasPerCall      int64 = 500
	GasPerParamByte int64 = 2
	GasWasmInvoke   int64 = 2000
	GasSyscall      int64 = 100
)

// DefaultMaxCallDepth bounds nested sends within one message.
const DefaultMaxCallDepth = 1024

// Executor is the reference Engine. It keeps the actor table in memory,
// buffers every block it writes and hands them to the host store on Flush.
type Executor struct {
	rt       *Runtime
	mctx     MachineContext
	buf      *blockstore.Buffered
	store    blockstore.Blockstore
	externs  Externs
	manifest *manifest.Manifest
	state    *stateTree
	code     map[cid.Cid][]byte
	maxDepth int
	closed   bool
}

var _ Engine = (*Executor)(nil)

// NewExecutor loads the state tree at mctx.StateRoot from bs.
func NewExecutor(ctx context.Context, rt *Runtime, mctx MachineContext, bs blockstore.Blockstore, externs Externs) (*Executor, error) {
	if rt == nil {
		return nil, errors.Construction("no runtime", nil)
	}
	if bs == nil {
		return nil, errors.Construction("no blockstore", nil)
	}

	buf := blockstore.NewBuffered(bs)
	var store blockstore.Blockstore = buf
	if mctx.Bundle != nil {
		store = blockstore.NewOverlay(buf, mctx.Bundle)
	}

	st, err := loadState(store, mctx.StateRoot)
	if err != nil {
		return nil, err
	}

	mc := mctx.Manifest
	if !mc.Defined() {
		mc = st.manifest
	}
	if !mc.Defined() {
		return nil, errors.Construction("state tree records no manifest", nil)
	}
	m, err := manifest.Load(store, mc)
	if err != nil {
		return nil, err
	}

	Logger().Debug("executor created",
		zap.Stringer("state_root", mctx.StateRoot),
		zap.Stringer("manifest", mc),
		zap.Stringer("network_version", mctx.NetworkVersion),
		zap.Int("actors", len(st.actors)))

	return &Executor{
		rt:       rt,
		mctx:     mctx,
		buf:      buf,
		store:    store,
		externs:  externs,
		manifest: m,
		state:    st,
		code:     make(map[cid.Cid][]byte),
		maxDepth: DefaultMaxCallDepth,
	}, nil
}

// ExecuteMessage applies msg. Explicit messages are validated against the
// sender first and pay for gas; implicit messages skip both.
func (e *Executor) ExecuteMessage(ctx context.Context, msg *types.Message, kind types.ApplyKind, chainLen int) (*ApplyRet, error) {
	if e.closed {
		return nil, errors.Execution("executor is closed", nil)
	}
	if msg == nil {
		return nil, errors.Execution("nil message", nil)
	}

	before := e.state.snapshot()
	defer func() {
		if r := recover(); r != nil {
			e.state.restore(before)
			panic(r)
		}
	}()

	stats := &ExecStats{}
	inv := &invocation{
		e:        e,
		stats:    stats,
		tracing:  e.mctx.Tracing,
		gasLimit: math.MaxInt64,
	}

	var from types.ActorID
	if kind == types.ApplyExplicit {
		id, rejected, err := e.preflight(msg, chainLen, inv)
		if err != nil {
			e.state.restore(before)
			return nil, err
		}
		if rejected != nil {
			rejected.Stats = stats
			return rejected, nil
		}
		from = id
	} else {
		id, err := msg.From.ID()
		if err != nil {
			return nil, errors.Execution("implicit message sender must be an id address", err)
		}
		from = id
	}

	ret, code := inv.call(ctx, from, msg.To, msg.Method, msg.Value, msg.Params)
	if inv.fatal != nil {
		e.state.restore(before)
		return nil, errors.Execution("apply message", inv.fatal)
	}
	if !code.IsSuccess() {
		ret = nil
	}

	out := &ApplyRet{
		Receipt: types.Receipt{
			ExitCode: code,
			Return:   ret,
			GasUsed:  inv.gasUsed,
		},
		Penalty:   types.Zero,
		MinerTip:  types.Zero,
		ExecTrace: inv.events,
		Stats:     stats,
	}
	if kind == types.ApplyExplicit {
		penalty, tip, err := e.settle(from, msg, inv.gasUsed)
		if err != nil {
			e.state.restore(before)
			return nil, err
		}
		out.Penalty, out.MinerTip = penalty, tip
	}
	if !code.IsSuccess() {
		out.FailureInfo = code.String()
		if inv.failure != "" {
			out.FailureInfo += ": " + inv.failure
		}
	}

	debugf("applied %s message to %s method %d: exit %s gas %d", kind, msg.To, msg.Method, code, inv.gasUsed)
	return out, nil
}

// preflight validates an explicit message against its sender and charges
// inclusion gas. A non-nil ApplyRet means the message was rejected before
// execution.
func (e *Executor) preflight(msg *types.Message, chainLen int, inv *invocation) (types.ActorID, *ApplyRet, error) {
	inclusion := GasMessageBase + GasPerChainByte*int64(chainLen)
	if inclusion > msg.GasLimit {
		return 0, e.reject(exitcode.SysOutOfGas, inclusion,
			fmt.Sprintf("out of gas: inclusion needs %d, limit %d", inclusion, msg.GasLimit)), nil
	}

	from, sender, ok := e.state.lookup(msg.From)
	if !ok {
		return 0, e.reject(exitcode.SysSenderInvalid, inclusion,
			fmt.Sprintf("sender %s not found", msg.From)), nil
	}
	if account, _ := e.manifest.CodeFor(manifest.ActorAccount); !sender.Code.Equals(account) {
		return 0, e.reject(exitcode.SysSenderInvalid, inclusion,
			fmt.Sprintf("sender %s is not an account actor", msg.From)), nil
	}
	if msg.Nonce != sender.Nonce {
		return 0, e.reject(exitcode.SysSenderStateInvalid, inclusion,
			fmt.Sprintf("actor nonce invalid: msg:%d != state:%d", msg.Nonce, sender.Nonce)), nil
	}

	maxFee, ok := msg.GasFeeCap.MulUint64(uint64(msg.GasLimit))
	if ok {
		maxFee, ok = maxFee.Add(msg.Value)
	}
	if !ok || sender.Balance.Cmp(maxFee) < 0 {
		return 0, e.reject(exitcode.SysSenderStateInvalid, inclusion,
			fmt.Sprintf("actor balance less than needed: %s < %s", sender.Balance, maxFee)), nil
	}

	sender.Nonce++
	e.state.set(from, sender)
	inv.gasLimit = msg.GasLimit
	inv.gasUsed = inclusion
	return from, nil, nil
}

func (e *Executor) reject(code exitcode.ExitCode, inclusion int64, reason string) *ApplyRet {
	penalty, ok := e.mctx.BaseFee.MulUint64(uint64(inclusion))
	if !ok {
		penalty = types.Zero
	}
	return &ApplyRet{
		Receipt:     types.Receipt{ExitCode: code},
		Penalty:     penalty,
		MinerTip:    types.Zero,
		FailureInfo: code.String() + ": " + reason,
	}
}

// settle charges the sender for gas and returns the penalty and miner tip.
func (e *Executor) settle(from types.ActorID, msg *types.Message, gasUsed int64) (types.TokenAmount, types.TokenAmount, error) {
	baseFee := e.mctx.BaseFee
	feeCap := msg.GasFeeCap

	baseToPay := minToken(baseFee, feeCap)
	burn, ok1 := baseToPay.MulUint64(uint64(gasUsed))
	headroom, _ := feeCap.Sub(baseToPay)
	tip, ok2 := minToken(msg.GasPremium, headroom).MulUint64(uint64(msg.GasLimit))
	total, ok3 := burn.Add(tip)
	if !ok1 || !ok2 || !ok3 {
		return types.Zero, types.Zero, errors.Execution("gas charge overflows", nil)
	}

	penalty := types.Zero
	if baseFee.Cmp(feeCap) > 0 {
		diff, _ := baseFee.Sub(feeCap)
		p, ok := diff.MulUint64(uint64(gasUsed))
		if !ok {
			return types.Zero, types.Zero, errors.Execution("gas penalty overflows", nil)
		}
		penalty = p
	}

	sender, ok := e.state.get(from)
	if !ok {
		return types.Zero, types.Zero, errors.Execution("sender vanished during execution", nil)
	}
	balance, ok := sender.Balance.Sub(total)
	if !ok {
		return types.Zero, types.Zero, errors.Execution("sender cannot cover gas", nil)
	}
	sender.Balance = balance
	e.state.set(from, sender)
	return penalty, tip, nil
}

func minToken(a, b types.TokenAmount) types.TokenAmount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Flush writes the state tree and commits it to the host store.
func (e *Executor) Flush(ctx context.Context) (cid.Cid, error) {
	if e.closed {
		return cid.Undef, errors.Flush(errors.InvalidInput(errors.PhaseFlush, "executor is closed"))
	}
	root, err := e.state.store(e.store)
	if err != nil {
		return cid.Undef, errors.Flush(err)
	}
	n, err := e.buf.Commit(root)
	if err != nil {
		return cid.Undef, err
	}
	e.mctx.StateRoot = root
	Logger().Debug("state flushed", zap.Stringer("root", root), zap.Int("blocks", n))
	return root, nil
}

// Context returns the machine context with the current state root.
func (e *Executor) Context() MachineContext {
	return e.mctx
}

// ActorCode returns the code CID of the actor at addr.
func (e *Executor) ActorCode(addr types.Address) (cid.Cid, bool) {
	_, a, ok := e.state.lookup(addr)
	if !ok {
		return cid.Undef, false
	}
	return a.Code.Cid, true
}

// Close discards unflushed state.
func (e *Executor) Close(ctx context.Context) error {
	e.closed = true
	return nil
}

func (e *Executor) loadCode(c cid.Cid) ([]byte, error) {
	if data, ok := e.code[c]; ok {
		return data, nil
	}
	data, err := e.store.Get(c)
	if err != nil {
		return nil, errors.Execution("load actor code "+c.String(), err)
	}
	e.code[c] = data
	return data, nil
}

// ExecutorFactory builds Executors on a runtime. A nil Runtime selects the
// shared one.
type ExecutorFactory struct {
	Runtime *Runtime
}

// NewEngine implements Factory.
func (f ExecutorFactory) NewEngine(ctx context.Context, mctx MachineContext, bs blockstore.Blockstore, externs Externs) (Engine, error) {
	rt := f.Runtime
	if rt == nil {
		var err error
		if rt, err = Shared(); err != nil {
			return nil, err
		}
	}
	e, err := NewExecutor(ctx, rt, mctx, bs, externs)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// invocation is the per-message execution state shared by every frame of
// the call tree.
type invocation struct {
	e        *Executor
	stats    *ExecStats
	events   []trace.Event
	failure  string
	fatal    error
	gasLimit int64
	gasUsed  int64
	depth    int
	tracing  bool
	outOfGas bool
}

func (inv *invocation) emit(ev trace.Event) {
	if inv.tracing {
		inv.events = append(inv.events, ev)
	}
}

func (inv *invocation) fail(reason string) {
	inv.failure = reason
}

// charge consumes gas. Once the limit is hit every later charge fails.
func (inv *invocation) charge(gas int64) bool {
	if inv.outOfGas {
		return false
	}
	if gas > inv.gasLimit-inv.gasUsed {
		inv.gasUsed = inv.gasLimit
		inv.outOfGas = true
		inv.fail("out of gas")
		return false
	}
	inv.gasUsed += gas
	inv.stats.ComputeGas += uint64(gas)
	return true
}
