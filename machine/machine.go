// Package machine owns one engine instance for its whole life and serializes
// every operation on it.
//
// A Machine moves through
//
//	Created -> Executing -> Idle -> Flushed -> Destroyed
//
// with Executing held only while a message is applied. Execute and Flush
// may be repeated in any order until Close. Calls on a closed machine fail
// with ErrDestroyed; callers must not use a machine concurrently with or
// after closing it.
package machine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/engine"
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/exitcode"
	"github.com/wippyai/fvm-ffi/manifest"
	"github.com/wippyai/fvm-ffi/timing"
	"github.com/wippyai/fvm-ffi/trace"
	"github.com/wippyai/fvm-ffi/types"
)

// RegisteredVersion is the machine protocol version requested by the host.
type RegisteredVersion uint64

// RegisteredV1 is the only supported version.
const RegisteredV1 RegisteredVersion = 0

// State is a lifecycle state.
type State uint32

const (
	StateCreated State = iota
	StateExecuting
	StateIdle
	StateFlushed
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateExecuting:
		return "Executing"
	case StateIdle:
		return "Idle"
	case StateFlushed:
		return "Flushed"
	case StateDestroyed:
		return "Destroyed"
	}
	return fmt.Sprintf("unknown(%d)", uint32(s))
}

// ErrDestroyed is returned by operations on a closed machine.
var ErrDestroyed = &errors.Error{
	Phase:  errors.PhaseBoundary,
	Kind:   errors.KindInvalidHandle,
	Detail: "machine destroyed",
}

// Config carries the machine creation arguments.
type Config struct {
	BaseFee           types.TokenAmount
	CirculatingSupply types.TokenAmount
	Blockstore        blockstore.Blockstore
	Externs           engine.Externs
	// Resolver picks actor code. Nil uses manifest.DefaultResolver.
	Resolver *manifest.Resolver
	// Timing receives apply and flush records. May be nil.
	Timing *timing.Recorder
	// StateRoot holds CID bytes; it must not be empty.
	StateRoot []byte
	// Manifest holds CID bytes. Empty selects actor code by network
	// version.
	Manifest       []byte
	Version        RegisteredVersion
	Epoch          types.ChainEpoch
	NetworkVersion uint64
	Tracing        bool
}

// ApplyResult is the outcome of one Execute.
type ApplyResult struct {
	Return []byte
	// Trace is nil when tracing is off or the event stream was malformed.
	Trace       *trace.CallFrame
	TraceBytes  []byte
	FailureInfo string
	Penalty     types.TokenAmount
	MinerTip    types.TokenAmount
	GasUsed     int64
	ExitCode    exitcode.ExitCode
}

// Machine wraps one engine.
type Machine struct {
	engine engine.Engine
	timing *timing.Recorder
	res    manifest.Resolution
	epoch  types.ChainEpoch
	state  atomic.Uint32
	mu     sync.Mutex
}

// New validates cfg, resolves actor code and creates the engine. Every
// failure is a construction error.
func New(ctx context.Context, cfg Config, factory engine.Factory) (*Machine, error) {
	if cfg.Version != RegisteredV1 {
		return nil, errors.New(errors.PhaseCreate, errors.KindConstruction).
			Value(cfg.Version).
			Detail("unsupported registered version %d", uint64(cfg.Version)).
			Build()
	}
	nv, err := types.ParseNetworkVersion(cfg.NetworkVersion)
	if err != nil {
		return nil, err
	}
	if len(cfg.StateRoot) == 0 {
		return nil, errors.Construction("invalid state root: empty", nil)
	}
	root, err := cid.Cast(cfg.StateRoot)
	if err != nil {
		return nil, errors.Construction("invalid state root", err)
	}
	manifestCID, err := types.ParseCID(cfg.Manifest)
	if err != nil {
		return nil, errors.Construction("invalid manifest", err)
	}
	if cfg.Blockstore == nil {
		return nil, errors.Construction("no blockstore", nil)
	}

	resolver := manifest.DefaultResolver()
	if cfg.Resolver != nil {
		resolver = *cfg.Resolver
	}
	res, err := resolver.Resolve(cfg.Blockstore, manifestCID, nv)
	if err != nil {
		return nil, errors.Construction("couldn't load builtin actors", err)
	}

	if factory == nil {
		factory = engine.ExecutorFactory{}
	}
	eng, err := factory.NewEngine(ctx, engine.MachineContext{
		StateRoot:         root,
		Manifest:          res.Manifest,
		Bundle:            res.Blocks,
		BaseFee:           cfg.BaseFee,
		CirculatingSupply: cfg.CirculatingSupply,
		Epoch:             cfg.Epoch,
		NetworkVersion:    nv,
		Tracing:           cfg.Tracing,
	}, cfg.Blockstore, cfg.Externs)
	if err != nil {
		return nil, errors.Construction("failed to create machine", err)
	}

	Logger().Debug("machine created",
		zap.Stringer("state_root", root),
		zap.Stringer("network_version", nv),
		zap.Stringer("actors", res.Source),
		zap.String("bundle", res.Bundle),
		zap.Int64("epoch", int64(cfg.Epoch)),
		zap.Bool("tracing", cfg.Tracing))

	m := &Machine{
		engine: eng,
		timing: cfg.Timing,
		res:    res,
		epoch:  cfg.Epoch,
	}
	m.state.Store(uint32(StateCreated))
	return m, nil
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	return State(m.state.Load())
}

// Actors reports where the machine's actor code came from.
func (m *Machine) Actors() manifest.Resolution {
	return m.res
}

// Execute decodes and applies one message. Message-level failures are in
// the result; errors are decode or execution errors. A trace that cannot
// be reconstructed is dropped with a warning and does not fail the call.
func (m *Machine) Execute(ctx context.Context, msgBytes []byte, chainLen uint64, kind types.ApplyKind) (*ApplyResult, error) {
	start := time.Now()

	msg, err := types.DecodeMessage(msgBytes)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.State()
	if prev == StateDestroyed {
		return nil, ErrDestroyed
	}
	m.state.Store(uint32(StateExecuting))
	next := prev
	defer func() { m.state.Store(uint32(next)) }()

	ret, err := m.engine.ExecuteMessage(ctx, msg, kind, int(chainLen))
	if err != nil {
		return nil, errors.Execution("apply message", err)
	}
	for _, amount := range []types.TokenAmount{ret.Penalty, ret.MinerTip} {
		if _, _, err := amount.HiLo(); err != nil {
			return nil, errors.Execution("fee amount", err)
		}
	}

	if kind == types.ApplyExplicit && ret.Stats != nil {
		code, _ := m.engine.ActorCode(msg.To)
		m.timing.Apply(timing.ApplyRecord{
			Stats:   *ret.Stats,
			Code:    code,
			Time:    time.Since(start),
			GasUsed: ret.Receipt.GasUsed,
			Epoch:   m.epoch,
			Method:  msg.Method,
		})
	}

	result := &ApplyResult{
		Return:      ret.Receipt.Return,
		FailureInfo: ret.FailureInfo,
		Penalty:     ret.Penalty,
		MinerTip:    ret.MinerTip,
		GasUsed:     ret.Receipt.GasUsed,
		ExitCode:    ret.Receipt.ExitCode,
	}
	if len(ret.ExecTrace) > 0 {
		result.Trace, result.TraceBytes = buildTrace(ret.ExecTrace)
	}

	next = StateIdle
	return result, nil
}

func buildTrace(events []trace.Event) (*trace.CallFrame, []byte) {
	root, err := trace.Reconstruct(events)
	if err != nil {
		Logger().Warn("dropping execution trace", zap.Int("events", len(events)), zap.Error(err))
		return nil, nil
	}
	data, err := trace.Encode(root)
	if err != nil {
		Logger().Warn("dropping execution trace", zap.Error(err))
		return nil, nil
	}
	return root, data
}

// Flush commits the engine state and returns the new state root.
func (m *Machine) Flush(ctx context.Context) (cid.Cid, error) {
	start := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == StateDestroyed {
		return cid.Undef, ErrDestroyed
	}

	root, err := m.engine.Flush(ctx)
	m.timing.Flush(m.epoch, time.Since(start))
	if err != nil {
		if errors.KindOf(err) != errors.KindFlush {
			err = errors.Flush(err)
		}
		return cid.Undef, err
	}
	m.state.Store(uint32(StateFlushed))
	Logger().Debug("machine flushed", zap.Stringer("state_root", root))
	return root, nil
}

// Close releases the engine. Unflushed state is discarded.
func (m *Machine) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == StateDestroyed {
		return ErrDestroyed
	}
	m.state.Store(uint32(StateDestroyed))
	return m.engine.Close(ctx)
}
