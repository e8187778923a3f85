package engine

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/trace"
	"github.com/wippyai/fvm-ffi/types"
)

// MachineContext is the fixed environment a machine executes in.
type MachineContext struct {
	// StateRoot is the state tree the machine starts from. Flush advances it.
	StateRoot cid.Cid
	// Manifest selects actor code. cid.Undef means the manifest recorded in
	// the state tree is used.
	Manifest cid.Cid
	// Bundle holds blocks of a process-provided actor bundle. They are
	// readable by the engine but never written to the host store. May be nil.
	Bundle blockstore.Blockstore

	BaseFee           types.TokenAmount
	CirculatingSupply types.TokenAmount
	Epoch             types.ChainEpoch
	NetworkVersion    types.NetworkVersion
	Tracing           bool
}

// Externs answers chain-context questions the state tree cannot.
type Externs interface {
	ChainRandomness(ctx context.Context, round types.ChainEpoch) ([32]byte, error)
	BeaconRandomness(ctx context.Context, round types.ChainEpoch) ([32]byte, error)
	TipsetCID(ctx context.Context, epoch types.ChainEpoch) (cid.Cid, error)
}

// ExecStats are the performance counters of one applied message.
type ExecStats struct {
	WasmTime     time.Duration
	CallOverhead time.Duration
	Fuel         uint64
	CallCount    uint64
	ComputeGas   uint64
	NumSyscalls  uint64
	NumExterns   uint64
}

// ApplyRet is the engine's result for one message.
type ApplyRet struct {
	Receipt  types.Receipt
	Penalty  types.TokenAmount
	MinerTip types.TokenAmount
	// ExecTrace is the flat Call/Return stream; empty unless tracing.
	ExecTrace []trace.Event
	// FailureInfo explains a non-OK receipt; empty on success.
	FailureInfo string
	Stats       *ExecStats
}

// Engine executes messages against a state tree. Implementations are not
// safe for concurrent use; callers serialize access.
type Engine interface {
	// ExecuteMessage applies msg. Message-level failures are reported in the
	// receipt; an error means the engine could not produce a result at all.
	ExecuteMessage(ctx context.Context, msg *types.Message, kind types.ApplyKind, chainLen int) (*ApplyRet, error)

	// Flush commits pending state and returns the new state root.
	Flush(ctx context.Context) (cid.Cid, error)

	// Context returns the machine context, with StateRoot as of the last flush.
	Context() MachineContext

	// ActorCode returns the code CID of the actor at addr.
	ActorCode(addr types.Address) (cid.Cid, bool)

	Close(ctx context.Context) error
}

// Factory builds engines.
type Factory interface {
	NewEngine(ctx context.Context, mctx MachineContext, bs blockstore.Blockstore, externs Externs) (Engine, error)
}
