// Package ffi is the call boundary between a host process and the machines
// it drives. Every entry point takes primitive arguments and returns a
// response record; nothing crosses the boundary as a Go error or panic.
//
// Machines, host blockstores and host externs are referred to by opaque
// uint64 handles. A handle that is stale, released, or of the wrong kind is
// rejected with a status instead of being dereferenced.
//
// Response records are owned by the caller until passed to the matching
// Destroy function, which must be called exactly once.
package ffi

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/engine"
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/machine"
	"github.com/wippyai/fvm-ffi/manifest"
	"github.com/wippyai/fvm-ffi/resource"
	"github.com/wippyai/fvm-ffi/response"
	"github.com/wippyai/fvm-ffi/timing"
	"github.com/wippyai/fvm-ffi/types"
)

const (
	typeMachine resource.TypeID = iota + 1
	typeBlockstore
	typeExterns
)

// Options configures a Boundary.
type Options struct {
	// Factory builds machine engines. Nil uses the reference engine.
	Factory  engine.Factory
	Resolver *manifest.Resolver
	Timing   *timing.Recorder
	// CacheSize wraps each registered blockstore in a read cache holding
	// that many blocks. Zero disables caching.
	CacheSize int
}

// Boundary owns the handle tables behind the flat API.
type Boundary struct {
	opts      Options
	table     *resource.UnifiedTable
	machines  *resource.Typed[*machine.Machine]
	stores    *resource.Typed[blockstore.Blockstore]
	externs   *resource.Typed[engine.Externs]
	responses *response.Allocator
}

// New creates a Boundary with empty tables.
func New(opts Options) *Boundary {
	t := resource.NewTable()
	return &Boundary{
		opts:      opts,
		table:     t,
		machines:  resource.NewTyped[*machine.Machine](t, typeMachine),
		stores:    resource.NewTyped[blockstore.Blockstore](t, typeBlockstore),
		externs:   resource.NewTyped[engine.Externs](t, typeExterns),
		responses: response.NewAllocator(),
	}
}

// catchPanic must be deferred directly. It converts a panic into a fault
// and hands it to fail, which sets the named result.
func catchPanic(name string, fail func(err error)) {
	r := recover()
	if r == nil {
		return
	}
	err := errors.Fault(errors.PhaseBoundary, r)
	Logger().Error("panic at boundary",
		zap.String("call", name),
		zap.Error(err),
		zap.Stack("stack"))
	fail(err)
}

func logCall(name string) func() {
	Logger().Debug(name + ": start")
	return func() { Logger().Debug(name + ": finish") }
}

// RegisterBlockstore makes bs available to CreateMachine under the
// returned handle.
func (b *Boundary) RegisterBlockstore(bs blockstore.Blockstore) (uint64, error) {
	if bs == nil {
		return 0, errors.InvalidInput(errors.PhaseBoundary, "nil blockstore")
	}
	if b.opts.CacheSize > 0 {
		cached, err := blockstore.NewCached(bs, b.opts.CacheSize)
		if err != nil {
			return 0, err
		}
		bs = cached
	}
	return uint64(b.stores.Insert(bs)), nil
}

// ReleaseBlockstore forgets a blockstore handle. Machines created from it
// keep using it until dropped.
func (b *Boundary) ReleaseBlockstore(id uint64) error {
	if _, ok := b.stores.Remove(resource.Handle(id)); !ok {
		return errors.InvalidHandle(errors.PhaseBoundary, id)
	}
	return nil
}

// RegisterExterns makes ext available to CreateMachine under the returned
// handle.
func (b *Boundary) RegisterExterns(ext engine.Externs) (uint64, error) {
	if ext == nil {
		return 0, errors.InvalidInput(errors.PhaseBoundary, "nil externs")
	}
	return uint64(b.externs.Insert(ext)), nil
}

// ReleaseExterns forgets an externs handle.
func (b *Boundary) ReleaseExterns(id uint64) error {
	if _, ok := b.externs.Remove(resource.Handle(id)); !ok {
		return errors.InvalidHandle(errors.PhaseBoundary, id)
	}
	return nil
}

// CreateMachine builds a machine over the registered blockstore and
// externs. Token amounts arrive as 128-bit hi/lo halves. An externs handle
// of zero means none.
func (b *Boundary) CreateMachine(
	version, epoch, baseFeeHi, baseFeeLo, circSupplyHi, circSupplyLo, networkVersion uint64,
	stateRoot, manifestCID []byte,
	tracing bool,
	blockstoreID, externsID uint64,
) (resp *response.CreateResponse) {
	defer logCall("create machine")()
	defer catchPanic("create machine", func(err error) {
		resp = b.responses.CreateError(response.StatusUnclassified, err.Error())
	})

	bs, ok := b.stores.Get(resource.Handle(blockstoreID))
	if !ok {
		err := errors.Construction("blockstore", errors.InvalidHandle(errors.PhaseBoundary, blockstoreID))
		return b.responses.CreateError(response.StatusOf(err), err.Error())
	}
	var ext engine.Externs
	if externsID != 0 {
		if ext, ok = b.externs.Get(resource.Handle(externsID)); !ok {
			err := errors.Construction("externs", errors.InvalidHandle(errors.PhaseBoundary, externsID))
			return b.responses.CreateError(response.StatusOf(err), err.Error())
		}
	}

	m, err := machine.New(context.Background(), machine.Config{
		Version:           machine.RegisteredVersion(version),
		Epoch:             types.ChainEpoch(epoch),
		BaseFee:           types.FromHiLo(baseFeeHi, baseFeeLo),
		CirculatingSupply: types.FromHiLo(circSupplyHi, circSupplyLo),
		NetworkVersion:    networkVersion,
		StateRoot:         stateRoot,
		Manifest:          manifestCID,
		Tracing:           tracing,
		Blockstore:        bs,
		Externs:           ext,
		Resolver:          b.opts.Resolver,
		Timing:            b.opts.Timing,
	}, b.opts.Factory)
	if err != nil {
		return b.responses.CreateError(response.StatusOf(err), err.Error())
	}

	h := b.machines.Insert(m)
	return b.responses.Create(&response.CreateResponse{
		Status:  response.StatusOK,
		Machine: uint64(h),
	})
}

// ExecuteMessage applies one encoded message. applyKind 0 is explicit,
// anything else implicit.
func (b *Boundary) ExecuteMessage(machineID uint64, msg []byte, chainLen, applyKind uint64) (resp *response.ExecuteResponse) {
	defer logCall("execute message")()
	defer catchPanic("execute message", func(err error) {
		resp = b.responses.ExecuteError(response.StatusUnclassified, err.Error())
	})

	m, ok := b.machines.Get(resource.Handle(machineID))
	if !ok {
		err := errors.InvalidHandle(errors.PhaseBoundary, machineID)
		return b.responses.ExecuteError(response.StatusOf(err), err.Error())
	}

	res, err := m.Execute(context.Background(), msg, chainLen, types.ApplyKindFromWire(applyKind))
	if err != nil {
		return b.responses.ExecuteError(response.StatusOf(err), err.Error())
	}

	penaltyHi, penaltyLo, err := res.Penalty.HiLo()
	if err != nil {
		return b.responses.ExecuteError(response.StatusExecutionError, err.Error())
	}
	tipHi, tipLo, err := res.MinerTip.HiLo()
	if err != nil {
		return b.responses.ExecuteError(response.StatusExecutionError, err.Error())
	}

	r := &response.ExecuteResponse{
		Status:     response.StatusOK,
		ExitCode:   uint64(res.ExitCode),
		GasUsed:    uint64(res.GasUsed),
		PenaltyHi:  penaltyHi,
		PenaltyLo:  penaltyLo,
		MinerTipHi: tipHi,
		MinerTipLo: tipLo,
		Return:     response.NewBuffer(res.Return),
	}
	if res.TraceBytes != nil {
		r.Trace = response.NewBuffer(res.TraceBytes)
	}
	if res.FailureInfo != "" {
		r.FailureInfo = response.NewString(res.FailureInfo)
	}
	return b.responses.Execute(r)
}

// FlushMachine commits the machine state and returns the new root CID bytes.
func (b *Boundary) FlushMachine(machineID uint64) (resp *response.FlushResponse) {
	defer logCall("flush machine")()
	defer catchPanic("flush machine", func(err error) {
		resp = b.responses.FlushError(response.StatusUnclassified, err.Error())
	})

	m, ok := b.machines.Get(resource.Handle(machineID))
	if !ok {
		err := errors.InvalidHandle(errors.PhaseBoundary, machineID)
		return b.responses.FlushError(response.StatusOf(err), err.Error())
	}

	root, err := m.Flush(context.Background())
	if err != nil {
		return b.responses.FlushError(response.StatusOf(err), err.Error())
	}
	return b.responses.Flush(&response.FlushResponse{
		Status:    response.StatusOK,
		StateRoot: response.NewBuffer(root.Bytes()),
	})
}

// DropMachine closes a machine and invalidates its handle. Unflushed state
// is discarded.
func (b *Boundary) DropMachine(machineID uint64) (err error) {
	defer logCall("drop machine")()
	defer catchPanic("drop machine", func(e error) { err = e })

	m, ok := b.machines.Remove(resource.Handle(machineID))
	if !ok {
		return errors.InvalidHandle(errors.PhaseBoundary, machineID)
	}
	return m.Close(context.Background())
}

// DestroyCreateResponse releases a CreateResponse.
func (b *Boundary) DestroyCreateResponse(h resource.Handle) error {
	return b.responses.DestroyCreate(h)
}

// DestroyExecuteResponse releases an ExecuteResponse.
func (b *Boundary) DestroyExecuteResponse(h resource.Handle) error {
	return b.responses.DestroyExecute(h)
}

// DestroyFlushResponse releases a FlushResponse.
func (b *Boundary) DestroyFlushResponse(h resource.Handle) error {
	return b.responses.DestroyFlush(h)
}

// Machines returns the number of live machines.
func (b *Boundary) Machines() int {
	return b.machines.Len()
}

// Responses returns the number of responses not yet destroyed.
func (b *Boundary) Responses() int {
	return b.responses.Live()
}

// Close drops every machine and response and forgets all host objects.
func (b *Boundary) Close() error {
	var first error
	b.machines.Each(func(h resource.Handle, m *machine.Machine) bool {
		if err := m.Close(context.Background()); err != nil && first == nil {
			first = fmt.Errorf("close machine %d: %w", uint64(h), err)
		}
		return true
	})
	b.table.Clear()
	if err := b.responses.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
