package engine

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/tetratelabs/wazero"

	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/exitcode"
	"github.com/wippyai/fvm-ffi/manifest"
	"github.com/wippyai/fvm-ffi/trace"
	"github.com/wippyai/fvm-ffi/types"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// call sends a message from one actor to another and returns the callee's
// return data and exit code. Every call emits exactly one Call and one
// Return event.
func (inv *invocation) call(ctx context.Context, from types.ActorID, to types.Address, method types.MethodNum, value types.TokenAmount, params []byte) ([]byte, exitcode.ExitCode) {
	inv.stats.CallCount++
	inv.emit(trace.Call{From: from, To: to, Method: method, Value: value, Params: params})

	inv.depth++
	out := inv.dispatch(ctx, from, to, method, value, params)
	inv.depth--

	inv.emit(trace.Return{Outcome: out})

	switch out.Kind {
	case trace.OutcomeSuccess:
		return out.Data, exitcode.OK
	case trace.OutcomeDispatchError:
		code, err := exitcode.FromDispatchError(out.Number)
		if err != nil {
			return nil, exitcode.SysAssertionFailed
		}
		return nil, code
	}
	return nil, out.Code
}

func (inv *invocation) dispatch(ctx context.Context, from types.ActorID, to types.Address, method types.MethodNum, value types.TokenAmount, params []byte) trace.Outcome {
	start := time.Now()

	if inv.fatal != nil {
		return trace.Failure(exitcode.SysAssertionFailed)
	}
	if inv.depth > inv.e.maxDepth {
		inv.fail("call depth limit exceeded")
		return trace.DispatchError(exitcode.LimitExceeded, "call depth limit exceeded")
	}
	if !inv.charge(GasPerCall + GasPerParamByte*int64(len(params))) {
		return trace.Failure(exitcode.SysOutOfGas)
	}

	st := inv.e.state
	toID, receiver, ok := st.lookup(to)
	if !ok {
		reason := fmt.Sprintf("receiver %s not found", to)
		inv.fail(reason)
		return trace.DispatchError(exitcode.NotFound, reason)
	}

	snap := st.snapshot()
	if !value.IsZero() {
		sender, ok := st.get(from)
		var balance types.TokenAmount
		if ok {
			balance, ok = sender.Balance.Sub(value)
		}
		if !ok {
			reason := fmt.Sprintf("sender %s cannot send %s", types.NewIDAddress(from), value)
			inv.fail(reason)
			return trace.DispatchError(exitcode.InsufficientFunds, reason)
		}
		sender.Balance = balance
		st.set(from, sender)

		receiver, _ = st.get(toID)
		if receiver.Balance, ok = receiver.Balance.Add(value); !ok {
			inv.fatal = errors.Execution("receiver balance overflows", nil)
			st.restore(snap)
			return trace.Failure(exitcode.SysAssertionFailed)
		}
		st.set(toID, receiver)
	}
	inv.stats.CallOverhead += time.Since(start)

	if method == types.MethodSend {
		return trace.Success(nil)
	}

	out := inv.invoke(ctx, toID, receiver.Code.Cid, method, params)
	if inv.outOfGas {
		out = trace.Failure(exitcode.SysOutOfGas)
	}
	if out.Kind != trace.OutcomeSuccess {
		st.restore(snap)
	}
	return out
}

// invoke runs the receiver's code.
func (inv *invocation) invoke(ctx context.Context, self types.ActorID, code cid.Cid, method types.MethodNum, params []byte) trace.Outcome {
	data, err := inv.e.loadCode(code)
	if err != nil {
		inv.fatal = err
		return trace.Failure(exitcode.SysAssertionFailed)
	}

	if name, ok := manifest.ParseNativeCode(data); ok {
		actor, ok := nativeActorFor(name)
		if !ok {
			inv.fatal = errors.Execution("unknown native actor "+name, nil)
			return trace.Failure(exitcode.SysAssertionFailed)
		}
		ret, exit := actor(&actorContext{ctx: ctx, inv: inv, self: self}, method, params)
		return inv.outcome(self, ret, exit)
	}
	if bytes.HasPrefix(data, wasmMagic) {
		return inv.runWasm(ctx, self, code, data, method)
	}

	inv.fatal = errors.Execution(fmt.Sprintf("unrecognized code %s for actor %s", code, types.NewIDAddress(self)), nil)
	return trace.Failure(exitcode.SysAssertionFailed)
}

// outcome checks the exit code an actor returned. Actors may not return
// system exit codes.
func (inv *invocation) outcome(self types.ActorID, ret []byte, code exitcode.ExitCode) trace.Outcome {
	switch {
	case code.IsSuccess():
		return trace.Success(ret)
	case code.IsSystemError():
		inv.fail(fmt.Sprintf("actor %s returned system exit code %s", types.NewIDAddress(self), code))
		return trace.Failure(exitcode.SysIllegalExitCode)
	}
	return trace.Failure(code)
}

func (inv *invocation) runWasm(ctx context.Context, self types.ActorID, code cid.Cid, wasm []byte, method types.MethodNum) trace.Outcome {
	if !inv.charge(GasWasmInvoke) {
		return trace.Failure(exitcode.SysOutOfGas)
	}
	inv.stats.Fuel += uint64(GasWasmInvoke)

	rt := inv.e.rt
	compiled, err := rt.compile(ctx, code, wasm)
	if err != nil {
		inv.fail(fmt.Sprintf("compile actor code %s: %v", code, err))
		return trace.Failure(exitcode.SysIllegalInstruction)
	}
	mod, err := rt.rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		inv.fail(fmt.Sprintf("instantiate actor %s: %v", types.NewIDAddress(self), err))
		return trace.Failure(exitcode.SysIllegalInstruction)
	}
	defer mod.Close(ctx)

	fn := mod.ExportedFunction(exportInvoke)
	if fn == nil {
		inv.fail(fmt.Sprintf("actor %s exports no %s", types.NewIDAddress(self), exportInvoke))
		return trace.Failure(exitcode.ErrUnhandledMessage)
	}

	start := time.Now()
	results, err := fn.Call(context.WithValue(ctx, frameKey{}, &hostFrame{inv: inv, self: self}), uint64(method))
	inv.stats.WasmTime += time.Since(start)
	if err != nil {
		inv.fail(fmt.Sprintf("actor %s trapped: %v", types.NewIDAddress(self), err))
		return trace.Failure(exitcode.SysIllegalInstruction)
	}
	return inv.outcome(self, nil, exitcode.ExitCode(uint32(results[0])))
}

type frameKey struct{}

// hostFrame is what the vm host module sees of the running actor.
type hostFrame struct {
	inv  *invocation
	self types.ActorID
}

func (f *hostFrame) send(ctx context.Context, to types.ActorID, method types.MethodNum) exitcode.ExitCode {
	f.inv.stats.NumSyscalls++
	if !f.inv.charge(GasSyscall) {
		return exitcode.SysOutOfGas
	}
	_, code := f.inv.call(ctx, f.self, types.NewIDAddress(to), method, types.Zero, nil)
	return code
}
