package engine

import (
	"context"
	"fmt"

	"github.com/wippyai/fvm-ffi/exitcode"
	"github.com/wippyai/fvm-ffi/manifest"
	"github.com/wippyai/fvm-ffi/types"
)

// Account actor methods.
const (
	MethodAccountPubkeyAddress types.MethodNum = 2
)

// Relay actor methods. The relay is a test actor that fans sends out to
// other actors and exercises failure paths.
const (
	// MethodRelayForward performs each SendSpec in the params, in order, and
	// returns the CBOR list of their exit codes.
	MethodRelayForward types.MethodNum = 2
	// MethodRelayFail exits with FirstUserExitCode.
	MethodRelayFail types.MethodNum = 3
	// MethodRelayRandomness returns chain randomness for the CBOR epoch in
	// the params.
	MethodRelayRandomness types.MethodNum = 4
	// MethodRelayPanic panics inside the engine.
	MethodRelayPanic types.MethodNum = 5
)

// SendSpec is one send performed by MethodRelayForward.
type SendSpec struct {
	_      struct{} `cbor:",toarray"`
	To     types.Address
	Method types.MethodNum
	Value  types.TokenAmount
	Params []byte
}

// actorContext is the view a native actor has of the executing message.
type actorContext struct {
	ctx  context.Context
	inv  *invocation
	self types.ActorID
}

func (a *actorContext) send(to types.Address, method types.MethodNum, value types.TokenAmount, params []byte) ([]byte, exitcode.ExitCode) {
	a.inv.stats.NumSyscalls++
	if !a.inv.charge(GasSyscall) {
		return nil, exitcode.SysOutOfGas
	}
	return a.inv.call(a.ctx, a.self, to, method, value, params)
}

func (a *actorContext) abort(code exitcode.ExitCode, format string, args ...any) ([]byte, exitcode.ExitCode) {
	a.inv.fail(fmt.Sprintf(format, args...))
	return nil, code
}

type nativeActor func(rt *actorContext, method types.MethodNum, params []byte) ([]byte, exitcode.ExitCode)

func nativeActorFor(name string) (nativeActor, bool) {
	switch name {
	case manifest.ActorSystem:
		return systemActor, true
	case manifest.ActorAccount:
		return accountActor, true
	case manifest.ActorRelay:
		return relayActor, true
	}
	return nil, false
}

func systemActor(rt *actorContext, method types.MethodNum, _ []byte) ([]byte, exitcode.ExitCode) {
	return rt.abort(exitcode.ErrForbidden, "system actor accepts no messages (method %d)", method)
}

func accountActor(rt *actorContext, method types.MethodNum, _ []byte) ([]byte, exitcode.ExitCode) {
	switch method {
	case MethodAccountPubkeyAddress:
		out, err := types.Marshal(types.NewIDAddress(rt.self))
		if err != nil {
			return rt.abort(exitcode.ErrSerialization, "encode address: %v", err)
		}
		return out, exitcode.OK
	}
	return rt.abort(exitcode.ErrUnhandledMessage, "account actor has no method %d", method)
}

func relayActor(rt *actorContext, method types.MethodNum, params []byte) ([]byte, exitcode.ExitCode) {
	switch method {
	case MethodRelayForward:
		var specs []SendSpec
		if err := types.Unmarshal(params, &specs); err != nil {
			return rt.abort(exitcode.ErrSerialization, "relay: decode forward params: %v", err)
		}
		codes := make([]exitcode.ExitCode, len(specs))
		for i, s := range specs {
			_, codes[i] = rt.send(s.To, s.Method, s.Value, s.Params)
		}
		out, err := types.Marshal(codes)
		if err != nil {
			return rt.abort(exitcode.ErrSerialization, "relay: encode exit codes: %v", err)
		}
		return out, exitcode.OK

	case MethodRelayFail:
		return rt.abort(exitcode.FirstUserExitCode, "relay: requested failure")

	case MethodRelayRandomness:
		var round types.ChainEpoch
		if err := types.Unmarshal(params, &round); err != nil {
			return rt.abort(exitcode.ErrSerialization, "relay: decode epoch: %v", err)
		}
		externs := rt.inv.e.externs
		if externs == nil {
			return rt.abort(exitcode.ErrIllegalState, "relay: no externs")
		}
		rt.inv.stats.NumExterns++
		r, err := externs.ChainRandomness(rt.ctx, round)
		if err != nil {
			return rt.abort(exitcode.ErrIllegalState, "relay: chain randomness: %v", err)
		}
		return r[:], exitcode.OK

	case MethodRelayPanic:
		panic(fmt.Sprintf("relay actor %s: requested panic", types.NewIDAddress(rt.self)))
	}
	return rt.abort(exitcode.ErrUnhandledMessage, "relay actor has no method %d", method)
}
