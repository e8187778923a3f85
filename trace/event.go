package trace

import (
	"github.com/wippyai/fvm-ffi/exitcode"
	"github.com/wippyai/fvm-ffi/types"
)

// Event is one entry of the flat stream the engine emits while executing a
// message. It is either a Call or a Return.
type Event interface {
	isEvent()
}

// Call opens a frame.
type Call struct {
	Params []byte
	Value  types.TokenAmount
	To     types.Address
	From   types.ActorID
	Method types.MethodNum
}

// Return closes the innermost open frame.
type Return struct {
	Outcome Outcome
}

func (Call) isEvent()   {}
func (Return) isEvent() {}

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind uint8

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeFailure
	OutcomeDispatchError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeDispatchError:
		return "dispatch_error"
	}
	return "unknown"
}

// Outcome is the result carried by a Return. Which fields are meaningful
// depends on Kind:
//
//	OutcomeSuccess        Data, Code (must be OK)
//	OutcomeFailure        Code (must not be OK)
//	OutcomeDispatchError  Number, Message
type Outcome struct {
	Data    []byte
	Message string
	Kind    OutcomeKind
	Code    exitcode.ExitCode
	Number  exitcode.ErrorNumber
}

// Success is a normal return with data.
func Success(data []byte) Outcome {
	return Outcome{Kind: OutcomeSuccess, Data: data}
}

// Failure is an actor-level failure with the given exit code.
func Failure(code exitcode.ExitCode) Outcome {
	return Outcome{Kind: OutcomeFailure, Code: code}
}

// DispatchError is a failure to deliver the call at all.
func DispatchError(n exitcode.ErrorNumber, message string) Outcome {
	return Outcome{Kind: OutcomeDispatchError, Number: n, Message: message}
}
