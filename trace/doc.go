// Package trace rebuilds nested execution traces from the engine's flat
// event stream and encodes them for chain clients.
//
// The engine reports execution as a pre-order sequence of Call and Return
// events. Reconstruct turns that sequence into a CallFrame tree:
//
//	events := []trace.Event{
//	    trace.Call{From: 100, To: to, Method: 2},
//	    trace.Call{From: 101, To: other, Method: 3},
//	    trace.Return{Outcome: trace.Success(nil)},
//	    trace.Return{Outcome: trace.Failure(exitcode.ErrForbidden)},
//	}
//	root, err := trace.Reconstruct(events)
//
// Dispatch errors are mapped onto receipt exit codes through
// exitcode.FromDispatchError and their message is kept in CallFrame.Error.
//
// A stream that breaks call/return nesting fails with a malformed_trace
// error. Callers treat that as "no trace" rather than failing the message.
package trace
