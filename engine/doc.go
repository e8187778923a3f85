// Package engine defines the contract between a machine and the code that
// actually applies messages, and provides a reference implementation.
//
// # Contract
//
// An Engine is created by a Factory for one MachineContext and one host
// blockstore. It applies messages one at a time:
//
//	ExecuteMessage  - apply a message, return receipt, fees, trace events
//	Flush           - commit pending state, return the new state root
//	ActorCode       - resolve an actor's code CID (used for timing records)
//	Close           - discard unflushed state
//
// Message-level failures (bad nonce, out of gas, missing receiver) are
// reported in the receipt. An error return means no result could be
// produced at all.
//
// # Reference Engine
//
// Executor keeps an ID-addressed actor table persisted as dag-cbor. Actor
// code is either a native Go actor (system, account, relay) or a wasm
// module run through wazero. Wasm actors export
//
//	invoke(method i64) -> i32
//
// and may import vm.send(to i64, method i64) -> i32 for nested sends.
// All machines share one wazero runtime and compilation cache (Shared).
//
// When tracing is enabled every send emits a trace.Call followed, after any
// nested sends, by its trace.Return:
//
//	Call(f0100 -> f0200)
//	  Call(f0200 -> f0300)
//	  Return(success)
//	Return(success)
//
// # Thread Safety
//
// Runtime is safe for concurrent use. Executor is NOT; callers serialize.
package engine
