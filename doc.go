// Package fvmffi is the machine boundary of a Filecoin virtual machine: it
// lets a host process create machines over its own blockstore, apply chain
// messages to them, flush their state, and read back receipts, fees and
// execution traces through a flat call interface.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	fvmffi/
//	├── ffi/         Flat entry points, handle registries, cgo exports
//	├── machine/     One engine per machine, serialized, with a lifecycle
//	├── engine/      Engine contract and the wazero-backed reference engine
//	├── trace/       Call/Return event stream and call-tree reconstruction
//	├── exitcode/    Exit codes and dispatch-error mapping
//	├── response/    Result records, owned buffers, status codes
//	├── timing/      Append-only JSON timing log
//	├── manifest/    Actor bundles and network version resolution
//	├── blockstore/  Content-addressed stores (memory, pebble, cache, overlay)
//	├── resource/    Generation-counted handle tables
//	├── types/       Addresses, token amounts, messages, receipts
//	├── config/      Environment configuration
//	├── errors/      Structured errors with phase and kind
//	└── cmd/fvm-exec Command-line driver and trace browser
//
// # Quick Start
//
// Register a blockstore, create a machine over a state root and apply a
// message:
//
//	id, _ := ffi.RegisterBlockstore(bs)
//	cr := ffi.CreateMachine(0, epoch, 0, baseFee, 0, 0, 16, root.Bytes(), nil, true, id, 0)
//	defer ffi.DestroyCreateResponse(cr.Handle)
//
//	er := ffi.ExecuteMessage(cr.Machine, msgBytes, uint64(len(msgBytes)), 0)
//	defer ffi.DestroyExecuteResponse(er.Handle)
//	fmt.Println(er.ExitCode, er.GasUsed)
//
//	fr := ffi.FlushMachine(cr.Machine)
//	defer ffi.DestroyFlushResponse(fr.Handle)
//	ffi.DropMachine(cr.Machine)
//
// # Status Codes
//
// Every response carries a status. OK means the call produced a result; the
// message itself may still have failed, which shows in its exit code.
// Construction, execution and flush errors carry a message. Unclassified
// covers panics and invalid handles.
//
// # Configuration
//
//	FVM_LOG_LEVEL           zap level for boundary logs (default warn)
//	FVM_TIMING_LOG          path of the timing log; unset disables it
//	FVM_BLOCKSTORE_CACHE    blocks kept in each blockstore read cache
//	FVM_MEMORY_LIMIT_PAGES  wasm memory cap in 64KiB pages
//
// # Thread Safety
//
// All entry points may be called from any goroutine. Calls on one machine
// are serialized; distinct machines run in parallel.
package fvmffi
