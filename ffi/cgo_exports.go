//go:build cgo && fvmffi

package ffi

/*
#include <stdint.h>
#include <stdlib.h>
#include <stdbool.h>
#include <string.h>

// Response layouts shared with the host. Every pointer is owned by the
// response and freed by its destroy function. Present buffers are never
// NULL, even when zero-length.

typedef struct {
    int32_t status_code;
    const char *error_msg;
    uint64_t machine;
} fil_CreateFvmMachineResponse;

typedef struct {
    int32_t status_code;
    const char *error_msg;
    uint64_t exit_code;
    uint64_t gas_used;
    uint64_t penalty_hi;
    uint64_t penalty_lo;
    uint64_t miner_tip_hi;
    uint64_t miner_tip_lo;
    const uint8_t *return_ptr;
    size_t return_len;
    const uint8_t *exec_trace_ptr;
    size_t exec_trace_len;
    const char *failure_info;
} fil_FvmMachineExecuteResponse;

typedef struct {
    int32_t status_code;
    const char *error_msg;
    const uint8_t *state_root_ptr;
    size_t state_root_len;
} fil_FvmMachineFlushResponse;
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/fvm-ffi/response"
)

func goBytes(ptr *C.uint8_t, n C.size_t) []byte {
	if ptr == nil || n == 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(ptr), C.int(n))
}

// cBytes copies b into C memory. A nil buffer stays NULL; a zero-length
// one gets a one-byte allocation.
func cBytes(b *response.Buffer) (*C.uint8_t, C.size_t) {
	if b == nil {
		return nil, 0
	}
	data := b.Bytes()
	size := len(data)
	if size == 0 {
		size = 1
	}
	p := C.malloc(C.size_t(size))
	if len(data) > 0 {
		C.memcpy(p, unsafe.Pointer(&data[0]), C.size_t(len(data)))
	}
	return (*C.uint8_t)(p), C.size_t(len(data))
}

func cString(b *response.Buffer) *C.char {
	if b == nil {
		return nil
	}
	return C.CString(b.String())
}

//export fil_create_fvm_machine
func fil_create_fvm_machine(
	version, epoch, baseFeeHi, baseFeeLo, circSupplyHi, circSupplyLo, networkVersion C.uint64_t,
	stateRootPtr *C.uint8_t, stateRootLen C.size_t,
	manifestPtr *C.uint8_t, manifestLen C.size_t,
	tracing C.bool,
	blockstoreID, externsID C.uint64_t,
) *C.fil_CreateFvmMachineResponse {
	b := Default()
	r := b.CreateMachine(uint64(version), uint64(epoch),
		uint64(baseFeeHi), uint64(baseFeeLo), uint64(circSupplyHi), uint64(circSupplyLo),
		uint64(networkVersion),
		goBytes(stateRootPtr, stateRootLen), goBytes(manifestPtr, manifestLen),
		bool(tracing), uint64(blockstoreID), uint64(externsID))
	defer b.DestroyCreateResponse(r.Handle)

	out := (*C.fil_CreateFvmMachineResponse)(C.calloc(1, C.sizeof_fil_CreateFvmMachineResponse))
	out.status_code = C.int32_t(r.Status)
	out.error_msg = cString(r.Message)
	out.machine = C.uint64_t(r.Machine)
	return out
}

//export fil_fvm_machine_execute_message
func fil_fvm_machine_execute_message(
	machine C.uint64_t,
	msgPtr *C.uint8_t, msgLen C.size_t,
	chainLen, applyKind C.uint64_t,
) *C.fil_FvmMachineExecuteResponse {
	b := Default()
	r := b.ExecuteMessage(uint64(machine), goBytes(msgPtr, msgLen), uint64(chainLen), uint64(applyKind))
	defer b.DestroyExecuteResponse(r.Handle)

	out := (*C.fil_FvmMachineExecuteResponse)(C.calloc(1, C.sizeof_fil_FvmMachineExecuteResponse))
	out.status_code = C.int32_t(r.Status)
	out.error_msg = cString(r.Message)
	out.exit_code = C.uint64_t(r.ExitCode)
	out.gas_used = C.uint64_t(r.GasUsed)
	out.penalty_hi = C.uint64_t(r.PenaltyHi)
	out.penalty_lo = C.uint64_t(r.PenaltyLo)
	out.miner_tip_hi = C.uint64_t(r.MinerTipHi)
	out.miner_tip_lo = C.uint64_t(r.MinerTipLo)
	out.return_ptr, out.return_len = cBytes(r.Return)
	out.exec_trace_ptr, out.exec_trace_len = cBytes(r.Trace)
	out.failure_info = cString(r.FailureInfo)
	return out
}

//export fil_fvm_machine_flush
func fil_fvm_machine_flush(machine C.uint64_t) *C.fil_FvmMachineFlushResponse {
	b := Default()
	r := b.FlushMachine(uint64(machine))
	defer b.DestroyFlushResponse(r.Handle)

	out := (*C.fil_FvmMachineFlushResponse)(C.calloc(1, C.sizeof_fil_FvmMachineFlushResponse))
	out.status_code = C.int32_t(r.Status)
	out.error_msg = cString(r.Message)
	out.state_root_ptr, out.state_root_len = cBytes(r.StateRoot)
	return out
}

//export fil_drop_fvm_machine
func fil_drop_fvm_machine(machine C.uint64_t) {
	if err := Default().DropMachine(uint64(machine)); err != nil {
		Logger().Warn("drop machine: " + err.Error())
	}
}

//export fil_destroy_create_fvm_machine_response
func fil_destroy_create_fvm_machine_response(ptr *C.fil_CreateFvmMachineResponse) {
	if ptr == nil {
		return
	}
	C.free(unsafe.Pointer(ptr.error_msg))
	C.free(unsafe.Pointer(ptr))
}

//export fil_destroy_fvm_machine_execute_response
func fil_destroy_fvm_machine_execute_response(ptr *C.fil_FvmMachineExecuteResponse) {
	if ptr == nil {
		return
	}
	C.free(unsafe.Pointer(ptr.error_msg))
	C.free(unsafe.Pointer(ptr.return_ptr))
	C.free(unsafe.Pointer(ptr.exec_trace_ptr))
	C.free(unsafe.Pointer(ptr.failure_info))
	C.free(unsafe.Pointer(ptr))
}

//export fil_destroy_fvm_machine_flush_response
func fil_destroy_fvm_machine_flush_response(ptr *C.fil_FvmMachineFlushResponse) {
	if ptr == nil {
		return
	}
	C.free(unsafe.Pointer(ptr.error_msg))
	C.free(unsafe.Pointer(ptr.state_root_ptr))
	C.free(unsafe.Pointer(ptr))
}
