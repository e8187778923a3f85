// Package response builds the result records returned across the call
// boundary and tracks them until the caller destroys them.
//
// Every record carries a Status. Payload fields are populated only when the
// status is StatusOK; otherwise only Message is set. Each record owns its
// buffers and gives them up when it is destroyed through the Allocator that
// created it, exactly once and with the destroy that matches its shape.
package response

import (
	"fmt"

	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/resource"
)

// Status is the outcome class of a boundary call.
type Status int32

const (
	StatusOK Status = iota
	StatusUnclassified
	StatusConstructionError
	StatusExecutionError
	StatusFlushError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnclassified:
		return "unclassified"
	case StatusConstructionError:
		return "construction_error"
	case StatusExecutionError:
		return "execution_error"
	case StatusFlushError:
		return "flush_error"
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// StatusOf classifies err. Decode failures of the inbound message count as
// execution errors.
func StatusOf(err error) Status {
	switch errors.KindOf(err) {
	case errors.KindConstruction:
		return StatusConstructionError
	case errors.KindExecution, errors.KindDecode:
		return StatusExecutionError
	case errors.KindFlush:
		return StatusFlushError
	}
	return StatusUnclassified
}

// CreateResponse is the result of creating a machine.
type CreateResponse struct {
	Message *Buffer
	Handle  resource.Handle
	Status  Status
	// Machine is the machine handle; 0 unless Status is StatusOK.
	Machine uint64
}

// Drop releases the record's buffers.
func (r *CreateResponse) Drop() {
	r.Message.Release()
}

// ExecuteResponse is the result of applying one message.
type ExecuteResponse struct {
	Message *Buffer
	// Return holds the receipt return data; present, possibly empty, on OK.
	Return *Buffer
	// Trace holds the encoded call tree; nil when no trace was produced.
	Trace *Buffer
	// FailureInfo is nil when the message succeeded.
	FailureInfo *Buffer

	Handle     resource.Handle
	Status     Status
	ExitCode   uint64
	GasUsed    uint64
	PenaltyHi  uint64
	PenaltyLo  uint64
	MinerTipHi uint64
	MinerTipLo uint64
}

// Drop releases the record's buffers.
func (r *ExecuteResponse) Drop() {
	r.Message.Release()
	r.Return.Release()
	r.Trace.Release()
	r.FailureInfo.Release()
}

// FlushResponse is the result of flushing a machine.
type FlushResponse struct {
	Message *Buffer
	// StateRoot holds the CID bytes of the new state root on OK.
	StateRoot *Buffer
	Handle    resource.Handle
	Status    Status
}

// Drop releases the record's buffers.
func (r *FlushResponse) Drop() {
	r.Message.Release()
	r.StateRoot.Release()
}

var (
	_ resource.Dropper = (*CreateResponse)(nil)
	_ resource.Dropper = (*ExecuteResponse)(nil)
	_ resource.Dropper = (*FlushResponse)(nil)
)
