package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCreate   Phase = "create"   // machine construction
	PhaseDecode   Phase = "decode"   // inbound bytes to Go values
	PhaseExecute  Phase = "execute"  // message application
	PhaseTrace    Phase = "trace"    // trace reconstruction and encoding
	PhaseFlush    Phase = "flush"    // state commit
	PhaseStore    Phase = "store"    // blockstore access
	PhaseBoundary Phase = "boundary" // call boundary adapters
	PhaseTiming   Phase = "timing"   // timing log sink
)

// Kind categorizes the error
type Kind string

const (
	KindConstruction   Kind = "construction"
	KindDecode         Kind = "decode"
	KindExecution      Kind = "execution"
	KindMalformedTrace Kind = "malformed_trace"
	KindFlush          Kind = "flush"
	KindIO             Kind = "io"
	KindFault          Kind = "fault"
	KindUnsupported    Kind = "unsupported"
	KindInvalidInput   Kind = "invalid_input"
	KindNotFound       Kind = "not_found"
	KindInvalidHandle  Kind = "invalid_handle"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// KindOf returns the Kind of the first *Error in err's chain.
// Errors that did not originate in this module report KindFault.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindFault
}

// Convenience constructors for common error patterns

// Construction creates a machine construction error
func Construction(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindConstruction,
		Detail: detail,
		Cause:  cause,
	}
}

// Decode creates a decode error for malformed inbound bytes
func Decode(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindDecode,
		Detail: fmt.Sprintf("decode %s", what),
		Cause:  cause,
	}
}

// Execution creates an error for a non-recoverable engine failure
func Execution(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindExecution,
		Detail: detail,
		Cause:  cause,
	}
}

// MalformedTrace creates an error for an event stream that breaks call/return nesting
func MalformedTrace(detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  PhaseTrace,
		Kind:   KindMalformedTrace,
		Detail: detail,
	}
}

// Flush creates a state commit error
func Flush(cause error) *Error {
	return &Error{
		Phase:  PhaseFlush,
		Kind:   KindFlush,
		Detail: "commit state",
		Cause:  cause,
	}
}

// IO creates an I/O error
func IO(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
	}
}

// Fault creates an error from a recovered panic value
func Fault(phase Phase, value any) *Error {
	e := &Error{
		Phase:  phase,
		Kind:   KindFault,
		Detail: fmt.Sprintf("recovered: %v", value),
		Value:  value,
	}
	if err, ok := value.(error); ok {
		e.Cause = err
	}
	return e
}

// InvalidHandle creates an error for a handle that is unknown, stale, or of the wrong type
func InvalidHandle(phase Phase, handle uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("invalid handle %#x", handle),
		Value:  handle,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
