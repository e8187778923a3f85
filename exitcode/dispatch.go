package exitcode

import (
	"strconv"

	"github.com/wippyai/fvm-ffi/errors"
)

// ErrorNumber is the reason a call could not be dispatched to its target at
// all, as opposed to a failure inside the target's own execution.
type ErrorNumber uint32

const (
	IllegalArgument   ErrorNumber = 1
	IllegalOperation  ErrorNumber = 2
	LimitExceeded     ErrorNumber = 3
	AssertionFailed   ErrorNumber = 4
	InsufficientFunds ErrorNumber = 5
	NotFound          ErrorNumber = 6
	InvalidHandle     ErrorNumber = 7
	IllegalCid        ErrorNumber = 8
	IllegalCodec      ErrorNumber = 9
	Serialization     ErrorNumber = 10
	Forbidden         ErrorNumber = 11
)

// Valid reports whether n belongs to the closed set of dispatch reasons.
func (n ErrorNumber) Valid() bool {
	return n >= IllegalArgument && n <= Forbidden
}

// String returns a human-readable name for the reason.
func (n ErrorNumber) String() string {
	switch n {
	case IllegalArgument:
		return "IllegalArgument"
	case IllegalOperation:
		return "IllegalOperation"
	case LimitExceeded:
		return "LimitExceeded"
	case AssertionFailed:
		return "AssertionFailed"
	case InsufficientFunds:
		return "InsufficientFunds"
	case NotFound:
		return "NotFound"
	case InvalidHandle:
		return "InvalidHandle"
	case IllegalCid:
		return "IllegalCid"
	case IllegalCodec:
		return "IllegalCodec"
	case Serialization:
		return "Serialization"
	case Forbidden:
		return "Forbidden"
	}
	return "ErrorNumber(" + strconv.FormatUint(uint64(n), 10) + ")"
}

// FromDispatchError maps a dispatch failure onto the exit code persisted in
// the receipt. Every reason is listed explicitly; a new reason must be added
// here before it can be mapped.
func FromDispatchError(n ErrorNumber) (ExitCode, error) {
	switch n {
	case InsufficientFunds:
		return SysInsufficientFunds, nil
	case NotFound:
		return SysInvalidReceiver, nil

	case IllegalArgument,
		IllegalOperation,
		LimitExceeded,
		AssertionFailed,
		InvalidHandle,
		IllegalCid,
		IllegalCodec,
		Serialization,
		Forbidden:
		return SysAssertionFailed, nil
	}
	return 0, errors.New(errors.PhaseTrace, errors.KindUnsupported).
		Value(uint32(n)).
		Detail("unmapped dispatch error number %d", uint32(n)).
		Build()
}
