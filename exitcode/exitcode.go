// Package exitcode defines the receipt exit-code vocabulary and the mapping
// from dispatch failures onto it.
package exitcode

import "strconv"

// ExitCode classifies the outcome of an applied message. It is persisted in
// receipts and must never change meaning.
type ExitCode uint32

const (
	OK ExitCode = 0

	// System codes, produced by the engine rather than by actor code.
	SysSenderInvalid      ExitCode = 1
	SysSenderStateInvalid ExitCode = 2
	SysIllegalInstruction ExitCode = 4
	SysInvalidReceiver    ExitCode = 5
	SysInsufficientFunds  ExitCode = 6
	SysOutOfGas           ExitCode = 7
	SysIllegalExitCode    ExitCode = 9
	SysAssertionFailed    ExitCode = 10
	SysMissingReturn      ExitCode = 11

	// Common actor codes.
	ErrIllegalArgument   ExitCode = 16
	ErrNotFound          ExitCode = 17
	ErrForbidden         ExitCode = 18
	ErrInsufficientFunds ExitCode = 19
	ErrIllegalState      ExitCode = 20
	ErrSerialization     ExitCode = 21
	ErrUnhandledMessage  ExitCode = 22
	ErrUnspecified       ExitCode = 23
	ErrAssertionFailed   ExitCode = 24

	FirstUserExitCode ExitCode = 32
)

// IsSuccess reports whether the code is OK.
func (c ExitCode) IsSuccess() bool {
	return c == OK
}

// IsSystemError reports whether the code is in the system range.
func (c ExitCode) IsSystemError() bool {
	return c != OK && c < ErrIllegalArgument
}

// String returns a human-readable name for the code.
func (c ExitCode) String() string {
	switch c {
	case OK:
		return "OK"
	case SysSenderInvalid:
		return "SysSenderInvalid"
	case SysSenderStateInvalid:
		return "SysSenderStateInvalid"
	case SysIllegalInstruction:
		return "SysIllegalInstruction"
	case SysInvalidReceiver:
		return "SysInvalidReceiver"
	case SysInsufficientFunds:
		return "SysInsufficientFunds"
	case SysOutOfGas:
		return "SysOutOfGas"
	case SysIllegalExitCode:
		return "SysIllegalExitCode"
	case SysAssertionFailed:
		return "SysAssertionFailed"
	case SysMissingReturn:
		return "SysMissingReturn"
	case ErrIllegalArgument:
		return "ErrIllegalArgument"
	case ErrNotFound:
		return "ErrNotFound"
	case ErrForbidden:
		return "ErrForbidden"
	case ErrInsufficientFunds:
		return "ErrInsufficientFunds"
	case ErrIllegalState:
		return "ErrIllegalState"
	case ErrSerialization:
		return "ErrSerialization"
	case ErrUnhandledMessage:
		return "ErrUnhandledMessage"
	case ErrUnspecified:
		return "ErrUnspecified"
	case ErrAssertionFailed:
		return "ErrAssertionFailed"
	}
	return "ExitCode(" + strconv.FormatUint(uint64(c), 10) + ")"
}
