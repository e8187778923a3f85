package exitcode

import (
	"testing"

	"github.com/wippyai/fvm-ffi/errors"
)

func TestFromDispatchError(t *testing.T) {
	tests := []struct {
		n    ErrorNumber
		want ExitCode
	}{
		{InsufficientFunds, SysInsufficientFunds},
		{NotFound, SysInvalidReceiver},
		{IllegalArgument, SysAssertionFailed},
		{IllegalOperation, SysAssertionFailed},
		{LimitExceeded, SysAssertionFailed},
		{AssertionFailed, SysAssertionFailed},
		{InvalidHandle, SysAssertionFailed},
		{IllegalCid, SysAssertionFailed},
		{IllegalCodec, SysAssertionFailed},
		{Serialization, SysAssertionFailed},
		{Forbidden, SysAssertionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.n.String(), func(t *testing.T) {
			for i := 0; i < 3; i++ {
				got, err := FromDispatchError(tt.n)
				if err != nil {
					t.Fatalf("FromDispatchError(%v) error: %v", tt.n, err)
				}
				if got != tt.want {
					t.Fatalf("FromDispatchError(%v) = %v, want %v", tt.n, got, tt.want)
				}
			}
		})
	}
}

func TestFromDispatchError_Total(t *testing.T) {
	seen := map[ExitCode]int{}
	for n := IllegalArgument; n <= Forbidden; n++ {
		if !n.Valid() {
			t.Fatalf("%v should be valid", n)
		}
		code, err := FromDispatchError(n)
		if err != nil {
			t.Fatalf("FromDispatchError(%v) error: %v", n, err)
		}
		seen[code]++
	}

	if seen[SysInsufficientFunds] != 1 {
		t.Errorf("SysInsufficientFunds mapped %d times, want 1", seen[SysInsufficientFunds])
	}
	if seen[SysInvalidReceiver] != 1 {
		t.Errorf("SysInvalidReceiver mapped %d times, want 1", seen[SysInvalidReceiver])
	}
	if seen[SysAssertionFailed] != 9 {
		t.Errorf("SysAssertionFailed mapped %d times, want 9", seen[SysAssertionFailed])
	}
	if len(seen) != 3 {
		t.Errorf("got %d distinct codes, want 3", len(seen))
	}
}

func TestFromDispatchError_OutsideSet(t *testing.T) {
	for _, n := range []ErrorNumber{0, 12, 255} {
		if n.Valid() {
			t.Errorf("%d should not be valid", n)
		}
		_, err := FromDispatchError(n)
		if err == nil {
			t.Fatalf("FromDispatchError(%d) should fail", n)
		}
		if errors.KindOf(err) != errors.KindUnsupported {
			t.Errorf("KindOf = %v, want %v", errors.KindOf(err), errors.KindUnsupported)
		}
	}
}

func TestExitCode_Classes(t *testing.T) {
	if !OK.IsSuccess() || OK.IsSystemError() {
		t.Error("OK should be success and not a system error")
	}
	if !SysOutOfGas.IsSystemError() {
		t.Error("SysOutOfGas should be a system error")
	}
	if ErrNotFound.IsSystemError() {
		t.Error("ErrNotFound is an actor code")
	}
	if got := ExitCode(99).String(); got != "ExitCode(99)" {
		t.Errorf("String() = %q", got)
	}
	if got := SysAssertionFailed.String(); got != "SysAssertionFailed" {
		t.Errorf("String() = %q", got)
	}
}
