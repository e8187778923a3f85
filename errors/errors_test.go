package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseCreate,
				Kind:   KindConstruction,
				Detail: "invalid state root",
				Cause:  errors.New("varint overflow"),
			},
			contains: []string{"[create]", "construction", "invalid state root", "caused by", "varint overflow"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseTrace,
				Kind:  KindMalformedTrace,
			},
			contains: []string{"[trace]", "malformed_trace"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseFlush,
		Kind:  KindFlush,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := MalformedTrace("unexpected Return at index %d", 0)

	if !err.Is(&Error{Phase: PhaseTrace, Kind: KindMalformedTrace}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseExecute, Kind: KindMalformedTrace}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseTrace, Kind: KindDecode}) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("build trace: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseTrace, Kind: KindMalformedTrace}) {
		t.Error("errors.Is should match through fmt wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseExecute, KindExecution).
		Value(42).
		Cause(cause).
		Detail("apply message %d", 7).
		Build()

	if err.Phase != PhaseExecute {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseExecute)
	}
	if err.Kind != KindExecution {
		t.Errorf("Kind = %v, want %v", err.Kind, KindExecution)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "apply message 7" {
		t.Errorf("Detail = %q, want 'apply message 7'", err.Detail)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
		name string
	}{
		{Construction("bad", nil), KindConstruction, "construction"},
		{fmt.Errorf("outer: %w", Decode("message", nil)), KindDecode, "wrapped decode"},
		{Flush(errors.New("disk full")), KindFlush, "flush"},
		{errors.New("plain"), KindFault, "foreign error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Construction", func(t *testing.T) {
		err := Construction("unsupported network version: 99", nil)
		if err.Phase != PhaseCreate || err.Kind != KindConstruction {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("Decode", func(t *testing.T) {
		err := Decode("message", errors.New("eof"))
		if err.Kind != KindDecode {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDecode)
		}
		if !strings.Contains(err.Detail, "message") {
			t.Errorf("Detail = %q, should name what failed", err.Detail)
		}
	})

	t.Run("Fault from error", func(t *testing.T) {
		cause := errors.New("index out of range")
		err := Fault(PhaseBoundary, cause)
		if err.Kind != KindFault {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFault)
		}
		if !errors.Is(err, cause) {
			t.Error("Fault should keep error panic values as cause")
		}
	})

	t.Run("Fault from string", func(t *testing.T) {
		err := Fault(PhaseBoundary, "boom")
		if err.Cause != nil {
			t.Errorf("Cause = %v, want nil", err.Cause)
		}
		if !strings.Contains(err.Error(), "boom") {
			t.Errorf("message %q should contain panic value", err.Error())
		}
	})

	t.Run("InvalidHandle", func(t *testing.T) {
		err := InvalidHandle(PhaseBoundary, 0x100000001)
		if err.Kind != KindInvalidHandle {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidHandle)
		}
		if err.Value != uint64(0x100000001) {
			t.Errorf("Value = %v", err.Value)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseCreate, "bundle", "actors/v9")
		if !strings.Contains(err.Detail, `"actors/v9"`) {
			t.Errorf("Detail = %q", err.Detail)
		}
	})
}
