package types

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/wippyai/fvm-ffi/errors"
)

// TokenAmount is a non-negative quantity of attoFIL.
type TokenAmount struct {
	v uint256.Int
}

// Zero is the zero amount.
var Zero = TokenAmount{}

// NewTokenAmount returns an amount of n attoFIL.
func NewTokenAmount(n uint64) TokenAmount {
	var t TokenAmount
	t.v.SetUint64(n)
	return t
}

// FromHiLo joins two 64-bit halves as (hi << 64) | lo.
func FromHiLo(hi, lo uint64) TokenAmount {
	var t TokenAmount
	t.v[0] = lo
	t.v[1] = hi
	return t
}

// HiLo splits the amount into two 64-bit halves. Amounts wider than 128 bits
// cannot cross the boundary and return an error.
func (t TokenAmount) HiLo() (hi, lo uint64, err error) {
	if t.v[2] != 0 || t.v[3] != 0 {
		return 0, 0, errors.New(errors.PhaseBoundary, errors.KindInvalidInput).
			Value(t.String()).
			Detail("token amount exceeds 128 bits").
			Build()
	}
	return t.v[1], t.v[0], nil
}

// IsZero reports whether t is zero.
func (t TokenAmount) IsZero() bool {
	return t.v.IsZero()
}

// Cmp compares t and o and returns -1, 0 or +1.
func (t TokenAmount) Cmp(o TokenAmount) int {
	return t.v.Cmp(&o.v)
}

// Add returns t + o. Overflow past 256 bits is reported.
func (t TokenAmount) Add(o TokenAmount) (TokenAmount, bool) {
	var r TokenAmount
	_, overflow := r.v.AddOverflow(&t.v, &o.v)
	return r, !overflow
}

// Sub returns t - o, or false if o > t.
func (t TokenAmount) Sub(o TokenAmount) (TokenAmount, bool) {
	var r TokenAmount
	_, underflow := r.v.SubOverflow(&t.v, &o.v)
	return r, !underflow
}

// MulUint64 returns t * n.
func (t TokenAmount) MulUint64(n uint64) (TokenAmount, bool) {
	var r, m TokenAmount
	m.v.SetUint64(n)
	_, overflow := r.v.MulOverflow(&t.v, &m.v)
	return r, !overflow
}

// String returns the decimal representation.
func (t TokenAmount) String() string {
	return t.v.Dec()
}

// ParseTokenAmount parses a decimal amount.
func ParseTokenAmount(s string) (TokenAmount, error) {
	var t TokenAmount
	if err := t.v.SetFromDecimal(s); err != nil {
		return Zero, errors.Wrap(errors.PhaseDecode, errors.KindInvalidInput, err, fmt.Sprintf("token amount %q", s))
	}
	return t, nil
}

// MarshalCBOR uses the chain big-integer form: a byte string holding a sign
// byte followed by the big-endian magnitude, or empty for zero.
func (t TokenAmount) MarshalCBOR() ([]byte, error) {
	if t.v.IsZero() {
		return encMode.Marshal([]byte{})
	}
	mag := t.v.Bytes()
	buf := make([]byte, 1+len(mag))
	copy(buf[1:], mag)
	return encMode.Marshal(buf)
}

// UnmarshalCBOR decodes the chain big-integer form. Negative values are
// rejected.
func (t *TokenAmount) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := decMode.Unmarshal(data, &b); err != nil {
		return err
	}
	if len(b) == 0 {
		*t = Zero
		return nil
	}
	switch b[0] {
	case 0:
	case 1:
		return errors.InvalidInput(errors.PhaseDecode, "negative token amount")
	default:
		return errors.InvalidInput(errors.PhaseDecode, fmt.Sprintf("big int sign byte %#x", b[0]))
	}
	if len(b)-1 > 32 {
		return errors.InvalidInput(errors.PhaseDecode, "token amount exceeds 256 bits")
	}
	var r TokenAmount
	r.v.SetBytes(b[1:])
	*t = r
	return nil
}
