package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/fvm-ffi/errors"
)

// Protocol is the first byte of an address and selects how its payload is read.
type Protocol byte

const (
	ProtocolID Protocol = iota
	ProtocolSecp256k1
	ProtocolActor
	ProtocolBLS
)

// ActorID is the numeric identity assigned to an actor in the state tree.
type ActorID uint64

// Address identifies an actor. It is comparable and can be used as a map key.
// The zero Address is Undef.
type Address struct {
	str string
}

// Undef is the empty, unset address.
var Undef = Address{}

// NewIDAddress returns the ID-protocol address for id.
func NewIDAddress(id ActorID) Address {
	buf := make([]byte, 1+binary.MaxVarintLen64)
	buf[0] = byte(ProtocolID)
	n := binary.PutUvarint(buf[1:], uint64(id))
	return Address{str: string(buf[:1+n])}
}

// NewAddressFromBytes validates raw address bytes.
func NewAddressFromBytes(b []byte) (Address, error) {
	if len(b) == 0 {
		return Undef, nil
	}
	payload := b[1:]
	switch Protocol(b[0]) {
	case ProtocolID:
		_, n := binary.Uvarint(payload)
		if n <= 0 || n != len(payload) {
			return Undef, errors.InvalidInput(errors.PhaseDecode, "malformed id address payload")
		}
	case ProtocolSecp256k1, ProtocolActor:
		if len(payload) != 20 {
			return Undef, errors.InvalidInput(errors.PhaseDecode,
				fmt.Sprintf("address payload length %d, want 20", len(payload)))
		}
	case ProtocolBLS:
		if len(payload) != 48 {
			return Undef, errors.InvalidInput(errors.PhaseDecode,
				fmt.Sprintf("address payload length %d, want 48", len(payload)))
		}
	default:
		return Undef, errors.Unsupported(errors.PhaseDecode, fmt.Sprintf("address protocol %d", b[0]))
	}
	return Address{str: string(b)}, nil
}

// ParseAddress parses the textual form of an ID address ("f0123" or "t0123").
func ParseAddress(s string) (Address, error) {
	if len(s) < 3 || (s[0] != 'f' && s[0] != 't') {
		return Undef, errors.InvalidInput(errors.PhaseDecode, fmt.Sprintf("malformed address %q", s))
	}
	if s[1] != '0' {
		return Undef, errors.Unsupported(errors.PhaseDecode, fmt.Sprintf("only id addresses parse from text: %q", s))
	}
	id, err := strconv.ParseUint(s[2:], 10, 64)
	if err != nil {
		return Undef, errors.Wrap(errors.PhaseDecode, errors.KindInvalidInput, err, fmt.Sprintf("malformed address %q", s))
	}
	return NewIDAddress(ActorID(id)), nil
}

// Protocol returns the address protocol. It panics on Undef.
func (a Address) Protocol() Protocol {
	return Protocol(a.str[0])
}

// Empty reports whether a is Undef.
func (a Address) Empty() bool {
	return a.str == ""
}

// ID returns the actor ID of an ID-protocol address.
func (a Address) ID() (ActorID, error) {
	if a.Empty() || a.Protocol() != ProtocolID {
		return 0, errors.InvalidInput(errors.PhaseExecute, "not an id address")
	}
	id, _ := binary.Uvarint([]byte(a.str[1:]))
	return ActorID(id), nil
}

// Bytes returns the raw address bytes.
func (a Address) Bytes() []byte {
	return []byte(a.str)
}

// String renders ID addresses as "f0<id>". Other protocols render their
// payload in hex after the protocol digit.
func (a Address) String() string {
	if a.Empty() {
		return "<empty>"
	}
	if a.Protocol() == ProtocolID {
		id, _ := a.ID()
		return "f0" + strconv.FormatUint(uint64(id), 10)
	}
	var b strings.Builder
	b.WriteByte('f')
	b.WriteString(strconv.Itoa(int(a.Protocol())))
	b.WriteString(hex.EncodeToString([]byte(a.str[1:])))
	return b.String()
}

// MarshalCBOR encodes the address as a byte string.
func (a Address) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(a.Bytes())
}

// UnmarshalCBOR decodes and validates a byte-string address.
func (a *Address) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := decMode.Unmarshal(data, &b); err != nil {
		return err
	}
	addr, err := NewAddressFromBytes(b)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}
