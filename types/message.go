package types

import (
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/exitcode"
)

// MethodNum selects the entry point invoked on the receiving actor.
type MethodNum uint64

// MethodSend is the plain value transfer with no actor code invoked.
const MethodSend MethodNum = 0

// ChainEpoch is a chain height.
type ChainEpoch int64

// Message is a chain message in its canonical tuple encoding.
type Message struct {
	_          struct{} `cbor:",toarray"`
	Version    uint64
	To         Address
	From       Address
	Nonce      uint64
	Value      TokenAmount
	GasLimit   int64
	GasFeeCap  TokenAmount
	GasPremium TokenAmount
	Method     MethodNum
	Params     []byte
}

// DecodeMessage decodes a message from its canonical bytes.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := Unmarshal(data, &m); err != nil {
		return nil, errors.Decode("message", err)
	}
	if m.To.Empty() || m.From.Empty() {
		return nil, errors.Decode("message", errors.InvalidInput(errors.PhaseDecode, "missing sender or receiver"))
	}
	return &m, nil
}

// Bytes returns the canonical encoding.
func (m *Message) Bytes() ([]byte, error) {
	return Marshal(m)
}

// Receipt is the result recorded for an applied message.
type Receipt struct {
	_        struct{} `cbor:",toarray"`
	ExitCode exitcode.ExitCode
	Return   []byte
	GasUsed  int64
}

// ApplyKind distinguishes externally submitted messages from messages the
// system applies on its own behalf.
type ApplyKind uint8

const (
	ApplyExplicit ApplyKind = iota
	ApplyImplicit
)

// ApplyKindFromWire maps the boundary encoding: 0 is explicit, anything
// else is implicit.
func ApplyKindFromWire(v uint64) ApplyKind {
	if v == 0 {
		return ApplyExplicit
	}
	return ApplyImplicit
}

func (k ApplyKind) String() string {
	if k == ApplyExplicit {
		return "explicit"
	}
	return "implicit"
}
