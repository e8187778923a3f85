package trace

import (
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/types"
)

// CallFrame is one node of a reconstructed execution trace. Its encoding is
// the tuple (message, receipt, error, subcalls) expected by chain clients.
type CallFrame struct {
	_        struct{} `cbor:",toarray"`
	Msg      types.Message
	Receipt  types.Receipt
	Error    string
	Subcalls []*CallFrame
}

// Encode serializes the tree rooted at f.
func Encode(f *CallFrame) ([]byte, error) {
	if f == nil {
		return nil, errors.InvalidInput(errors.PhaseTrace, "encode nil frame")
	}
	data, err := types.Marshal(f)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseTrace, errors.KindInvalidInput, err, "encode trace")
	}
	return data, nil
}

// Decode parses a tree produced by Encode.
func Decode(data []byte) (*CallFrame, error) {
	var f CallFrame
	if err := types.Unmarshal(data, &f); err != nil {
		return nil, errors.Decode("trace", err)
	}
	return &f, nil
}
