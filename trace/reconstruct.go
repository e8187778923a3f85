package trace

import (
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/exitcode"
	"github.com/wippyai/fvm-ffi/types"
)

// Reconstruct folds a pre-order Call/Return stream into a call tree.
//
// Each Call opens a frame that becomes a child of the innermost open frame;
// each Return seals the innermost open frame. The whole stream must describe
// exactly one root call. An empty stream yields (nil, nil), meaning no trace
// was recorded.
//
// Frames are tracked on an explicit stack, so nesting depth is bounded by
// memory rather than by the goroutine stack.
func Reconstruct(events []Event) (*CallFrame, error) {
	if len(events) == 0 {
		return nil, nil
	}

	var (
		root  *CallFrame
		stack []*CallFrame
	)

	for i, ev := range events {
		if root != nil && len(stack) == 0 {
			return nil, errors.MalformedTrace("%d events after the root call returned", len(events)-i)
		}

		switch e := ev.(type) {
		case Call:
			f := openFrame(e)
			if len(stack) == 0 {
				root = f
			} else {
				parent := stack[len(stack)-1]
				parent.Subcalls = append(parent.Subcalls, f)
			}
			stack = append(stack, f)

		case Return:
			if len(stack) == 0 {
				return nil, errors.MalformedTrace("return at index %d has no open call", i)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := seal(top, e.Outcome); err != nil {
				return nil, errors.New(errors.PhaseTrace, errors.KindMalformedTrace).
					Cause(err).
					Detail("return at index %d", i).
					Build()
			}

		default:
			return nil, errors.MalformedTrace("unknown event %T at index %d", ev, i)
		}
	}

	if len(stack) > 0 {
		return nil, errors.MalformedTrace("stream ended with %d calls still open", len(stack))
	}
	return root, nil
}

func openFrame(c Call) *CallFrame {
	return &CallFrame{
		Msg: types.Message{
			From:   types.NewIDAddress(c.From),
			To:     c.To,
			Value:  c.Value,
			Method: c.Method,
			Params: c.Params,
		},
		Receipt:  types.Receipt{ExitCode: exitcode.OK},
		Subcalls: []*CallFrame{},
	}
}

func seal(f *CallFrame, o Outcome) error {
	switch o.Kind {
	case OutcomeSuccess:
		if o.Code != exitcode.OK {
			return errors.InvalidInput(errors.PhaseTrace, "success outcome with exit code "+o.Code.String())
		}
		f.Receipt = types.Receipt{ExitCode: exitcode.OK, Return: o.Data}

	case OutcomeFailure:
		if o.Code.IsSuccess() {
			return errors.InvalidInput(errors.PhaseTrace, "actor failed with status OK")
		}
		f.Receipt = types.Receipt{ExitCode: o.Code}

	case OutcomeDispatchError:
		code, err := exitcode.FromDispatchError(o.Number)
		if err != nil {
			return err
		}
		f.Receipt = types.Receipt{ExitCode: code}
		f.Error = o.Message

	default:
		return errors.InvalidInput(errors.PhaseTrace, "unknown outcome "+o.Kind.String())
	}
	return nil
}
