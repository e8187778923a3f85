package trace

// Walk visits f and its descendants in pre-order. depth is 1 for f.
// Returning false from fn skips that frame's children.
func Walk(f *CallFrame, fn func(depth int, f *CallFrame) bool) {
	if f == nil {
		return
	}

	type item struct {
		f     *CallFrame
		depth int
	}
	stack := []item{{f, 1}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(it.depth, it.f) {
			continue
		}
		for i := len(it.f.Subcalls) - 1; i >= 0; i-- {
			stack = append(stack, item{it.f.Subcalls[i], it.depth + 1})
		}
	}
}

// Count returns the number of frames below f.
func Count(f *CallFrame) int {
	if f == nil {
		return 0
	}
	n := 0
	Walk(f, func(int, *CallFrame) bool {
		n++
		return true
	})
	return n - 1
}

// Depth returns the height of the tree rooted at f; a lone frame has depth 1.
func Depth(f *CallFrame) int {
	deepest := 0
	Walk(f, func(d int, _ *CallFrame) bool {
		if d > deepest {
			deepest = d
		}
		return true
	})
	return deepest
}
