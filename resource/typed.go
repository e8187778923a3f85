package resource

// Typed is a TypedTable view over a shared UnifiedTable. Several views with
// distinct type IDs can share one table and one handle space.
type Typed[T any] struct {
	table  *UnifiedTable
	typeID TypeID
}

// NewTyped returns a view of table restricted to values tagged typeID.
func NewTyped[T any](table *UnifiedTable, typeID TypeID) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// Insert adds a value and returns its handle.
func (t *Typed[T]) Insert(value T) Handle {
	return t.table.Insert(t.typeID, value)
}

// Get retrieves a value by handle.
func (t *Typed[T]) Get(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Remove drops a resource and returns (value, true) if found.
func (t *Typed[T]) Remove(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.RemoveTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	typed, _ := v.(T)
	return typed, true
}

// Len returns the number of active resources of this type.
func (t *Typed[T]) Len() int {
	n := 0
	t.table.Each(func(_ Handle, id TypeID, _ any) bool {
		if id == t.typeID {
			n++
		}
		return true
	})
	return n
}

// Each iterates over all active resources of this type.
func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.table.Each(func(h Handle, id TypeID, v any) bool {
		if id != t.typeID {
			return true
		}
		typed, ok := v.(T)
		if !ok {
			return true
		}
		return fn(h, typed)
	})
}

var _ TypedTable[int] = (*Typed[int])(nil)
var _ Table = (*UnifiedTable)(nil)
var _ Backend = (*LocalBackend)(nil)
