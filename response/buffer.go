package response

import (
	"sync/atomic"

	"github.com/wippyai/fvm-ffi/errors"
)

// ErrReleased is returned when a buffer is released a second time.
var ErrReleased = &errors.Error{
	Phase:  errors.PhaseBoundary,
	Kind:   errors.KindInvalidHandle,
	Detail: "buffer already released",
}

// Buffer is an owned byte region handed to the caller. It is moved, never
// copied: Take moves the bytes out and Release gives the region up, and
// either may happen only once.
//
// A zero-length Buffer is a real value. Bytes returns a non-nil empty slice
// for it until release.
type Buffer struct {
	data     []byte
	released atomic.Bool
}

// NewBuffer takes ownership of data. The caller must not touch data
// afterwards.
func NewBuffer(data []byte) *Buffer {
	if data == nil {
		data = []byte{}
	}
	return &Buffer{data: data}
}

// NewString returns a Buffer holding s.
func NewString(s string) *Buffer {
	return NewBuffer([]byte(s))
}

// Bytes returns the region, or nil once released. A nil Buffer has no bytes.
func (b *Buffer) Bytes() []byte {
	if b == nil || b.released.Load() {
		return nil
	}
	return b.data
}

// String returns the region as text.
func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Len returns the region length.
func (b *Buffer) Len() int {
	return len(b.Bytes())
}

// Released reports whether the buffer was released or taken.
func (b *Buffer) Released() bool {
	return b == nil || b.released.Load()
}

// Take moves the bytes out of the buffer. The buffer counts as released
// afterwards. It returns nil if the buffer was already released.
func (b *Buffer) Take() []byte {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return nil
	}
	data := b.data
	b.data = nil
	return data
}

// Release gives up the region. Only the first call succeeds; later calls
// return ErrReleased. Releasing a nil Buffer is a no-op.
func (b *Buffer) Release() error {
	if b == nil {
		return nil
	}
	if !b.released.CompareAndSwap(false, true) {
		return ErrReleased
	}
	b.data = nil
	return nil
}
