package response

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/wippyai/fvm-ffi/errors"
)

func TestBuffer_ZeroLength(t *testing.T) {
	for name, b := range map[string]*Buffer{
		"nil":   NewBuffer(nil),
		"empty": NewBuffer([]byte{}),
	} {
		t.Run(name, func(t *testing.T) {
			if b.Bytes() == nil {
				t.Fatal("zero-length buffer exposes nil")
			}
			if b.Len() != 0 {
				t.Fatalf("Len = %d, want 0", b.Len())
			}
			if err := b.Release(); err != nil {
				t.Fatalf("Release: %v", err)
			}
			if b.Bytes() != nil {
				t.Fatal("released buffer still exposes bytes")
			}
		})
	}
}

func TestBuffer_ReleaseOnce(t *testing.T) {
	b := NewString("payload")
	if b.String() != "payload" {
		t.Fatalf("String = %q", b.String())
	}
	if err := b.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := b.Release(); !stderrors.Is(err, ErrReleased) {
		t.Fatalf("second Release = %v, want ErrReleased", err)
	}
	if !b.Released() {
		t.Fatal("Released = false")
	}
}

func TestBuffer_Take(t *testing.T) {
	b := NewBuffer([]byte{1, 2, 3})
	got := b.Take()
	if len(got) != 3 {
		t.Fatalf("Take = %v", got)
	}
	if b.Take() != nil {
		t.Fatal("second Take returned data")
	}
	if err := b.Release(); !stderrors.Is(err, ErrReleased) {
		t.Fatalf("Release after Take = %v, want ErrReleased", err)
	}
}

func TestBuffer_ConcurrentRelease(t *testing.T) {
	b := NewString("x")
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Release() == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("%d releases succeeded, want 1", wins)
	}
}

func TestBuffer_Nil(t *testing.T) {
	var b *Buffer
	if b.Bytes() != nil || b.Len() != 0 || !b.Released() {
		t.Fatal("nil buffer is not empty")
	}
	if err := b.Release(); err != nil {
		t.Fatalf("Release on nil = %v", err)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{errors.Construction("x", nil), StatusConstructionError},
		{errors.Decode("message", nil), StatusExecutionError},
		{errors.Execution("x", nil), StatusExecutionError},
		{errors.Flush(nil), StatusFlushError},
		{errors.Fault(errors.PhaseBoundary, "boom"), StatusUnclassified},
		{errors.MalformedTrace("x"), StatusUnclassified},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestAllocator_Destroy(t *testing.T) {
	a := NewAllocator()

	ret := NewBuffer(nil)
	r := a.Execute(&ExecuteResponse{Status: StatusOK, Return: ret})
	if r.Handle == 0 {
		t.Fatal("no handle assigned")
	}
	if a.Live() != 1 {
		t.Fatalf("Live = %d, want 1", a.Live())
	}

	if err := a.DestroyExecute(r.Handle); err != nil {
		t.Fatalf("DestroyExecute: %v", err)
	}
	if !ret.Released() {
		t.Fatal("return buffer not released on destroy")
	}
	if a.Live() != 0 {
		t.Fatalf("Live = %d, want 0", a.Live())
	}

	err := a.DestroyExecute(r.Handle)
	if errors.KindOf(err) != errors.KindInvalidHandle {
		t.Fatalf("double destroy = %v, want invalid handle", err)
	}
}

func TestAllocator_WrongShape(t *testing.T) {
	a := NewAllocator()

	c := a.CreateError(StatusConstructionError, "bad version")
	f := a.Flush(&FlushResponse{Status: StatusOK, StateRoot: NewBuffer([]byte{1})})

	if err := a.DestroyExecute(c.Handle); err == nil {
		t.Fatal("DestroyExecute accepted a create response")
	}
	if err := a.DestroyCreate(f.Handle); err == nil {
		t.Fatal("DestroyCreate accepted a flush response")
	}
	if c.Message.Released() || f.StateRoot.Released() {
		t.Fatal("rejected destroy released buffers")
	}

	if err := a.DestroyCreate(c.Handle); err != nil {
		t.Fatal(err)
	}
	if err := a.DestroyFlush(f.Handle); err != nil {
		t.Fatal(err)
	}
	if !c.Message.Released() || !f.StateRoot.Released() {
		t.Fatal("buffers not released")
	}
}

func TestAllocator_CloseReleasesLive(t *testing.T) {
	a := NewAllocator()
	r := a.ExecuteError(StatusExecutionError, "decode message")
	if r.Message.String() != "decode message" {
		t.Fatalf("Message = %q", r.Message.String())
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if !r.Message.Released() {
		t.Fatal("Close did not release live records")
	}
}
