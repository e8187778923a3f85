package response

import (
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/resource"
)

const (
	typeCreate resource.TypeID = iota + 1
	typeExecute
	typeFlush
)

// Allocator hands out result records and destroys them by handle. A destroy
// with a stale handle, or with the handle of a different record shape, is
// rejected rather than touching memory twice.
type Allocator struct {
	table    *resource.UnifiedTable
	creates  *resource.Typed[*CreateResponse]
	executes *resource.Typed[*ExecuteResponse]
	flushes  *resource.Typed[*FlushResponse]
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	t := resource.NewTable()
	return &Allocator{
		table:    t,
		creates:  resource.NewTyped[*CreateResponse](t, typeCreate),
		executes: resource.NewTyped[*ExecuteResponse](t, typeExecute),
		flushes:  resource.NewTyped[*FlushResponse](t, typeFlush),
	}
}

// Create registers r and returns it with its handle set.
func (a *Allocator) Create(r *CreateResponse) *CreateResponse {
	r.Handle = a.creates.Insert(r)
	return r
}

// Execute registers r and returns it with its handle set.
func (a *Allocator) Execute(r *ExecuteResponse) *ExecuteResponse {
	r.Handle = a.executes.Insert(r)
	return r
}

// Flush registers r and returns it with its handle set.
func (a *Allocator) Flush(r *FlushResponse) *FlushResponse {
	r.Handle = a.flushes.Insert(r)
	return r
}

// CreateError builds a failed CreateResponse.
func (a *Allocator) CreateError(status Status, msg string) *CreateResponse {
	return a.Create(&CreateResponse{Status: status, Message: NewString(msg)})
}

// ExecuteError builds a failed ExecuteResponse.
func (a *Allocator) ExecuteError(status Status, msg string) *ExecuteResponse {
	return a.Execute(&ExecuteResponse{Status: status, Message: NewString(msg)})
}

// FlushError builds a failed FlushResponse.
func (a *Allocator) FlushError(status Status, msg string) *FlushResponse {
	return a.Flush(&FlushResponse{Status: status, Message: NewString(msg)})
}

// DestroyCreate releases the CreateResponse registered under h.
func (a *Allocator) DestroyCreate(h resource.Handle) error {
	return destroy(a.creates, h)
}

// DestroyExecute releases the ExecuteResponse registered under h.
func (a *Allocator) DestroyExecute(h resource.Handle) error {
	return destroy(a.executes, h)
}

// DestroyFlush releases the FlushResponse registered under h.
func (a *Allocator) DestroyFlush(h resource.Handle) error {
	return destroy(a.flushes, h)
}

func destroy[T any](t *resource.Typed[T], h resource.Handle) error {
	if _, ok := t.Remove(h); !ok {
		return errors.InvalidHandle(errors.PhaseBoundary, uint64(h))
	}
	return nil
}

// Live returns the number of records not yet destroyed.
func (a *Allocator) Live() int {
	return a.table.Len()
}

// Close releases every live record.
func (a *Allocator) Close() error {
	return a.table.Close()
}
