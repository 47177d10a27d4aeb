package superqueue

import (
	"context"
	"sync"
)

// Handle is the deferred result of a submission.
type Handle struct {
	id   string
	done chan struct{}
	once sync.Once

	result any
	err    error
}

func newHandle(id string) *Handle {
	return &Handle{id: id, done: make(chan struct{})}
}

// ID is the queue-assigned item id (also used in events and history).
func (h *Handle) ID() string { return h.id }

// Done is closed once the item has settled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the item settles or ctx ends. A canceled ctx does not
// cancel the item.
func (h *Handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve settles the handle; later calls are ignored.
func (h *Handle) resolve(result any, err error) {
	h.once.Do(func() {
		h.result = result
		h.err = err
		close(h.done)
	})
}

// Result returns the outcome without blocking; ok is false while the item is
// still pending or running.
func (h *Handle) Result() (result any, err error, ok bool) {
	select {
	case <-h.done:
		return h.result, h.err, true
	default:
		return nil, nil, false
	}
}
