package readable

import (
	"math"

	lserrors "github.com/vnykmshr/lazystream/pkg/common/errors"
)

// Controller lets an UnderlyingSource push chunks into its Stream and
// signal closure or failure. It is safe for concurrent use.
type Controller[T any] struct {
	stream *Stream[T]
}

// Enqueue delivers chunk to a waiting read or appends it to the queue.
// It returns ErrClosed once Close was called or the stream is terminal.
func (c *Controller[T]) Enqueue(chunk T) error {
	s := c.stream
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enqueueLocked(chunk)
}

// Close marks the stream as finished. Queued chunks remain readable; the
// stream reports done after they drain.
func (c *Controller[T]) Close() error {
	s := c.stream
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestCloseLocked()
}

// Error fails the stream with err. Pending and future reads return err.
// It is a no-op on a stream that is already closed or errored.
func (c *Controller[T]) Error(err error) {
	s := c.stream
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorLocked(err)
}

// DesiredSize returns how much more the stream wants buffered. It is 0 once
// the stream is closed or errored and negative when the queue is over the high-water mark.
func (c *Controller[T]) DesiredSize() float64 {
	s := c.stream
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReadable {
		return 0
	}
	return s.desiredSizeLocked()
}

func validateChunkSize(size float64) error {
	if math.IsNaN(size) || math.IsInf(size, 1) || size < 0 {
		return lserrors.NewValidationError("readable", "chunk_size", size, "must be a finite non-negative number")
	}
	return nil
}
