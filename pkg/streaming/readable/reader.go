package readable

import (
	"context"
	"sync/atomic"

	lserrors "github.com/vnykmshr/lazystream/pkg/common/errors"
)

// Result is the outcome of a single read. Done reports exhaustion; Value is
// the zero value then.
type Result[T any] struct {
	Value T
	Done  bool
}

// Readable is anything a Reader can be acquired from. *Stream implements it;
// other stream implementations can too.
type Readable[T any] interface {
	GetReader() (Reader[T], error)
}

// Reader is an exclusive read handle on a Readable.
type Reader[T any] interface {
	// Read returns the next chunk, or Done once the stream is exhausted.
	Read(ctx context.Context) (Result[T], error)

	// Cancel cancels the underlying stream with reason.
	Cancel(ctx context.Context, reason error) error

	// ReleaseLock detaches the reader so another one can be acquired.
	ReleaseLock()
}

var (
	_ Readable[int] = (*Stream[int])(nil)
	_ Reader[int]   = (*DefaultReader[int])(nil)
)

// DefaultReader is the Reader returned by Stream.GetReader.
type DefaultReader[T any] struct {
	stream atomic.Pointer[Stream[T]]
}

// Read returns the next chunk. It blocks until a chunk is available, the
// stream ends, or ctx is done. A read abandoned through ctx never consumes a
// chunk.
func (r *DefaultReader[T]) Read(ctx context.Context) (Result[T], error) {
	s := r.stream.Load()
	if s == nil {
		return Result[T]{}, lserrors.ErrReleased
	}

	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return Result[T]{Done: true}, nil
	case StateErrored:
		err := s.storedErr
		s.mu.Unlock()
		return Result[T]{}, err
	}

	if len(s.queue) > 0 {
		value := s.dequeueLocked()
		if s.closeRequested && len(s.queue) == 0 {
			s.closeLocked()
			s.releaseIfSettledLocked()
		} else {
			s.callPullIfNeededLocked()
		}
		s.mu.Unlock()
		return Result[T]{Value: value}, nil
	}

	req := make(chan readOutcome[T], 1)
	s.reads = append(s.reads, req)
	s.callPullIfNeededLocked()
	s.mu.Unlock()

	select {
	case out := <-req:
		return out.result, out.err
	case <-ctx.Done():
		s.mu.Lock()
		removed := s.removeReadLocked(req)
		s.mu.Unlock()
		if !removed {
			// Fulfilled concurrently; hand the outcome back rather than drop it.
			out := <-req
			return out.result, out.err
		}
		return Result[T]{}, ctx.Err()
	}
}

// Cancel cancels the stream the reader is locked to.
func (r *DefaultReader[T]) Cancel(ctx context.Context, reason error) error {
	s := r.stream.Load()
	if s == nil {
		return lserrors.ErrReleased
	}
	return s.cancel(ctx, reason)
}

// ReleaseLock unlocks the stream. Pending reads fail with ErrReleased.
// Calling it more than once is a no-op.
func (r *DefaultReader[T]) ReleaseLock() {
	s := r.stream.Swap(nil)
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, req := range s.reads {
		req <- readOutcome[T]{err: lserrors.ErrReleased}
	}
	s.reads = nil
	s.locked = false
}

// Closed is closed when the stream becomes closed or errored.
func (r *DefaultReader[T]) Closed() <-chan struct{} {
	s := r.stream.Load()
	if s == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}
