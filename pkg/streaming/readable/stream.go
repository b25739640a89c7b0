package readable

import (
	"context"
	"sync"

	lserrors "github.com/vnykmshr/lazystream/pkg/common/errors"
)

// State is the externally visible state of a Stream.
type State int

const (
	// StateReadable means the stream may still produce chunks.
	StateReadable State = iota

	// StateClosed means the stream finished normally or was cancelled.
	StateClosed

	// StateErrored means the stream failed; reads return the stored error.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateReadable:
		return "readable"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// UnderlyingSource supplies the callbacks that feed a Stream.
//
// Start runs once, asynchronously, right after the stream is constructed.
// Pull runs after Start succeeds, whenever the stream wants more data; pulls
// never overlap. Cancel runs at most once, when a consumer cancels the stream,
// and may overlap an in-flight Pull. Any callback may be nil.
type UnderlyingSource[T any] struct {
	Start  func(ctx context.Context, c *Controller[T]) error
	Pull   func(ctx context.Context, c *Controller[T]) error
	Cancel func(ctx context.Context, reason error) error
}

// Stream is a pull-based readable stream.
type Stream[T any] struct {
	src      UnderlyingSource[T]
	strategy Strategy[T]
	ctrl     *Controller[T]

	// ctx is handed to Start and Pull; stop cancels it once the stream is
	// terminal and no callback is running, or once a cancel callback returns.
	ctx  context.Context
	stop context.CancelFunc

	mu             sync.Mutex
	state          State
	storedErr      error
	queue          []chunk[T]
	queueTotal     float64
	closeRequested bool
	started        bool
	pulling        bool
	pullAgain      bool
	running        int // callbacks in flight
	locked         bool
	reads          []chan readOutcome[T]
	done           chan struct{}
}

type chunk[T any] struct {
	value T
	size  float64
}

type readOutcome[T any] struct {
	result Result[T]
	err    error
}

// New creates a Stream with the default configuration and starts src.
func New[T any](src UnderlyingSource[T]) *Stream[T] {
	return NewWithConfig(src, DefaultConfig[T]())
}

// NewWithConfig creates a Stream with the specified configuration and starts src.
// Invalid strategy values are replaced with defaults.
func NewWithConfig[T any](src UnderlyingSource[T], config Config[T]) *Stream[T] {
	config = config.normalized()

	ctx, stop := context.WithCancel(context.Background())
	s := &Stream[T]{
		src:      src,
		strategy: config.Strategy,
		ctx:      ctx,
		stop:     stop,
		done:     make(chan struct{}),
		running:  1,
	}
	s.ctrl = &Controller[T]{stream: s}

	go s.runStart()

	return s
}

// GetReader locks the stream to a new reader.
// It returns ErrLocked if another reader holds the lock.
func (s *Stream[T]) GetReader() (Reader[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return nil, lserrors.ErrLocked
	}
	s.locked = true

	r := &DefaultReader[T]{}
	r.stream.Store(s)
	return r, nil
}

// Cancel cancels an unlocked stream. Use the reader's Cancel when locked.
func (s *Stream[T]) Cancel(ctx context.Context, reason error) error {
	s.mu.Lock()
	locked := s.locked
	s.mu.Unlock()

	if locked {
		return lserrors.ErrLocked
	}
	return s.cancel(ctx, reason)
}

// Locked reports whether a reader holds the stream.
func (s *Stream[T]) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// State returns the current stream state.
func (s *Stream[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error the stream failed with, if any.
func (s *Stream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storedErr
}

// Done is closed when the stream becomes closed or errored.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Stream[T]) runStart() {
	var err error
	if s.src.Start != nil {
		err = s.src.Start(s.ctx, s.ctrl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = true
	s.running--
	if err != nil {
		s.errorLocked(err)
	} else {
		s.callPullIfNeededLocked()
	}
	s.releaseIfSettledLocked()
}

func (s *Stream[T]) runPull() {
	var err error
	if s.src.Pull != nil {
		err = s.src.Pull(s.ctx, s.ctrl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pulling = false
	s.running--
	if err != nil {
		s.errorLocked(err)
	} else if s.pullAgain {
		s.pullAgain = false
		s.callPullIfNeededLocked()
	}
	s.releaseIfSettledLocked()
}

func (s *Stream[T]) cancel(ctx context.Context, reason error) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return nil
	case StateErrored:
		err := s.storedErr
		s.mu.Unlock()
		return err
	}
	s.resetQueueLocked()
	s.closeLocked()
	s.running++
	s.mu.Unlock()

	var err error
	if s.src.Cancel != nil {
		err = s.src.Cancel(ctx, reason)
	}

	// A pull still in flight is abandoned; its context is released so it
	// can unwind.
	s.mu.Lock()
	s.running--
	s.stop()
	s.mu.Unlock()

	return err
}

// shouldPullLocked mirrors ReadableStreamDefaultControllerShouldCallPull.
func (s *Stream[T]) shouldPullLocked() bool {
	if !s.started || s.closeRequested || s.state != StateReadable {
		return false
	}
	if s.locked && len(s.reads) > 0 {
		return true
	}
	return s.desiredSizeLocked() > 0
}

func (s *Stream[T]) callPullIfNeededLocked() {
	if !s.shouldPullLocked() {
		return
	}
	if s.pulling {
		s.pullAgain = true
		return
	}
	s.pulling = true
	s.running++
	go s.runPull()
}

func (s *Stream[T]) desiredSizeLocked() float64 {
	return s.strategy.HighWaterMark - s.queueTotal
}

// enqueueLocked hands value to the oldest pending read, or queues it.
func (s *Stream[T]) enqueueLocked(value T) error {
	if s.closeRequested || s.state != StateReadable {
		return lserrors.ErrClosed
	}

	if s.locked && len(s.reads) > 0 {
		req := s.reads[0]
		s.reads = s.reads[1:]
		req <- readOutcome[T]{result: Result[T]{Value: value}}
	} else {
		size := s.strategy.size(value)
		if err := validateChunkSize(size); err != nil {
			s.errorLocked(err)
			return err
		}
		s.queue = append(s.queue, chunk[T]{value: value, size: size})
		s.queueTotal += size
	}

	s.callPullIfNeededLocked()
	return nil
}

func (s *Stream[T]) dequeueLocked() T {
	c := s.queue[0]
	var zero chunk[T]
	s.queue[0] = zero
	s.queue = s.queue[1:]
	s.queueTotal -= c.size
	if len(s.queue) == 0 {
		s.queueTotal = 0
	}
	return c.value
}

func (s *Stream[T]) resetQueueLocked() {
	s.queue = nil
	s.queueTotal = 0
}

// requestCloseLocked closes now if nothing is queued, otherwise after the
// queue drains.
func (s *Stream[T]) requestCloseLocked() error {
	if s.closeRequested || s.state != StateReadable {
		return lserrors.ErrClosed
	}
	s.closeRequested = true
	if len(s.queue) == 0 {
		s.closeLocked()
		s.releaseIfSettledLocked()
	}
	return nil
}

func (s *Stream[T]) closeLocked() {
	if s.state != StateReadable {
		return
	}
	s.state = StateClosed
	for _, req := range s.reads {
		req <- readOutcome[T]{result: Result[T]{Done: true}}
	}
	s.reads = nil
	close(s.done)
}

func (s *Stream[T]) errorLocked(err error) {
	if s.state != StateReadable {
		return
	}
	s.state = StateErrored
	s.storedErr = err
	s.resetQueueLocked()
	for _, req := range s.reads {
		req <- readOutcome[T]{err: err}
	}
	s.reads = nil
	close(s.done)
	s.releaseIfSettledLocked()
}

// releaseIfSettledLocked cancels the callback context once the stream is
// terminal and no callback can still be using it.
func (s *Stream[T]) releaseIfSettledLocked() {
	if s.state != StateReadable && s.running == 0 {
		s.stop()
	}
}

func (s *Stream[T]) removeReadLocked(req chan readOutcome[T]) bool {
	for i, r := range s.reads {
		if r == req {
			s.reads = append(s.reads[:i], s.reads[i+1:]...)
			return true
		}
	}
	return false
}
