package wrap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	lserrors "github.com/vnykmshr/lazystream/pkg/common/errors"
	"github.com/vnykmshr/lazystream/pkg/metrics"
	"github.com/vnykmshr/lazystream/pkg/streaming/readable"
)

// Phase is the lifecycle position of a Stream.
type Phase int32

const (
	// PhaseConstructed means the start phase has not run yet.
	PhaseConstructed Phase = iota

	// PhaseResolving means the descriptor is being resolved.
	PhaseResolving

	// PhaseBound means the source is assigned and its reader acquired.
	PhaseBound

	// PhaseClosing means the source is exhausted and the close hook is running.
	PhaseClosing

	// PhaseCancelling means a consumer cancellation is being forwarded.
	PhaseCancelling

	// PhaseTerminal means the stream closed, was cancelled or failed.
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhaseConstructed:
		return "constructed"
	case PhaseResolving:
		return "resolving"
	case PhaseBound:
		return "bound"
	case PhaseClosing:
		return "closing"
	case PhaseCancelling:
		return "cancelling"
	case PhaseTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Config holds configuration for a Stream.
type Config[T any] struct {
	// Strategy is the queuing strategy of the outer stream.
	Strategy readable.Strategy[T]

	// Name labels log lines and metrics.
	Name string

	// Logger receives lifecycle events at V(1) and failures. The zero value discards.
	Logger logr.Logger

	// Metrics records resolutions, forwarded items and terminations. Nil disables recording.
	Metrics *metrics.Registry
}

// DefaultConfig returns a configuration with the readable package's default
// strategy and no instrumentation.
func DefaultConfig[T any]() Config[T] {
	return Config[T]{
		Strategy: readable.DefaultConfig[T]().Strategy,
		Name:     "default",
		Logger:   logr.Discard(),
	}
}

// Stream is a readable stream whose backing source is resolved after
// construction. It embeds the outer *readable.Stream, so consumers use it
// like any other stream; reads wait until the source is bound.
type Stream[T any] struct {
	*readable.Stream[T]

	desc    Descriptor[T]
	hooks   Hooks[T]
	variant string
	name    string
	log     logr.Logger
	metrics *metrics.Registry

	phase     atomic.Int32
	bound     chan struct{}
	terminate sync.Once

	mu              sync.Mutex
	settled         bool // resolution finished, successfully or not
	counted         bool // included in the BoundStreams gauge
	source          readable.Readable[T]
	reader          readable.Reader[T]
	resolveErr      error
	closeErr        error
	abort           context.CancelFunc
	aborted         bool // resolution gave up because of a cancellation
	cancelRequested bool
	cancelAbandoned bool // the cancelling caller stopped waiting
	cancelReason    error
}

// New creates a Stream for d with the default configuration.
func New[T any](d Descriptor[T]) *Stream[T] {
	return NewWithConfig[T](d, DefaultConfig[T]())
}

// NewWithConfig creates a Stream for d. It never fails: a descriptor that
// cannot be resolved makes the stream errored once the start phase runs.
func NewWithConfig[T any](d Descriptor[T], config Config[T]) *Stream[T] {
	d = normalize[T](d)
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}
	if config.Name == "" {
		config.Name = "default"
	}

	w := &Stream[T]{
		desc:    d,
		variant: variantOf[T](d),
		name:    config.Name,
		metrics: config.Metrics,
		bound:   make(chan struct{}),
	}
	if h, ok := d.(Hooks[T]); ok {
		w.hooks = h
	}
	w.log = config.Logger.WithValues("stream", w.name, "variant", w.variant)

	// The callbacks close over w; they only touch fields set above, so the
	// start goroutine may run before the assignment below completes.
	w.Stream = readable.NewWithConfig(readable.UnderlyingSource[T]{
		Start:  w.start,
		Pull:   w.pull,
		Cancel: w.cancel,
	}, readable.Config[T]{Strategy: config.Strategy})

	return w
}

// Readable returns the resolved source, or nil until resolution completes.
func (w *Stream[T]) Readable() readable.Readable[T] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.source
}

// Bound is closed once resolution finishes, successfully or not.
func (w *Stream[T]) Bound() <-chan struct{} {
	return w.bound
}

// Phase returns the current lifecycle phase.
func (w *Stream[T]) Phase() Phase {
	return Phase(w.phase.Load())
}

// CloseErr returns the error returned by the close hook, if it ran and failed.
func (w *Stream[T]) CloseErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeErr
}

func (w *Stream[T]) setPhase(p Phase) {
	w.phase.Store(int32(p))
}

func (w *Stream[T]) start(ctx context.Context, c *readable.Controller[T]) error {
	w.setPhase(PhaseResolving)
	w.log.V(1).Info("resolving source")
	began := time.Now()

	// A cancellation that arrives before binding aborts the resolution
	// through rctx; it is released in finish.
	rctx, abort := context.WithCancel(ctx)
	w.mu.Lock()
	w.abort = abort
	if w.cancelRequested {
		abort()
	}
	w.mu.Unlock()

	src, err := resolve(rctx, w.desc, c)
	if err != nil {
		w.settle(rctx, nil, nil, err, began)
		return err
	}

	reader, err := src.GetReader()
	if err != nil {
		w.log.Error(err, "acquiring source reader failed")
		w.settle(rctx, src, nil, err, began)
		return err
	}

	w.settle(rctx, src, reader, nil, began)

	w.mu.Lock()
	abandoned, reason := w.cancelAbandoned, w.cancelReason
	w.mu.Unlock()
	if abandoned {
		// The consumer cancelled while resolution was running and stopped
		// waiting; ctx is already released by then.
		if err := w.forwardCancel(context.WithoutCancel(ctx), reader, reason); err != nil {
			w.log.Error(err, "deferred cancellation failed")
		}
	}
	return nil
}

// settle records the outcome of resolution and releases Bound waiters. A
// failure caused by a queued cancellation ends the stream as cancelled.
func (w *Stream[T]) settle(rctx context.Context, src readable.Readable[T], reader readable.Reader[T], err error, began time.Time) {
	w.mu.Lock()
	w.settled = true
	w.source = src
	w.reader = reader
	w.resolveErr = err
	aborted := err != nil && w.cancelRequested && rctx.Err() != nil && errors.Is(err, context.Canceled)
	w.aborted = aborted
	w.counted = err == nil && w.metrics != nil
	w.mu.Unlock()

	switch {
	case aborted:
		w.log.V(1).Info("resolution aborted by cancellation")
		w.recordResolution("cancelled", began)
		w.finish("cancelled")
	case err != nil:
		if src == nil {
			w.log.Error(err, "source resolution failed")
		}
		w.recordResolution("error", began)
		w.finish("failed")
	default:
		w.recordResolution("ok", began)
		w.setPhase(PhaseBound)
		w.log.V(1).Info("source bound", "resolveDuration", time.Since(began))
		if w.metrics != nil {
			w.metrics.BoundStreams.WithLabelValues(w.name).Inc()
		}
	}
	close(w.bound)
}

// boundReader returns the reader slot. Before resolution settles it reports
// ErrNotBound; after a failed resolution it reports that failure.
func (w *Stream[T]) boundReader() (readable.Reader[T], error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case !w.settled:
		return nil, lserrors.ErrNotBound
	case w.resolveErr != nil:
		return nil, w.resolveErr
	case w.reader == nil:
		return nil, lserrors.ErrNotBound
	}
	return w.reader, nil
}

func (w *Stream[T]) pull(ctx context.Context, c *readable.Controller[T]) error {
	reader, err := w.boundReader()
	if err != nil {
		return err
	}

	res, err := reader.Read(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.recordError("read")
			w.log.Error(err, "source read failed")
			w.finish("errored")
		}
		return err
	}

	if !res.Done {
		if err := c.Enqueue(res.Value); err != nil {
			if !errors.Is(err, lserrors.ErrClosed) {
				w.recordError("enqueue")
				w.log.Error(err, "forwarding chunk failed")
				w.finish("errored")
			}
			return err
		}
		if w.metrics != nil {
			w.metrics.ItemsForwarded.WithLabelValues(w.name).Inc()
		}
		return nil
	}

	// Fails when the consumer cancelled concurrently; the cancel path owns
	// termination then and the close hook must not run.
	if err := c.Close(); err != nil {
		return err
	}
	w.setPhase(PhaseClosing)
	w.log.V(1).Info("source exhausted")

	var hookErr error
	if w.hooks.Close != nil {
		hookErr = w.hooks.Close(ctx)
	}
	if hookErr != nil {
		w.mu.Lock()
		w.closeErr = hookErr
		w.mu.Unlock()
		w.recordError("close_hook")
		w.log.Error(hookErr, "close hook failed")
	}
	w.finish("closed")
	return hookErr
}

func (w *Stream[T]) cancel(ctx context.Context, reason error) error {
	w.mu.Lock()
	if !w.settled {
		w.cancelRequested = true
		w.cancelReason = reason
		if w.abort != nil {
			w.abort()
		}
	}
	w.mu.Unlock()

	select {
	case <-w.bound:
	case <-ctx.Done():
		w.mu.Lock()
		if !w.settled {
			w.cancelAbandoned = true
			w.mu.Unlock()
			w.log.V(1).Info("cancellation queued until source is bound")
			return ctx.Err()
		}
		w.mu.Unlock()
	}

	w.mu.Lock()
	aborted := w.aborted
	w.mu.Unlock()
	if aborted {
		return nil
	}

	reader, err := w.boundReader()
	if err != nil {
		return err
	}
	return w.forwardCancel(ctx, reader, reason)
}

func (w *Stream[T]) forwardCancel(ctx context.Context, reader readable.Reader[T], reason error) error {
	w.setPhase(PhaseCancelling)
	w.log.V(1).Info("cancelling source", "reason", reason)
	defer w.finish("cancelled")

	if err := reader.Cancel(ctx, reason); err != nil {
		w.recordError("cancel")
		return err
	}
	if w.hooks.Cancel == nil {
		return nil
	}
	if err := w.hooks.Cancel(ctx, reason); err != nil {
		w.recordError("cancel_hook")
		w.log.Error(err, "cancel hook failed")
		return err
	}
	return nil
}

// finish moves the stream to PhaseTerminal once, recording how it got there.
func (w *Stream[T]) finish(path string) {
	w.terminate.Do(func() {
		w.mu.Lock()
		abort, counted := w.abort, w.counted
		w.mu.Unlock()
		if abort != nil {
			abort()
		}

		w.setPhase(PhaseTerminal)
		w.log.V(1).Info("stream terminal", "path", path)
		if w.metrics == nil {
			return
		}
		w.metrics.Terminations.WithLabelValues(w.name, path).Inc()
		if counted {
			w.metrics.BoundStreams.WithLabelValues(w.name).Dec()
		}
	})
}
