/*
Package wrap provides a readable stream whose backing source is resolved
after construction.

A Stream is usable immediately: consumers can acquire a reader and start
reading while the source is still being produced. Reads simply wait until the
source is bound. The source is described by one of three descriptors:

	// An already constructed stream.
	s := wrap.New[int](wrap.Existing[int]{Stream: readable.FromSlice([]int{1, 2, 3})})

	// A function that builds the stream, run in the background.
	s := wrap.New[string](wrap.StartFunc[string](func(ctx context.Context, c *readable.Controller[string]) (readable.Readable[string], error) {
		return openLog(ctx)
	}))

	// The same, plus notifications when the stream is cancelled or exhausted.
	s := wrap.New[string](wrap.Hooks[string]{
		Start:  open,
		Cancel: func(ctx context.Context, reason error) error { return conn.Close() },
		Close:  func(ctx context.Context) error { return conn.Close() },
	})

Chunks pass through unchanged and in order. A failure to resolve the source,
or a failure reading from it, errors the stream with that exact error value.

# Cancellation

Cancelling the stream cancels the bound source with the same reason and then
runs the Cancel hook. If the source is still being resolved, the context
passed to the start function is cancelled and cancellation waits for the
resolution to finish. A start function that returns the context's error ends
the stream as cancelled; one that returns a source anyway has it cancelled.
When the caller's context expires first, the cancellation is queued and
applied as soon as the source is bound.

# Lifecycle

Phase reports where a stream is:

	Constructed -> Resolving -> Bound -> Closing | Cancelling -> Terminal

A resolution failure, or a resolution aborted by cancellation, moves
straight from Resolving to Terminal.

# Observability

Config.Logger receives lifecycle events at V(1) and failures through Error.
Config.Metrics records resolutions, forwarded items, failures and
terminations in a metrics.Registry.
*/
package wrap
