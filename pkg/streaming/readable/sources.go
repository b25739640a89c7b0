package readable

import (
	"context"
	"errors"
	"io"
)

// DefaultChunkSize is the read size used by FromReader when none is given.
const DefaultChunkSize = 32 * 1024

// Iterator is a pull-style producer. Next returns false once it is exhausted.
// Close releases its resources; it may be called while Next is blocked.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// FromSlice creates a Stream that yields the elements of slice in order.
func FromSlice[T any](slice []T) *Stream[T] {
	var index int
	return New(UnderlyingSource[T]{
		Pull: func(_ context.Context, c *Controller[T]) error {
			if index >= len(slice) {
				return c.Close()
			}
			value := slice[index]
			index++
			return c.Enqueue(value)
		},
	})
}

// FromChannel creates a Stream that yields values received from ch until it
// is closed.
func FromChannel[T any](ch <-chan T) *Stream[T] {
	return New(UnderlyingSource[T]{
		Pull: func(ctx context.Context, c *Controller[T]) error {
			select {
			case value, ok := <-ch:
				if !ok {
					return c.Close()
				}
				return c.Enqueue(value)
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

// FromIterator creates a Stream backed by it. The iterator is closed when it
// is exhausted, fails, or the stream is cancelled.
func FromIterator[T any](it Iterator[T]) *Stream[T] {
	return New(UnderlyingSource[T]{
		Pull: func(ctx context.Context, c *Controller[T]) error {
			value, ok, err := it.Next(ctx)
			if err != nil {
				_ = it.Close()
				return err
			}
			if !ok {
				if err := c.Close(); err != nil {
					return err
				}
				return it.Close()
			}
			return c.Enqueue(value)
		},
		Cancel: func(context.Context, error) error {
			return it.Close()
		},
	})
}

// FromReader creates a byte Stream that reads r in chunks of at most
// chunkSize bytes. Each chunk is a fresh slice. If r is an io.Closer it is
// closed when the stream is cancelled.
func FromReader(r io.Reader, chunkSize int) *Stream[[]byte] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return NewWithConfig(UnderlyingSource[[]byte]{
		Pull: func(_ context.Context, c *Controller[[]byte]) error {
			buf := make([]byte, chunkSize)
			n, err := r.Read(buf)
			for n == 0 && err == nil {
				n, err = r.Read(buf)
			}
			if n > 0 {
				if qerr := c.Enqueue(buf[:n]); qerr != nil {
					return qerr
				}
			}
			switch {
			case errors.Is(err, io.EOF):
				return c.Close()
			case err != nil:
				return err
			}
			return nil
		},
		Cancel: func(context.Context, error) error {
			if closer, ok := r.(io.Closer); ok {
				return closer.Close()
			}
			return nil
		},
	}, Config[[]byte]{Strategy: ByteLengthStrategy(float64(chunkSize))})
}

// Collect drains src and returns every chunk it produced. It holds the
// reader lock for the duration and releases it before returning.
func Collect[T any](ctx context.Context, src Readable[T]) ([]T, error) {
	reader, err := src.GetReader()
	if err != nil {
		return nil, err
	}
	defer reader.ReleaseLock()

	var items []T
	for {
		res, err := reader.Read(ctx)
		if err != nil {
			return items, err
		}
		if res.Done {
			return items, nil
		}
		items = append(items, res.Value)
	}
}
