package wrap

import (
	"context"
	"errors"
	"reflect"

	"github.com/vnykmshr/lazystream/pkg/streaming/readable"
)

var (
	// ErrUnknownDescriptor is returned from the start phase when the
	// descriptor is nil or not one of Existing, StartFunc or Hooks.
	ErrUnknownDescriptor = errors.New("wrap: unknown descriptor")

	// ErrNilSource is returned from the start phase when a descriptor
	// resolves to a nil stream without reporting an error.
	ErrNilSource = errors.New("wrap: descriptor resolved to a nil stream")
)

// Descriptor describes how a Stream obtains its backing source. The only
// implementations are Existing, StartFunc and Hooks.
type Descriptor[T any] interface {
	variant() string
	open(ctx context.Context, c *readable.Controller[T]) (readable.Readable[T], error)
}

// Existing wraps a stream that has already been constructed.
type Existing[T any] struct {
	Stream readable.Readable[T]
}

// StartFunc produces the backing stream. The controller belongs to the outer
// stream: chunks enqueued through it are delivered before any chunk of the
// returned stream.
type StartFunc[T any] func(ctx context.Context, c *readable.Controller[T]) (readable.Readable[T], error)

// Hooks is a StartFunc plus optional lifecycle notifications.
//
// Cancel runs after the backing stream was cancelled, with the consumer's
// reason. Close runs after the outer stream was marked closed because the
// backing stream was exhausted. At most one of them runs.
type Hooks[T any] struct {
	Start  StartFunc[T]
	Cancel func(ctx context.Context, reason error) error
	Close  func(ctx context.Context) error
}

func (Existing[T]) variant() string  { return "existing" }
func (StartFunc[T]) variant() string { return "start_func" }
func (Hooks[T]) variant() string     { return "hooks" }

// normalize dereferences pointer variants so dispatch only sees values.
func normalize[T any](d Descriptor[T]) Descriptor[T] {
	switch p := d.(type) {
	case *Existing[T]:
		if p != nil {
			return *p
		}
	case *Hooks[T]:
		if p != nil {
			return *p
		}
	}
	return d
}

func variantOf[T any](d Descriptor[T]) string {
	switch d.(type) {
	case Existing[T], StartFunc[T], Hooks[T]:
		return d.variant()
	default:
		return "unknown"
	}
}

func (d Existing[T]) open(context.Context, *readable.Controller[T]) (readable.Readable[T], error) {
	return d.Stream, nil
}

func (d StartFunc[T]) open(ctx context.Context, c *readable.Controller[T]) (readable.Readable[T], error) {
	if d == nil {
		return nil, ErrUnknownDescriptor
	}
	return d(ctx, c)
}

func (d Hooks[T]) open(ctx context.Context, c *readable.Controller[T]) (readable.Readable[T], error) {
	if d.Start == nil {
		return nil, ErrUnknownDescriptor
	}
	return d.Start(ctx, c)
}

func resolve[T any](ctx context.Context, d Descriptor[T], c *readable.Controller[T]) (readable.Readable[T], error) {
	switch d.(type) {
	case Existing[T], StartFunc[T], Hooks[T]:
	default:
		return nil, ErrUnknownDescriptor
	}

	src, err := d.open(ctx, c)
	if err != nil {
		return nil, err
	}
	if isNilStream[T](src) {
		return nil, ErrNilSource
	}
	return src, nil
}

// isNilStream reports whether src is nil or a nil pointer behind the interface.
func isNilStream[T any](src readable.Readable[T]) bool {
	if src == nil {
		return true
	}
	v := reflect.ValueOf(src)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
