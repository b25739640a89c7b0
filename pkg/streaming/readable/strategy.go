package readable

import (
	"math"

	"github.com/vnykmshr/lazystream/pkg/common/validation"
)

// DefaultHighWaterMark is the queue size a stream tries to keep filled.
const DefaultHighWaterMark = 1

// Strategy decides how much a stream buffers ahead of its reader.
//
// The stream keeps pulling while the total size of queued chunks is below
// HighWaterMark. Size measures one chunk; nil counts every chunk as 1.
type Strategy[T any] struct {
	HighWaterMark float64
	Size          func(chunk T) float64
}

// CountStrategy buffers up to hwm chunks regardless of their size.
func CountStrategy[T any](hwm float64) Strategy[T] {
	return Strategy[T]{HighWaterMark: hwm}
}

// ByteLengthStrategy buffers up to hwm bytes.
func ByteLengthStrategy(hwm float64) Strategy[[]byte] {
	return Strategy[[]byte]{
		HighWaterMark: hwm,
		Size:          func(chunk []byte) float64 { return float64(len(chunk)) },
	}
}

func (s Strategy[T]) size(chunk T) float64 {
	if s.Size == nil {
		return 1
	}
	return s.Size(chunk)
}

// Config holds configuration for a Stream.
type Config[T any] struct {
	// Strategy controls read-ahead buffering.
	Strategy Strategy[T]
}

// DefaultConfig returns a configuration with a count strategy of DefaultHighWaterMark.
func DefaultConfig[T any]() Config[T] {
	return Config[T]{Strategy: CountStrategy[T](DefaultHighWaterMark)}
}

// Validate reports configuration values NewWithConfig would replace with defaults.
func (c Config[T]) Validate() error {
	return validation.ValidateNonNegative("readable", "high_water_mark", c.Strategy.HighWaterMark)
}

func (c Config[T]) normalized() Config[T] {
	hwm := c.Strategy.HighWaterMark
	if math.IsNaN(hwm) || hwm < 0 {
		c.Strategy.HighWaterMark = DefaultHighWaterMark
	}
	return c
}
