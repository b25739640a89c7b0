package testutil

import (
	"context"
	"sync"
	"testing"
	"time"
)

// MockClock is a controllable clock for schedule tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock starting at the given time.
// If zero time is provided, uses current time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// After advances the clock by d and returns a channel that already holds
// the new time, so waits complete immediately and deterministically.
func (m *MockClock) After(d time.Duration) <-chan time.Time {
	m.Advance(d)
	ch := make(chan time.Time, 1)
	ch <- m.Now()
	return ch
}

// CallbackTracker records invocations of a hook.
type CallbackTracker struct {
	mu    sync.Mutex
	count int
	value interface{}
}

// NewCallbackTracker creates an empty tracker.
func NewCallbackTracker() *CallbackTracker {
	return &CallbackTracker{}
}

// Mark records a call, keeping the last value passed.
func (c *CallbackTracker) Mark(value ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if len(value) > 0 {
		c.value = value[0]
	}
}

// Called reports whether Mark was called.
func (c *CallbackTracker) Called() bool {
	return c.CallCount() > 0
}

// CallCount returns the number of Mark calls.
func (c *CallbackTracker) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Value returns the last value passed to Mark.
func (c *CallbackTracker) Value() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Reset clears the tracker.
func (c *CallbackTracker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
	c.value = nil
}

// AssertCalled fails the test if the tracker was never marked.
func (c *CallbackTracker) AssertCalled(t testing.TB) {
	t.Helper()
	if !c.Called() {
		t.Fatal("expected callback to be called")
	}
}

// AssertNotCalled fails the test if the tracker was marked.
func (c *CallbackTracker) AssertNotCalled(t testing.TB) {
	t.Helper()
	if n := c.CallCount(); n != 0 {
		t.Fatalf("expected callback not to be called, got %d calls", n)
	}
}

// AssertCallCount fails the test unless the tracker was marked exactly want times.
func (c *CallbackTracker) AssertCallCount(t testing.TB, want int) {
	t.Helper()
	if n := c.CallCount(); n != want {
		t.Fatalf("call count = %d, want %d", n, want)
	}
}

// MockIterator yields Items in order. When Err is set, Next fails with it
// once FailAfter items were produced.
type MockIterator[T any] struct {
	Items     []T
	FailAfter int
	Err       error

	mu     sync.Mutex
	index  int
	closes int
}

// NewMockIterator creates an iterator over items.
func NewMockIterator[T any](items ...T) *MockIterator[T] {
	return &MockIterator[T]{Items: items}
}

// Next returns the next item.
func (m *MockIterator[T]) Next(ctx context.Context) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if m.Err != nil && m.index >= m.FailAfter {
		return zero, false, m.Err
	}
	if m.index >= len(m.Items) {
		return zero, false, nil
	}
	item := m.Items[m.index]
	m.index++
	return item, true, nil
}

// Close records the call.
func (m *MockIterator[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

// Closes returns how many times Close was called.
func (m *MockIterator[T]) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}
