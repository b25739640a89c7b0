package testutil

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventually(t *testing.T) {
	t.Run("condition met immediately", func(t *testing.T) {
		called := false
		Eventually(t, func() bool {
			called = true
			return true
		}, 100*time.Millisecond, 10*time.Millisecond)

		if !called {
			t.Error("condition function should be called")
		}
	})

	t.Run("condition met after delay", func(t *testing.T) {
		var counter int32
		go func() {
			time.Sleep(50 * time.Millisecond)
			atomic.StoreInt32(&counter, 1)
		}()

		Eventually(t, func() bool {
			return atomic.LoadInt32(&counter) == 1
		}, 200*time.Millisecond, 10*time.Millisecond)
	})
}

func TestAssertClosed(t *testing.T) {
	ch := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(ch)
	}()
	AssertClosed(t, ch)
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	AssertEqual(t, clock.Now(), start)

	clock.Advance(time.Minute)
	AssertEqual(t, clock.Now(), start.Add(time.Minute))

	fired := <-clock.After(time.Second)
	AssertEqual(t, fired, start.Add(time.Minute+time.Second))
	AssertEqual(t, clock.Now(), fired)
}

func TestCallbackTracker(t *testing.T) {
	t.Run("basic tracking", func(t *testing.T) {
		tracker := NewCallbackTracker()
		tracker.AssertNotCalled(t)

		tracker.Mark()
		tracker.AssertCalled(t)
		tracker.AssertCallCount(t, 1)
	})

	t.Run("value tracking", func(t *testing.T) {
		tracker := NewCallbackTracker()

		tracker.Mark("first")
		AssertEqual(t, tracker.Value(), interface{}("first"))

		tracker.Mark("second")
		AssertEqual(t, tracker.Value(), interface{}("second"))
	})

	t.Run("reset", func(t *testing.T) {
		tracker := NewCallbackTracker()
		tracker.Mark("test")
		tracker.Reset()

		tracker.AssertNotCalled(t)
		if tracker.Value() != nil {
			t.Errorf("value = %v, want nil", tracker.Value())
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		tracker := NewCallbackTracker()

		const goroutines = 10
		const callsPerGoroutine = 100

		done := make(chan bool, goroutines)
		for i := 0; i < goroutines; i++ {
			go func() {
				for j := 0; j < callsPerGoroutine; j++ {
					tracker.Mark()
				}
				done <- true
			}()
		}
		for i := 0; i < goroutines; i++ {
			<-done
		}

		tracker.AssertCallCount(t, goroutines*callsPerGoroutine)
	})
}

func TestMockIterator(t *testing.T) {
	ctx := context.Background()

	it := NewMockIterator("a", "b")
	v, ok, err := it.Next(ctx)
	AssertNoError(t, err)
	AssertEqual(t, ok, true)
	AssertEqual(t, v, "a")

	_, _, _ = it.Next(ctx)
	_, ok, err = it.Next(ctx)
	AssertNoError(t, err)
	AssertEqual(t, ok, false)

	boom := errors.New("boom")
	failing := &MockIterator[int]{Items: []int{1, 2, 3}, FailAfter: 1, Err: boom}
	_, ok, err = failing.Next(ctx)
	AssertNoError(t, err)
	AssertEqual(t, ok, true)
	_, _, err = failing.Next(ctx)
	AssertErrorIs(t, err, boom)

	AssertNoError(t, failing.Close())
	AssertEqual(t, failing.Closes(), 1)
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(t)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("context should have a deadline")
	}
	if time.Until(deadline) > TestTimeout {
		t.Errorf("deadline is too far in the future")
	}
}

func TestAsserts(t *testing.T) {
	AssertNoError(t, nil)
	AssertError(t, context.Canceled)
	AssertErrorIs(t, context.Canceled, context.Canceled)
	AssertEqual(t, 42, 42)
	AssertNotEqual(t, "a", "b")
	AssertSliceEqual(t, []int{1, 2}, []int{1, 2})
}
