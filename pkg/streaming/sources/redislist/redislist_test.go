package redislist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/lazystream/internal/testutil"
	lserrors "github.com/vnykmshr/lazystream/pkg/common/errors"
	"github.com/vnykmshr/lazystream/pkg/metrics"
	"github.com/vnykmshr/lazystream/pkg/streaming/readable"
	"github.com/vnykmshr/lazystream/pkg/streaming/wrap"
)

var errRefused = errors.New("connection refused")

// fakeClient is an in-memory list that answers like a Redis server.
type fakeClient struct {
	mu           sync.Mutex
	items        []string
	pingFailures int
	pings        int
	popErr       error
}

func newFakeClient(items ...string) *fakeClient {
	return &fakeClient{items: items}
}

func (f *fakeClient) Ping(context.Context) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if f.pings <= f.pingFailures {
		return redis.NewStatusResult("", errRefused)
	}
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeClient) LPop(_ context.Context, _ string) *redis.StringCmd {
	value, ok, err := f.take()
	if err != nil {
		return redis.NewStringResult("", err)
	}
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeClient) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	deadline := time.After(timeout)
	for {
		value, ok, err := f.take()
		if err != nil {
			return redis.NewStringSliceResult(nil, err)
		}
		if ok {
			return redis.NewStringSliceResult([]string{keys[0], value}, nil)
		}
		select {
		case <-deadline:
			return redis.NewStringSliceResult(nil, redis.Nil)
		case <-ctx.Done():
			return redis.NewStringSliceResult(nil, ctx.Err())
		case <-time.After(time.Millisecond):
		}
	}
}

func (f *fakeClient) take() (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.popErr != nil {
		return "", false, f.popErr
	}
	if len(f.items) == 0 {
		return "", false, nil
	}
	value := f.items[0]
	f.items = f.items[1:]
	return value, true, nil
}

func (f *fakeClient) push(values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, values...)
}

func (f *fakeClient) remaining() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.items...)
}

func (f *fakeClient) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func testConfig(t *testing.T, client Client) Config {
	cfg := DefaultConfig()
	cfg.Client = client
	cfg.Key = "jobs"
	cfg.BlockTimeout = 10 * time.Millisecond
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.Logger = testr.New(t)
	return cfg
}

func TestDrainUntilEmpty(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	reg := metrics.NewRegistry(prometheus.NewRegistry())
	cfg := testConfig(t, newFakeClient("a", "b", "c"))
	cfg.BlockTimeout = 0
	cfg.StopOnEmpty = true
	cfg.Metrics = reg

	s := Open(cfg)
	items, err := readable.Collect[string](ctx, s)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, items, []string{"a", "b", "c"})

	testutil.AssertEventually(t, func() bool { return s.Phase() == wrap.PhaseTerminal })
	testutil.AssertEqual(t, promtestutil.ToFloat64(reg.SourceItems.WithLabelValues("redislist", "jobs")), 3.0)
	testutil.AssertEqual(t, promtestutil.ToFloat64(reg.ItemsForwarded.WithLabelValues("jobs")), 3.0)
}

func TestEndMarkerStopsStream(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	client := newFakeClient("a", "b", "EOF", "c")
	cfg := testConfig(t, client)
	cfg.EndMarker = "EOF"

	s := Open(cfg)
	items, err := readable.Collect[string](ctx, s)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, items, []string{"a", "b"})
	testutil.AssertSliceEqual(t, client.remaining(), []string{"c"})

	testutil.AssertEventually(t, func() bool { return s.Phase() == wrap.PhaseTerminal })
}

func TestBlockingPopWaitsForPush(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	client := newFakeClient()
	cfg := testConfig(t, client)
	cfg.EndMarker = "EOF"

	s := Open(cfg)
	r, err := s.GetReader()
	testutil.AssertNoError(t, err)
	defer r.ReleaseLock()

	go func() {
		time.Sleep(30 * time.Millisecond)
		client.push("late", "EOF")
	}()

	res, err := r.Read(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res.Value, "late")

	res, err = r.Read(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res.Done, true)

	testutil.AssertEventually(t, func() bool { return s.Phase() == wrap.PhaseTerminal })
}

func TestPollingPopWaitsForPush(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	client := newFakeClient()
	cfg := testConfig(t, client)
	cfg.BlockTimeout = 0
	cfg.PollInterval = 5 * time.Millisecond

	s := Open(cfg)
	r, err := s.GetReader()
	testutil.AssertNoError(t, err)
	defer r.ReleaseLock()

	go func() {
		time.Sleep(20 * time.Millisecond)
		client.push("x")
	}()

	res, err := r.Read(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res.Value, "x")

	testutil.AssertNoError(t, r.Cancel(ctx, nil))
}

func TestConnectRetries(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	reg := metrics.NewRegistry(prometheus.NewRegistry())
	client := newFakeClient("a")
	client.pingFailures = 2

	cfg := testConfig(t, client)
	cfg.StopOnEmpty = true
	cfg.Metrics = reg

	items, err := readable.Collect[string](ctx, Open(cfg))
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, items, []string{"a"})
	testutil.AssertEqual(t, client.pingCount(), 3)
	testutil.AssertEqual(t, promtestutil.ToFloat64(reg.SourceRetries.WithLabelValues("redislist", "jobs")), 2.0)
}

func TestConnectGivesUp(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	client := newFakeClient("a")
	client.pingFailures = 100

	cfg := testConfig(t, client)
	cfg.MaxConnectRetries = 2

	s := Open(cfg)
	_, err := readable.Collect[string](ctx, s)
	testutil.AssertErrorIs(t, err, errRefused)
	testutil.AssertEqual(t, client.pingCount(), 3)
	if s.Readable() != nil {
		t.Fatal("unreachable server produced a source")
	}
	testutil.AssertSliceEqual(t, client.remaining(), []string{"a"})
}

func TestInvalidConfigErrorsStream(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	cfg := testConfig(t, newFakeClient())
	cfg.Key = ""

	_, err := readable.Collect[string](ctx, Open(cfg))
	testutil.AssertErrorIs(t, err, lserrors.ErrInvalidConfiguration)
}

func TestPopErrorErrorsStream(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	boom := errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	client := newFakeClient()
	client.popErr = boom

	s := Open(testConfig(t, client))
	_, err := readable.Collect[string](ctx, s)
	testutil.AssertErrorIs(t, err, boom)
	testutil.AssertEventually(t, func() bool { return s.Phase() == wrap.PhaseTerminal })
}

func TestCancelInterruptsBlockedPop(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	cfg := testConfig(t, newFakeClient())
	cfg.BlockTimeout = time.Hour

	s := Open(cfg)
	r, err := s.GetReader()
	testutil.AssertNoError(t, err)
	defer r.ReleaseLock()

	reads := make(chan readable.Result[string], 1)
	go func() {
		res, _ := r.Read(ctx)
		reads <- res
	}()

	testutil.AssertClosed(t, s.Bound())
	time.Sleep(20 * time.Millisecond)
	testutil.AssertNoError(t, r.Cancel(ctx, errors.New("shutdown")))

	select {
	case res := <-reads:
		testutil.AssertEqual(t, res.Done, true)
	case <-time.After(testutil.TestTimeout):
		t.Fatal("blocked read not released by cancel")
	}
	testutil.AssertEqual(t, s.Phase(), wrap.PhaseTerminal)
}

func TestConfigValidate(t *testing.T) {
	client := newFakeClient()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"nil client", func(c *Config) { c.Client = nil }, true},
		{"empty key", func(c *Config) { c.Key = "" }, true},
		{"negative block timeout", func(c *Config) { c.BlockTimeout = -time.Second }, true},
		{"polling without interval", func(c *Config) { c.BlockTimeout = 0; c.PollInterval = 0 }, true},
		{"zero connect timeout", func(c *Config) { c.ConnectTimeout = 0 }, true},
		{"negative backoff", func(c *Config) { c.InitialBackoff = -time.Millisecond }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Client = client
			cfg.Key = "jobs"
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				testutil.AssertEqual(t, lserrors.IsValidationError(err), true)
			} else {
				testutil.AssertNoError(t, err)
			}
		})
	}
}
