package redislist

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/lazystream/pkg/common/validation"
	"github.com/vnykmshr/lazystream/pkg/metrics"
	"github.com/vnykmshr/lazystream/pkg/streaming/readable"
	"github.com/vnykmshr/lazystream/pkg/streaming/wrap"
)

const sourceType = "redislist"

// Client is the subset of redis.UniversalClient a list source needs.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	LPop(ctx context.Context, key string) *redis.StringCmd
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

var _ Client = (redis.UniversalClient)(nil)

// Config holds configuration for a Redis list source.
type Config struct {
	// Client is the Redis connection, typically a redis.UniversalClient.
	Client Client

	// Key is the list to pop from.
	Key string

	// Name labels logs and metrics. Defaults to Key.
	Name string

	// BlockTimeout is how long a single BLPOP waits. Zero switches to LPOP
	// polling every PollInterval.
	BlockTimeout time.Duration

	// PollInterval is the wait between empty LPOP calls.
	PollInterval time.Duration

	// StopOnEmpty ends the stream the first time the list is found empty.
	StopOnEmpty bool

	// EndMarker, when set, ends the stream when popped. It is not delivered.
	EndMarker string

	// ConnectTimeout bounds each PING made while resolving the source.
	ConnectTimeout time.Duration

	// MaxConnectRetries is how many failed PINGs are retried before giving up.
	MaxConnectRetries uint64

	// InitialBackoff and MaxBackoff shape the exponential backoff between PINGs.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Strategy is the queuing strategy of the returned stream. Values popped
	// ahead of the reader are lost if the stream is cancelled.
	Strategy readable.Strategy[string]

	// Logger receives connection and lifecycle events.
	Logger logr.Logger

	// Metrics records popped items and connection retries. Nil disables recording.
	Metrics *metrics.Registry
}

// DefaultConfig returns a default configuration. Client and Key must still be set.
func DefaultConfig() Config {
	return Config{
		BlockTimeout:      time.Second,
		PollInterval:      100 * time.Millisecond,
		ConnectTimeout:    500 * time.Millisecond,
		MaxConnectRetries: 5,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		Strategy:          readable.CountStrategy[string](0),
		Logger:            logr.Discard(),
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if err := validation.ValidateNotNil(sourceType, "client", c.Client); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty(sourceType, "key", c.Key); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration(sourceType, "block_timeout", c.BlockTimeout); err != nil {
		return err
	}
	if c.BlockTimeout == 0 {
		if err := validation.ValidatePositive(sourceType, "poll_interval_ms", int(c.PollInterval.Milliseconds())); err != nil {
			return err
		}
	}
	if err := validation.ValidatePositive(sourceType, "connect_timeout_ms", int(c.ConnectTimeout.Milliseconds())); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration(sourceType, "initial_backoff", c.InitialBackoff); err != nil {
		return err
	}
	return validation.ValidateNonNegativeDuration(sourceType, "max_backoff", c.MaxBackoff)
}

// Open returns a stream of the values popped from the list at config.Key.
//
// The stream is usable immediately. The connection is checked in the
// background, retrying with exponential backoff; an invalid configuration or
// an unreachable server errors the stream.
func Open(config Config) *wrap.Stream[string] {
	if config.Name == "" {
		config.Name = config.Key
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}
	l := &list{
		config: config,
		log:    config.Logger.WithValues("source", sourceType, "key", config.Key),
	}

	return wrap.NewWithConfig[string](wrap.Hooks[string]{
		Start:  l.start,
		Cancel: l.cancelled,
		Close:  l.drained,
	}, wrap.Config[string]{
		Strategy: config.Strategy,
		Name:     config.Name,
		Logger:   config.Logger,
		Metrics:  config.Metrics,
	})
}

type list struct {
	config Config
	log    logr.Logger
}

func (l *list) start(ctx context.Context, _ *readable.Controller[string]) (readable.Readable[string], error) {
	if err := l.config.Validate(); err != nil {
		return nil, err
	}
	if err := l.connect(ctx); err != nil {
		return nil, err
	}
	l.log.V(1).Info("connected")

	return readable.NewWithConfig(readable.UnderlyingSource[string]{
		Pull: l.pull,
	}, readable.Config[string]{Strategy: readable.CountStrategy[string](0)}), nil
}

func (l *list) connect(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.config.InitialBackoff
	b.MaxInterval = l.config.MaxBackoff
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, l.config.MaxConnectRetries), ctx)

	ping := func() error {
		pctx, cancel := context.WithTimeout(ctx, l.config.ConnectTimeout)
		defer cancel()
		return l.config.Client.Ping(pctx).Err()
	}
	notify := func(err error, next time.Duration) {
		l.log.V(1).Info("ping failed, retrying", "error", err.Error(), "retryIn", next)
		if l.config.Metrics != nil {
			l.config.Metrics.SourceRetries.WithLabelValues(sourceType, l.config.Name).Inc()
		}
	}

	if err := backoff.RetryNotify(ping, policy, notify); err != nil {
		l.log.Error(err, "giving up connecting")
		return err
	}
	return nil
}

// pull blocks until a value is popped, the list ends, or ctx is done.
func (l *list) pull(ctx context.Context, c *readable.Controller[string]) error {
	for {
		value, ok, err := l.pop(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}

		if ok {
			if l.config.EndMarker != "" && value == l.config.EndMarker {
				return c.Close()
			}
			if l.config.Metrics != nil {
				l.config.Metrics.SourceItems.WithLabelValues(sourceType, l.config.Name).Inc()
			}
			return c.Enqueue(value)
		}

		if l.config.StopOnEmpty {
			return c.Close()
		}
		if l.config.BlockTimeout > 0 {
			continue
		}
		select {
		case <-time.After(l.config.PollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pop reports ok=false when the list was empty.
func (l *list) pop(ctx context.Context) (string, bool, error) {
	if l.config.BlockTimeout > 0 {
		kv, err := l.config.Client.BLPop(ctx, l.config.BlockTimeout, l.config.Key).Result()
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		// BLPOP replies with the key followed by the value.
		return kv[1], true, nil
	}

	value, err := l.config.Client.LPop(ctx, l.config.Key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (l *list) cancelled(_ context.Context, reason error) error {
	l.log.V(1).Info("drain cancelled", "reason", reason)
	return nil
}

func (l *list) drained(context.Context) error {
	l.log.V(1).Info("list drained")
	return nil
}
