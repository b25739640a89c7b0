package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/lazystream/pkg/common/validation"
	"github.com/vnykmshr/lazystream/pkg/metrics"
	"github.com/vnykmshr/lazystream/pkg/streaming/readable"
	"github.com/vnykmshr/lazystream/pkg/streaming/wrap"
)

const sourceType = "schedule"

// Clock abstracts time so schedules can be tested without waiting.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Config holds configuration for a schedule source.
type Config struct {
	// Spec is a cron expression. The seconds field is optional and
	// descriptors such as "@hourly" or "@every 30s" are accepted.
	Spec string

	// Location is the time zone Spec is evaluated in. Defaults to time.Local.
	Location *time.Location

	// MaxTicks ends the stream after that many activations. Zero means unlimited.
	MaxTicks int

	// Clock supplies the current time and timers. Defaults to the system clock.
	Clock Clock

	// Name labels logs and metrics. Defaults to Spec.
	Name string

	// Strategy is the queuing strategy of the returned stream. With a
	// high-water mark above zero, activations are computed ahead of reads.
	Strategy readable.Strategy[time.Time]

	// OnClose runs once MaxTicks activations were delivered.
	OnClose func()

	// OnCancel runs when the consumer cancels the stream.
	OnCancel func(reason error)

	// Logger receives lifecycle events.
	Logger logr.Logger

	// Metrics counts activations. Nil disables recording.
	Metrics *metrics.Registry
}

// DefaultConfig returns a default configuration. Spec must still be set.
func DefaultConfig() Config {
	return Config{
		Location: time.Local,
		Clock:    realClock{},
		Strategy: readable.CountStrategy[time.Time](0),
		Logger:   logr.Discard(),
	}
}

// Validate checks the configuration for errors. The expression itself is
// parsed when the stream resolves.
func (c Config) Validate() error {
	if err := validation.ValidateNotEmpty(sourceType, "spec", c.Spec); err != nil {
		return err
	}
	return validation.ValidateNonNegative(sourceType, "max_ticks", float64(c.MaxTicks))
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Open returns a stream of the activation times of config.Spec.
//
// The expression is parsed in the background; an invalid expression errors
// the stream. Each read waits for the next activation and returns its
// scheduled time.
func Open(config Config) *wrap.Stream[time.Time] {
	if config.Name == "" {
		config.Name = config.Spec
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Clock == nil {
		config.Clock = realClock{}
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}

	t := &ticker{
		config: config,
		log:    config.Logger.WithValues("source", sourceType, "spec", config.Spec),
	}

	return wrap.NewWithConfig[time.Time](wrap.Hooks[time.Time]{
		Start:  t.start,
		Cancel: t.cancelled,
		Close:  t.finished,
	}, wrap.Config[time.Time]{
		Strategy: config.Strategy,
		Name:     config.Name,
		Logger:   config.Logger,
		Metrics:  config.Metrics,
	})
}

type ticker struct {
	config   Config
	log      logr.Logger
	schedule cron.Schedule
	ticks    atomic.Int64
}

func (t *ticker) start(context.Context, *readable.Controller[time.Time]) (readable.Readable[time.Time], error) {
	if err := t.config.Validate(); err != nil {
		return nil, err
	}
	schedule, err := parser.Parse(t.config.Spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression '%s': %w", t.config.Spec, err)
	}
	t.schedule = schedule

	next := schedule.Next(t.config.Clock.Now().In(t.config.Location))
	t.log.V(1).Info("schedule parsed", "next", next)

	return readable.NewWithConfig(readable.UnderlyingSource[time.Time]{
		Pull: t.pull,
	}, readable.Config[time.Time]{Strategy: readable.CountStrategy[time.Time](0)}), nil
}

// pull waits for the next activation and enqueues its scheduled time.
func (t *ticker) pull(ctx context.Context, c *readable.Controller[time.Time]) error {
	if t.config.MaxTicks > 0 && t.ticks.Load() >= int64(t.config.MaxTicks) {
		return c.Close()
	}

	now := t.config.Clock.Now().In(t.config.Location)
	next := t.schedule.Next(now)
	if next.IsZero() {
		// The expression can never fire again.
		return c.Close()
	}

	select {
	case <-t.config.Clock.After(next.Sub(now)):
	case <-ctx.Done():
		return ctx.Err()
	}

	t.ticks.Add(1)
	if t.config.Metrics != nil {
		t.config.Metrics.SourceItems.WithLabelValues(sourceType, t.config.Name).Inc()
	}
	return c.Enqueue(next)
}

func (t *ticker) cancelled(_ context.Context, reason error) error {
	t.log.V(1).Info("schedule cancelled", "reason", reason, "ticks", t.ticks.Load())
	if t.config.OnCancel != nil {
		t.config.OnCancel(reason)
	}
	return nil
}

func (t *ticker) finished(context.Context) error {
	t.log.V(1).Info("schedule finished", "ticks", t.ticks.Load())
	if t.config.OnClose != nil {
		t.config.OnClose()
	}
	return nil
}
