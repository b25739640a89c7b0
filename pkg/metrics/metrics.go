// Package metrics provides Prometheus instrumentation for lazystream components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for lazystream components.
type Registry struct {
	// Deferred stream metrics
	Resolutions     *prometheus.CounterVec
	ResolveDuration *prometheus.HistogramVec
	BoundStreams    *prometheus.GaugeVec
	ItemsForwarded  *prometheus.CounterVec
	StreamErrors    *prometheus.CounterVec
	Terminations    *prometheus.CounterVec

	// Source metrics
	SourceItems   *prometheus.CounterVec
	SourceRetries *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by lazystream components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	cfg := DefaultConfig()
	cfg.Registry = reg
	return NewRegistryWithConfig(cfg)
}

// NewRegistryWithConfig creates a metrics registry honoring the namespace and
// constant labels of cfg.
func NewRegistryWithConfig(cfg Config) *Registry {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultConfig().Namespace
	}
	factory := promauto.With(cfg.Registry)
	ns := cfg.Namespace
	labels := cfg.Labels

	return &Registry{
		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "wrap",
				Name:        "resolutions_total",
				Help:        "Total number of deferred source resolutions",
				ConstLabels: labels,
			},
			[]string{"stream_name", "variant", "outcome"},
		),

		ResolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "wrap",
				Name:        "resolve_duration_seconds",
				Help:        "Time spent resolving the backing source",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"stream_name", "variant"},
		),

		BoundStreams: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "wrap",
				Name:        "bound_streams",
				Help:        "Number of deferred streams bound to a source and not yet terminal",
				ConstLabels: labels,
			},
			[]string{"stream_name"},
		),

		ItemsForwarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "wrap",
				Name:        "items_forwarded_total",
				Help:        "Total number of items forwarded from the backing source",
				ConstLabels: labels,
			},
			[]string{"stream_name"},
		),

		StreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "wrap",
				Name:        "errors_total",
				Help:        "Total number of deferred stream failures",
				ConstLabels: labels,
			},
			[]string{"stream_name", "stage"},
		),

		Terminations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "wrap",
				Name:        "terminations_total",
				Help:        "Total number of deferred streams that reached a terminal state",
				ConstLabels: labels,
			},
			[]string{"stream_name", "path"},
		),

		SourceItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "source",
				Name:        "items_total",
				Help:        "Total number of items produced by sources",
				ConstLabels: labels,
			},
			[]string{"source_type", "source_name"},
		),

		SourceRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "source",
				Name:        "connect_retries_total",
				Help:        "Total number of failed connection attempts while resolving a source",
				ConstLabels: labels,
			},
			[]string{"source_type", "source_name"},
		),
	}
}
