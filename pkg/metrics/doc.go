// Package metrics provides Prometheus instrumentation for lazystream components.
//
// Components take a *Registry in their Config. A nil Registry disables
// recording, so instrumentation is always opt-in.
//
// # Quick Start
//
//	reg := metrics.NewRegistry(prometheus.NewRegistry())
//	s := wrap.NewWithConfig[string](desc, wrap.Config[string]{Name: "jobs", Metrics: reg})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Available Metrics
//
// ## Deferred Streams
//
//   - lazystream_wrap_resolutions_total{stream_name,variant,outcome}
//   - lazystream_wrap_resolve_duration_seconds{stream_name,variant}
//   - lazystream_wrap_bound_streams{stream_name}
//   - lazystream_wrap_items_forwarded_total{stream_name}
//   - lazystream_wrap_errors_total{stream_name,stage}
//   - lazystream_wrap_terminations_total{stream_name,path}
//
// ## Sources
//
//   - lazystream_source_items_total{source_type,source_name}
//   - lazystream_source_connect_retries_total{source_type,source_name}
//
// The namespace can be changed through Config.Namespace.
package metrics
