/*
Package lazystream provides readable streams whose data source is resolved
after the stream is handed out.

Streaming (pkg/streaming):
  - readable: Pull-based readable stream with queuing strategies and readers
  - wrap: Deferred stream bound to a source once it has been produced
  - sources/redislist: Values popped from a Redis list
  - sources/schedule: Activation times of a cron expression

Support:
  - metrics: Prometheus instrumentation for streams and sources
  - common/errors, common/validation: Shared errors and config checks

Example usage:

	import (
		"github.com/vnykmshr/lazystream/pkg/streaming/readable"
		"github.com/vnykmshr/lazystream/pkg/streaming/wrap"
	)

	s := wrap.New[string](wrap.StartFunc[string](openSource))
	items, err := readable.Collect[string](ctx, s)
*/
package lazystream
