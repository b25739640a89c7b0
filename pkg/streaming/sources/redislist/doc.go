/*
Package redislist streams the values of a Redis list.

Open returns a stream right away; the connection is verified in the
background with PING, retried with exponential backoff. Reads pop from the
head of the list, with BLPOP when BlockTimeout is set or LPOP polling
otherwise:

	cfg := redislist.DefaultConfig()
	cfg.Client = redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	cfg.Key = "jobs"
	cfg.EndMarker = "EOF"

	s := redislist.Open(cfg)
	jobs, err := readable.Collect[string](ctx, s)

The stream ends when EndMarker is popped, or when the list is empty and
StopOnEmpty is set. Otherwise it waits for new values until cancelled.
*/
package redislist
