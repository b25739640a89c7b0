/*
Package streaming groups the stream packages of lazystream.

  - readable: the pull-based stream every other package builds on
  - wrap: a stream usable before its source exists
  - sources/redislist and sources/schedule: ready-made deferred sources

A wrapped stream is itself readable, so deferred streams compose:

	inner := schedule.Open(cfg)
	outer := wrap.New[time.Time](wrap.Existing[time.Time]{Stream: inner})
*/
package streaming
