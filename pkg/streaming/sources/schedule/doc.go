// Package schedule streams the activation times of a cron expression.
//
//	cfg := schedule.DefaultConfig()
//	cfg.Spec = "0 */15 * * * *" // every 15 minutes, on the minute
//	cfg.MaxTicks = 4
//
//	s := schedule.Open(cfg)
//
// Open returns immediately; the expression is parsed when the stream resolves,
// so a malformed expression surfaces as the stream's error on the first read.
// Each read waits for the next activation. The stream ends after MaxTicks
// activations, calling OnClose; cancelling it calls OnCancel.
package schedule
