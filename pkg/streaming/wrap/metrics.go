package wrap

import "time"

func (w *Stream[T]) recordResolution(outcome string, began time.Time) {
	if w.metrics == nil {
		return
	}
	w.metrics.Resolutions.WithLabelValues(w.name, w.variant, outcome).Inc()
	w.metrics.ResolveDuration.WithLabelValues(w.name, w.variant).Observe(time.Since(began).Seconds())
}

func (w *Stream[T]) recordError(stage string) {
	if w.metrics == nil {
		return
	}
	w.metrics.StreamErrors.WithLabelValues(w.name, stage).Inc()
}
