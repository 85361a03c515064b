package repository

import "time"

// QueryObserver receives per-query timings. MetricsService satisfies it.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveDBQuery(string, time.Duration) {}

func observe(o QueryObserver, label string, started time.Time) {
	if o == nil {
		return
	}
	o.ObserveDBQuery(label, time.Since(started))
}
