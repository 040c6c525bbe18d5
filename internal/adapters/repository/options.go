package repository

import "time"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *TreapStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithPrioritySource replaces the random source used for treap priorities.
// Tests use it to get deterministic tree shapes.
func WithPrioritySource(src func() uint64) Option {
	return func(s *TreapStore) {
		if src != nil {
			s.priority = src
		}
	}
}
