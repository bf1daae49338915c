package usecases

import (
	"wallet-ledger.backend/internal/domain/repositories"
)

type options struct {
	cache              repositories.ReplayCache
	metrics            *Metrics
	rebuildPageSize    int
	rebuildConcurrency int
}

// Option configures optional collaborators of the usecases
type Option func(*options)

// WithReplayCache answers retries of completed requests from the cache
func WithReplayCache(cache repositories.ReplayCache) Option {
	return func(o *options) { o.cache = cache }
}

// WithMetrics records outcomes and durations
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRebuildBatch sets the page size and worker count of RebuildBatch
func WithRebuildBatch(pageSize, concurrency int) Option {
	return func(o *options) {
		if pageSize > 0 {
			o.rebuildPageSize = pageSize
		}
		if concurrency > 0 {
			o.rebuildConcurrency = concurrency
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		rebuildPageSize:    DefaultRebuildPageSize,
		rebuildConcurrency: DefaultRebuildConcurrency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
