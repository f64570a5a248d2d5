package bucketed

import "log/slog"

// Option is a function that allows configuring the Index.
type Option func(*Index)

// WithBucketCount sets the number of buckets the port space is divided into.
// It must evenly divide 65536.
func WithBucketCount(n int) Option {
	return func(idx *Index) {
		idx.bucketCount = n
	}
}

// WithLogger sets the logger used by the Index.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) {
		idx.logger = logger.With("engine", "bucketed")
	}
}

// DefaultOptions returns the default Index options.
func DefaultOptions() []Option {
	return []Option{
		WithBucketCount(DefaultBucketCount),
		WithLogger(slog.Default()),
	}
}
