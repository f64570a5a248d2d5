package naive

import "log/slog"

// Option is a function that allows configuring the Index.
type Option func(*Index)

// WithLogger sets the logger used by the Index.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) {
		idx.logger = logger.With("engine", "naive")
	}
}

// DefaultOptions returns the default Index options.
func DefaultOptions() []Option {
	return []Option{
		WithLogger(slog.Default()),
	}
}
