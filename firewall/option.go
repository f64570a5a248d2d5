package firewall

import (
	"log/slog"

	ftypes "go.hackfix.me/portcullis/firewall/types"
)

// Option configures a Manager. Options are applied in order, after the
// defaults.
type Option func(*Manager) error

// WithLogger sets the logger used to report loaded rules and packet
// decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		m.logger = logger.With("component", "firewall")
		return nil
	}
}

// WithRules loads the rules into the engine when the Manager is created.
func WithRules(rules ...ftypes.Rule) Option {
	return func(m *Manager) error {
		return m.AddRules(rules...)
	}
}

// DefaultOptions returns the default Manager options.
func DefaultOptions() []Option {
	return []Option{WithLogger(slog.Default())}
}
