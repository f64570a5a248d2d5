package firewall

import (
	"errors"
	"fmt"
	"log/slog"

	"go.hackfix.me/portcullis/firewall/bucketed"
	"go.hackfix.me/portcullis/firewall/naive"
	ftypes "go.hackfix.me/portcullis/firewall/types"
)

// Manager loads rules into a rule engine and classifies packets against them.
type Manager struct {
	engine ftypes.Engine
	logger *slog.Logger
}

// NewManager returns a new Manager instance.
func NewManager(engine ftypes.Engine, opts ...Option) (*Manager, error) {
	if engine == nil {
		return nil, errors.New("rule engine implementation is required")
	}

	m := &Manager{engine: engine}

	opts = append(DefaultOptions(), opts...)
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// AddRules inserts the rules into the engine. Rules equal to ones already
// stored are skipped.
func (m *Manager) AddRules(rules ...ftypes.Rule) error {
	before := m.engine.Len()
	for _, rule := range rules {
		if err := m.engine.Insert(rule); err != nil {
			return fmt.Errorf("failed adding rule '%s': %w", rule, err)
		}
	}

	added := m.engine.Len() - before
	m.logger.Debug("added rules",
		"added", added,
		"duplicates", len(rules)-added,
		"total", m.engine.Len(),
	)

	return nil
}

// Accept returns true if the packet is permitted by any loaded rule.
func (m *Manager) Accept(pkt ftypes.Packet) bool {
	accepted := m.engine.Classify(pkt)

	decision := "deny"
	if accepted {
		decision = "accept"
	}
	m.logger.Debug("classified packet",
		"direction", pkt.Direction,
		"protocol", pkt.Protocol,
		"port", pkt.Port,
		"ip", pkt.IP.String(),
		"decision", decision,
	)

	return accepted
}

// Len returns the number of distinct rules loaded.
func (m *Manager) Len() int {
	return m.engine.Len()
}

// Setup creates a new rule engine of the given type and a Manager for it,
// configured with the logger followed by opts. bucketCount is only used by the
// bucketed engine.
//
//nolint:ireturn // Intentional, this is a generic function.
func Setup(
	et ftypes.EngineType, bucketCount int, logger *slog.Logger, opts ...Option,
) (ftypes.Engine, *Manager, error) {
	var (
		engine ftypes.Engine
		err    error
	)
	switch et {
	case ftypes.EngineNaive:
		engine = naive.New(naive.WithLogger(logger))
	case ftypes.EngineBucketed:
		engine, err = bucketed.New(
			bucketed.WithBucketCount(bucketCount), bucketed.WithLogger(logger))
	default:
		return nil, nil, fmt.Errorf("unsupported engine type '%s'", et)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed creating %s engine: %w", et, err)
	}

	mgr, err := NewManager(engine, append([]Option{WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed creating the firewall manager: %w", err)
	}

	return engine, mgr, nil
}
