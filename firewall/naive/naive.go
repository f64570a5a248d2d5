// Package naive implements a rule engine that scans every stored rule on each
// lookup. It serves as the reference behavior for other engines.
package naive

import (
	"fmt"
	"log/slog"
	"sync"

	ftypes "go.hackfix.me/portcullis/firewall/types"
)

// Index is a rule engine backed by a single set of rules. It is safe for
// concurrent use.
type Index struct {
	mx     sync.RWMutex
	rules  map[ftypes.Rule]struct{}
	logger *slog.Logger
}

var _ ftypes.Engine = (*Index)(nil)

// New returns a new empty Index.
func New(opts ...Option) *Index {
	idx := &Index{rules: make(map[ftypes.Rule]struct{})}

	opts = append(DefaultOptions(), opts...)
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger.Debug("created rule index")

	return idx
}

// Insert adds the rule to the set. Inserting a rule equal to one already
// stored is a no-op.
func (idx *Index) Insert(rule ftypes.Rule) error {
	if rule == (ftypes.Rule{}) {
		return fmt.Errorf("cannot insert uninitialized rule '%s'", rule)
	}

	idx.mx.Lock()
	defer idx.mx.Unlock()
	idx.rules[rule] = struct{}{}

	return nil
}

// Classify returns true if any stored rule matches the packet.
func (idx *Index) Classify(pkt ftypes.Packet) bool {
	idx.mx.RLock()
	defer idx.mx.RUnlock()

	for rule := range idx.rules {
		if rule.Matches(pkt) {
			return true
		}
	}

	return false
}

// Len returns the number of distinct rules stored.
func (idx *Index) Len() int {
	idx.mx.RLock()
	defer idx.mx.RUnlock()
	return len(idx.rules)
}
