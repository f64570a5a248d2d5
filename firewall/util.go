package firewall

import (
	"fmt"

	"go4.org/netipx"

	ftypes "go.hackfix.me/portcullis/firewall/types"
)

// AddressCoverage merges the address intervals of the given rules, and returns
// an IP set containing the resulting non-overlapping ranges.
func AddressCoverage(rules ...ftypes.Rule) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for _, rule := range rules {
		if rule == (ftypes.Rule{}) {
			return nil, fmt.Errorf("invalid address range in uninitialized rule '%s'", rule)
		}
		b.AddRange(rule.IPRange())
	}

	ipSet, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("failed building IP set: %w", err)
	}

	return ipSet, nil
}
