// Package bucketed implements a rule engine that partitions the port space
// into fixed-size buckets.
//
// Each rule is registered in every bucket its port interval overlaps, so a
// lookup only scans the rules of the single bucket containing the packet's
// port. Rules spanning many ports cost one entry per bucket they overlap; a
// rule covering the whole port space is present in every bucket of its
// direction and protocol.
package bucketed

import (
	"fmt"
	"log/slog"
	"sync"

	ftypes "go.hackfix.me/portcullis/firewall/types"
)

// DefaultBucketCount is the number of buckets used unless specified.
const DefaultBucketCount = 64

type bucket map[ftypes.Rule]struct{}

// Index is a rule engine that indexes rules by port bucket. It is safe for
// concurrent use: classification may run concurrently, while insertion is
// exclusive.
type Index struct {
	mx          sync.RWMutex
	bucketCount int
	bucketWidth int
	// Indexed by direction, then protocol, then bucket number.
	buckets [2][2][]bucket
	rules   int
	entries int
	logger  *slog.Logger
}

var _ ftypes.Engine = (*Index)(nil)

// New returns a new Index. It returns an error wrapping
// types.ErrInvalidBucketCount if the configured bucket count doesn't evenly
// divide the port space.
func New(opts ...Option) (*Index, error) {
	idx := &Index{}

	opts = append(DefaultOptions(), opts...)
	for _, opt := range opts {
		opt(idx)
	}

	if idx.bucketCount <= 0 || idx.bucketCount > ftypes.PortSpace ||
		ftypes.PortSpace%idx.bucketCount != 0 {
		return nil, fmt.Errorf("%w %d: must evenly divide %d",
			ftypes.ErrInvalidBucketCount, idx.bucketCount, ftypes.PortSpace)
	}
	idx.bucketWidth = ftypes.PortSpace / idx.bucketCount

	for d := range idx.buckets {
		for p := range idx.buckets[d] {
			slot := make([]bucket, idx.bucketCount)
			for b := range slot {
				slot[b] = make(bucket)
			}
			idx.buckets[d][p] = slot
		}
	}

	idx.logger.Debug("created rule index",
		"bucket_count", idx.bucketCount, "bucket_width", idx.bucketWidth)

	return idx, nil
}

// Insert adds the rule to every bucket its port interval overlaps. Inserting
// a rule equal to one already stored is a no-op.
func (idx *Index) Insert(rule ftypes.Rule) error {
	start, end := idx.bucketOf(rule.MinPort()), idx.bucketOf(rule.MaxPort())
	slot := idx.slot(rule.Direction(), rule.Protocol())
	if slot == nil {
		return fmt.Errorf("cannot insert uninitialized rule '%s'", rule)
	}

	idx.mx.Lock()
	defer idx.mx.Unlock()

	// A rule is always inserted into its whole bucket span at once, so its
	// presence in the start bucket means it's already stored.
	if _, ok := slot[start][rule]; ok {
		return nil
	}

	for b := start; b <= end; b++ {
		slot[b][rule] = struct{}{}
	}
	idx.rules++
	idx.entries += end - start + 1

	return nil
}

// Classify returns true if any rule in the packet's port bucket matches it.
func (idx *Index) Classify(pkt ftypes.Packet) bool {
	slot := idx.slot(pkt.Direction, pkt.Protocol)
	if slot == nil {
		return false
	}

	idx.mx.RLock()
	defer idx.mx.RUnlock()

	for rule := range slot[idx.bucketOf(pkt.Port)] {
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
	return idx.rules
}

// Entries returns the total number of bucket memberships across all rules.
func (idx *Index) Entries() int {
	idx.mx.RLock()
	defer idx.mx.RUnlock()
	return idx.entries
}

// BucketCount returns the number of buckets the port space is divided into.
func (idx *Index) BucketCount() int {
	return idx.bucketCount
}

// BucketLen returns the number of rules registered in bucket b for the given
// direction and protocol.
func (idx *Index) BucketLen(dir ftypes.Direction, proto ftypes.Protocol, b int) int {
	slot := idx.slot(dir, proto)
	if slot == nil || b < 0 || b >= len(slot) {
		return 0
	}

	idx.mx.RLock()
	defer idx.mx.RUnlock()
	return len(slot[b])
}

func (idx *Index) bucketOf(port uint16) int {
	return int(port) / idx.bucketWidth
}

// slot returns nil for unknown directions or protocols.
func (idx *Index) slot(dir ftypes.Direction, proto ftypes.Protocol) []bucket {
	if dir != ftypes.Inbound && dir != ftypes.Outbound {
		return nil
	}
	if proto != ftypes.TCP && proto != ftypes.UDP {
		return nil
	}
	return idx.buckets[dir.Index()][proto.Index()]
}
