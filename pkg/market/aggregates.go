package market

// Counts maps asset name to a non-negative unit count.
type Counts map[string]int

// Tracker derives, from book changes restricted to the local
// participant's own orders, how many units the participant has currently
// requested (open bids) and offered (open asks) per asset.
//
// Updates arrive as whole diffs and are applied in full before any
// reader can observe the result, so intermediate counts within one batch
// are never visible.
type Tracker struct {
	localPcode string
	requested  Counts
	offered    Counts
}

// NewTracker builds a tracker whose counts are seeded by bulk
// computation over the supplied open-order snapshot.
func NewTracker(localPcode string, bids, asks []Order) *Tracker {
	return &Tracker{
		localPcode: localPcode,
		requested:  CountOwn(bids, localPcode),
		offered:    CountOwn(asks, localPcode),
	}
}

// CountOwn is the bulk computation: it counts orders in one side owned
// by pcode, keyed by asset. It is the ground truth the incremental path
// must always agree with.
func CountOwn(side []Order, pcode string) Counts {
	counts := make(Counts)
	for _, o := range side {
		if o.Pcode == pcode {
			counts[o.AssetName]++
		}
	}
	return counts
}

// Apply folds one atomic book diff into the counts: +1 per added local
// order, -1 per removed, in presentation order.
func (t *Tracker) Apply(diff Diff) {
	for _, o := range diff.Added {
		if o.Pcode != t.localPcode {
			continue
		}
		t.counts(o.IsBid)[o.AssetName]++
	}
	for _, o := range diff.Removed {
		if o.Pcode != t.localPcode {
			continue
		}
		t.counts(o.IsBid)[o.AssetName]--
	}
}

func (t *Tracker) counts(isBid bool) Counts {
	if isBid {
		return t.requested
	}
	return t.offered
}

// Requested returns a copy of the per-asset open local bid counts.
func (t *Tracker) Requested() Counts {
	return copyCounts(t.requested)
}

// Offered returns a copy of the per-asset open local ask counts.
func (t *Tracker) Offered() Counts {
	return copyCounts(t.offered)
}

func copyCounts(c Counts) Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Equal compares two count mappings, treating missing keys as zero.
func (c Counts) Equal(other Counts) bool {
	for k, v := range c {
		if other[k] != v {
			return false
		}
	}
	for k, v := range other {
		if c[k] != v {
			return false
		}
	}
	return true
}
