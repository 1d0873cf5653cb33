package rebalance

import (
	"fmt"
	"math"
	"slices"

	"github.com/etnz/rebalance/date"
)

// Snapshot is a dated observation of an instrument's current and target price.
//
// A zero CurrentPrice means the current price was not observed on that date:
// the row still carries a usable target price.
type Snapshot struct {
	Date         date.Date
	ID           CanonicalID
	CurrentPrice float64
	TargetPrice  float64
}

// Validate reports whether the snapshot can be indexed.
func (s Snapshot) Validate() error {
	switch {
	case s.Date.IsZero():
		return fmt.Errorf("snapshot for %q has no date", s.ID)
	case s.ID == "":
		return fmt.Errorf("snapshot on %v has no instrument", s.Date)
	case math.IsNaN(s.CurrentPrice) || s.CurrentPrice < 0:
		return fmt.Errorf("snapshot %q on %v has an invalid current price %v", s.ID, s.Date, s.CurrentPrice)
	case math.IsNaN(s.TargetPrice) || s.TargetPrice <= 0:
		return fmt.Errorf("snapshot %q on %v has an invalid target price %v", s.ID, s.Date, s.TargetPrice)
	}
	return nil
}

// UpsidePct returns the expected return from the current to the target price.
// It is false when the current price was not observed.
func (s Snapshot) UpsidePct() (Percent, bool) {
	return upsidePct(s.CurrentPrice, s.TargetPrice)
}

func upsidePct(current, target float64) (Percent, bool) {
	if current <= 0 || target <= 0 {
		return 0, false
	}
	return Percent(100 * (target - current) / current), true
}

// SnapshotIndex answers "what was known about an instrument on a given day".
//
// It is immutable once built and safe for concurrent use.
type SnapshotIndex struct {
	resolver *Resolver
	series   map[CanonicalID]*date.History[Snapshot]
	count    int
	skipped  int
}

// NewSnapshotIndex groups snapshots by instrument in chronological order.
//
// Snapshot ids are canonicalized through r. Malformed snapshots are skipped
// and counted in Skipped. When two snapshots share an instrument and a date
// the last one wins.
func NewSnapshotIndex(snapshots []Snapshot, r *Resolver) *SnapshotIndex {
	idx := &SnapshotIndex{
		resolver: r,
		series:   make(map[CanonicalID]*date.History[Snapshot]),
	}
	for _, s := range snapshots {
		s.ID = r.Resolve(string(s.ID))
		if err := s.Validate(); err != nil {
			idx.skipped++
			continue
		}
		h, ok := idx.series[s.ID]
		if !ok {
			h = new(date.History[Snapshot])
			idx.series[s.ID] = h
		}
		before := h.Len()
		h.Append(s.Date, s)
		if h.Len() > before {
			idx.count++
		}
	}
	return idx
}

// Len returns the number of indexed observations.
func (idx *SnapshotIndex) Len() int {
	if idx == nil {
		return 0
	}
	return idx.count
}

// Skipped returns the number of malformed snapshots ignored at build time.
func (idx *SnapshotIndex) Skipped() int {
	if idx == nil {
		return 0
	}
	return idx.skipped
}

// IDs returns the sorted list of indexed instruments.
func (idx *SnapshotIndex) IDs() []CanonicalID {
	if idx == nil {
		return nil
	}
	ids := make([]CanonicalID, 0, len(idx.series))
	for id := range idx.series {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// LatestAtOrBefore returns the most recent snapshot of id observed on or
// before on.
//
// When every observation of id is after on, the earliest one is returned
// instead: early holdings may predate the snapshot series and the best
// available data is preferred to none. When id has no observation at all its
// share-class alternates are tried in order. It returns false only when
// nothing could be found.
func (idx *SnapshotIndex) LatestAtOrBefore(id CanonicalID, on date.Date) (Snapshot, bool) {
	if idx == nil {
		return Snapshot{}, false
	}
	if s, ok := idx.lookup(id, on); ok {
		return s, true
	}
	for _, alt := range idx.resolver.Alternates(id) {
		if s, ok := idx.lookup(alt, on); ok {
			return s, true
		}
	}
	return Snapshot{}, false
}

func (idx *SnapshotIndex) lookup(id CanonicalID, on date.Date) (Snapshot, bool) {
	h, ok := idx.series[id]
	if !ok {
		return Snapshot{}, false
	}
	if s, ok := h.ValueAsOf(on); ok {
		return s, true
	}
	_, s, ok := h.First()
	return s, ok
}
