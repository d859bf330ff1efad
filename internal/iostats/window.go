package iostats

import "sort"

// Window is the delta aggregate for one reporting interval: each entry is an
// already-computed per-application delta snapshot. Immutable once built.
type Window struct {
	Entries      []Snapshot `json:"entries"`
	WindowMillis int64      `json:"window_millis"`
}

// ForegroundTotals sums the foreground metrics across every entry. An empty
// window yields all-zero totals.
func (w Window) ForegroundTotals() Metrics {
	var total Metrics
	for _, e := range w.Entries {
		total = total.Plus(e.Foreground)
	}
	return total
}

// BackgroundTotals sums the background metrics across every entry.
func (w Window) BackgroundTotals() Metrics {
	var total Metrics
	for _, e := range w.Entries {
		total = total.Plus(e.Background)
	}
	return total
}

// Totals sums foreground and background together.
func (w Window) Totals() Metrics {
	return w.ForegroundTotals().Plus(w.BackgroundTotals())
}

// Equal is order-independent over the entries plus an exact window match.
func (w Window) Equal(other Window) bool {
	if w.WindowMillis != other.WindowMillis || len(w.Entries) != len(other.Entries) {
		return false
	}
	a := sortedEntries(w.Entries)
	b := sortedEntries(other.Entries)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedEntries(entries []Snapshot) []Snapshot {
	sorted := make([]Snapshot, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].UID != sorted[j].UID {
			return sorted[i].UID < sorted[j].UID
		}
		return sorted[i].RuntimeMillis < sorted[j].RuntimeMillis
	})
	return sorted
}
