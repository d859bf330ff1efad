package wear

import (
	"sort"
	"time"
)

// Estimate is a pair of lifetime estimates; nil channels are not reported.
type Estimate struct {
	A *int `json:"a"`
	B *int `json:"b"`
}

// UnknownEstimate is the "no baseline yet" sentinel: neither channel known.
var UnknownEstimate = Estimate{}

// Equal reports structural equality, treating nil as its own value.
func (e Estimate) Equal(other Estimate) bool {
	return intPtrEqual(e.A, other.A) && intPtrEqual(e.B, other.B)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Known builds an Estimate with both channels reported.
func Known(a, b int) Estimate {
	return Estimate{A: &a, B: &b}
}

// Record is one observed transition between wear estimates. It is created
// when a poll reports an estimate different from the last known one and is
// immutable afterwards.
type Record struct {
	Old          Estimate  `json:"old_estimate"`
	New          Estimate  `json:"new_estimate"`
	UptimeMillis int64     `json:"uptime_millis"`
	Timestamp    time.Time `json:"timestamp"`
}

// Equal compares all fields; timestamps compare by instant.
func (r Record) Equal(other Record) bool {
	return r.Old.Equal(other.Old) &&
		r.New.Equal(other.New) &&
		r.UptimeMillis == other.UptimeMillis &&
		r.Timestamp.Equal(other.Timestamp)
}

// History is an ordered ledger of estimate transitions, sorted ascending by
// uptime regardless of construction order. Amendments build a new History.
type History struct {
	Records []Record `json:"records"`
}

// HistoryFromRecords builds a History, sorting the records by uptime.
func HistoryFromRecords(records ...Record) History {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sortRecords(sorted)
	return History{Records: sorted}
}

// Append returns a new History including the given record.
func (h History) Append(r Record) History {
	return HistoryFromRecords(append(append([]Record{}, h.Records...), r)...)
}

// Last returns the most recent record, if any.
func (h History) Last() (Record, bool) {
	if len(h.Records) == 0 {
		return Record{}, false
	}
	return h.Records[len(h.Records)-1], true
}

// Equal is order-independent set equality over the records.
func (h History) Equal(other History) bool {
	if len(h.Records) != len(other.Records) {
		return false
	}
	a := make([]Record, len(h.Records))
	b := make([]Record, len(other.Records))
	copy(a, h.Records)
	copy(b, other.Records)
	sortRecords(a)
	sortRecords(b)
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// sortRecords orders by uptime, breaking ties on timestamp so that equality
// comparison of histories with duplicate uptimes stays stable.
func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].UptimeMillis != records[j].UptimeMillis {
			return records[i].UptimeMillis < records[j].UptimeMillis
		}
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}

// Change is a classified estimate transition derived from a Record.
type Change struct {
	Old          Estimate  `json:"old_estimate"`
	New          Estimate  `json:"new_estimate"`
	UptimeMillis int64     `json:"uptime_millis"`
	Timestamp    time.Time `json:"timestamp"`
	Acceptable   bool      `json:"acceptable_degradation"`
}

const millisPerHour = 3600.0 * 1000.0

// Changes classifies every record against maxRatePctPerHour, in ascending
// uptime order. A transition from an unknown baseline is always acceptable:
// a first observation cannot be judged against a rate. Otherwise the worse
// increase of the two channels, per hour of uptime elapsed since the previous
// record, must not exceed the threshold. A jump across near-zero elapsed time
// produces an extreme rate and classifies unacceptable.
func (h History) Changes(maxRatePctPerHour float64) []Change {
	changes := make([]Change, 0, len(h.Records))
	var prevUptime int64
	for i, r := range h.Records {
		elapsed := r.UptimeMillis
		if i > 0 {
			elapsed = r.UptimeMillis - prevUptime
		}
		prevUptime = r.UptimeMillis

		acceptable := true
		if !r.Old.Equal(UnknownEstimate) {
			delta := estimateDelta(r.Old, r.New)
			if elapsed <= 0 {
				acceptable = delta == 0
			} else {
				rate := float64(delta) / (float64(elapsed) / millisPerHour)
				acceptable = rate <= maxRatePctPerHour
			}
		}

		changes = append(changes, Change{
			Old:          r.Old,
			New:          r.New,
			UptimeMillis: r.UptimeMillis,
			Timestamp:    r.Timestamp,
			Acceptable:   acceptable,
		})
	}
	return changes
}

// estimateDelta is the worse of the two channels' increase, floored at zero
// to ignore spurious decreases. Channels not reported on both sides do not
// contribute.
func estimateDelta(old, cur Estimate) int {
	delta := 0
	if old.A != nil && cur.A != nil && *cur.A-*old.A > delta {
		delta = *cur.A - *old.A
	}
	if old.B != nil && cur.B != nil && *cur.B-*old.B > delta {
		delta = *cur.B - *old.B
	}
	return delta
}
