package wear

import (
	"encoding/json"
	"testing"
	"time"
)

// ── Test helpers ────────────────────────────────────────────────────────────

func record(old, cur Estimate, uptime int64, atMillis int64) Record {
	return Record{
		Old:          old,
		New:          cur,
		UptimeMillis: uptime,
		Timestamp:    time.UnixMilli(atMillis).UTC(),
	}
}

// ── Estimate ────────────────────────────────────────────────────────────────

func TestEstimateEquality(t *testing.T) {
	tests := []struct {
		name string
		a, b Estimate
		want bool
	}{
		{"equal known", Known(10, 20), Known(10, 20), true},
		{"different values", Known(10, 20), Known(20, 30), false},
		{"unknown sentinel", UnknownEstimate, Estimate{}, true},
		{"known vs unknown", Known(10, 20), UnknownEstimate, false},
		{"one channel unknown", Estimate{A: intPtr(10)}, Known(10, 20), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("Equal (reversed) = %v, want %v", got, tt.want)
			}
		})
	}
}

func intPtr(v int) *int { return &v }

func TestEstimateJSONRoundTrip(t *testing.T) {
	for _, e := range []Estimate{Known(20, 0), UnknownEstimate, {A: intPtr(40)}} {
		data, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var decoded Estimate
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !e.Equal(decoded) {
			t.Errorf("round trip of %+v yielded %+v", e, decoded)
		}
	}
}

// ── Record ──────────────────────────────────────────────────────────────────

func TestRecordEquality(t *testing.T) {
	r1 := record(UnknownEstimate, Known(10, 20), 5000, 2000)
	r2 := record(UnknownEstimate, Known(10, 20), 5000, 2000)
	r3 := record(UnknownEstimate, Known(10, 40), 5000, 1000)

	if !r1.Equal(r1) || !r1.Equal(r2) {
		t.Error("identical records must compare equal")
	}
	if r1.Equal(r3) {
		t.Error("records with different estimates must differ")
	}
}

func TestRecordJSONRoundTrip(t *testing.T) {
	original := record(Known(10, 20), Known(10, 30), 5000, 1000)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !original.Equal(decoded) {
		t.Errorf("round trip yielded %+v, want %+v", decoded, original)
	}
}

// ── History ─────────────────────────────────────────────────────────────────

func TestHistoryOrderIndependence(t *testing.T) {
	r1 := record(UnknownEstimate, Known(10, 20), 5000, 2000)
	r2 := record(r1.New, Known(10, 40), 9000, 16000)
	r3 := record(r2.New, Known(20, 40), 12000, 21000)
	r4 := record(r3.New, Known(30, 50), 17000, 34000)
	r5 := record(r3.New, Known(20, 50), 15000, 34000)

	h1 := HistoryFromRecords(r1, r2, r3, r4)
	h2 := HistoryFromRecords(r4, r1, r2, r3)
	h3 := HistoryFromRecords(r1, r2, r3, r5)

	if !h1.Equal(h1) || !h1.Equal(h2) {
		t.Error("histories built from the same records must compare equal")
	}
	if h1.Equal(h3) {
		t.Error("histories with a differing record must not compare equal")
	}

	for i := 1; i < len(h2.Records); i++ {
		if h2.Records[i-1].UptimeMillis > h2.Records[i].UptimeMillis {
			t.Fatalf("records not sorted by uptime: %+v", h2.Records)
		}
	}
}

func TestHistoryAppendIsImmutable(t *testing.T) {
	r1 := record(UnknownEstimate, Known(10, 20), 5000, 2000)
	r2 := record(r1.New, Known(10, 40), 9000, 16000)

	h := HistoryFromRecords(r1)
	grown := h.Append(r2)

	if len(h.Records) != 1 {
		t.Errorf("original history mutated: %d records", len(h.Records))
	}
	if len(grown.Records) != 2 {
		t.Errorf("appended history has %d records, want 2", len(grown.Records))
	}
}

func TestHistoryJSONRoundTrip(t *testing.T) {
	r1 := record(UnknownEstimate, Known(10, 20), 5000, 2000)
	r2 := record(r1.New, Known(10, 40), 9000, 16000)
	r3 := record(r2.New, Known(20, 40), 12000, 21000)
	original := HistoryFromRecords(r1, r2, r3)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded History
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !original.Equal(decoded) {
		t.Errorf("round trip yielded %+v, want %+v", decoded, original)
	}
}

// ── Changes classification ──────────────────────────────────────────────────

func TestHistoryChanges(t *testing.T) {
	// Three transitions: no baseline, ~46.8 hours for a 20% jump, and a 10%
	// jump across one millisecond.
	r1 := record(UnknownEstimate, Known(10, 20), 3600000, 2000)
	r2 := record(r1.New, Known(10, 40), 172000000, 16000)
	r3 := record(r2.New, Known(20, 40), 172000001, 21000)

	history := HistoryFromRecords(r1, r2, r3)
	changes := history.Changes(1)

	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3", len(changes))
	}

	for i, r := range []Record{r1, r2, r3} {
		c := changes[i]
		if !c.Old.Equal(r.Old) || !c.New.Equal(r.New) {
			t.Errorf("change %d estimates do not match record", i)
		}
		if c.UptimeMillis != r.UptimeMillis || !c.Timestamp.Equal(r.Timestamp) {
			t.Errorf("change %d uptime/timestamp do not match record", i)
		}
	}

	if !changes[0].Acceptable {
		t.Error("first observation has no baseline and must be acceptable")
	}
	if !changes[1].Acceptable {
		t.Error("20%% over ~46.8h is ~0.43%%/h and must be acceptable at threshold 1")
	}
	if changes[2].Acceptable {
		t.Error("10%% over 1ms must be unacceptable at threshold 1")
	}
}

func TestHistoryChangesUnknownBaselineAlwaysAcceptable(t *testing.T) {
	// Any magnitude is acceptable on a first observation.
	r := record(UnknownEstimate, Known(90, 100), 1, 1000)
	changes := HistoryFromRecords(r).Changes(0.001)
	if len(changes) != 1 || !changes[0].Acceptable {
		t.Errorf("unknown baseline must classify acceptable, got %+v", changes)
	}
}

func TestHistoryChangesIgnoresDecreases(t *testing.T) {
	// A spurious decrease must not count as degradation.
	r1 := record(UnknownEstimate, Known(50, 50), 3600000, 1000)
	r2 := record(r1.New, Known(40, 40), 3600001, 2000)
	changes := HistoryFromRecords(r1, r2).Changes(1)
	if !changes[1].Acceptable {
		t.Error("a decrease floors to zero delta and must be acceptable")
	}
}

func TestHistoryChangesPartiallyKnownChannels(t *testing.T) {
	// Only channels reported on both sides contribute to the delta.
	r1 := record(UnknownEstimate, Estimate{A: intPtr(10)}, 3600000, 1000)
	r2 := record(r1.New, Estimate{A: intPtr(20), B: intPtr(90)}, 7200000, 2000)
	changes := HistoryFromRecords(r1, r2).Changes(20)
	if !changes[1].Acceptable {
		t.Error("B channel has no old value and must not contribute to the rate")
	}
}
