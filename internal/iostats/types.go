// Package iostats models per-application block I/O accounting: raw cumulative
// counters as the kernel reports them, normalized foreground/background
// snapshots, and windowed delta aggregates.
package iostats

import (
	"errors"
	"fmt"
)

// ErrUIDMismatch is returned when a delta is requested between entities
// attributed to different applications. That is a caller bug, never a data
// condition.
var ErrUIDMismatch = errors.New("iostats: delta requires matching uids")

// Metrics is the normalized 5-tuple of I/O counters, cumulative or delta
// depending on context.
type Metrics struct {
	BytesRead             int64 `json:"bytes_read"`
	BytesWritten          int64 `json:"bytes_written"`
	BytesReadFromStorage  int64 `json:"bytes_read_from_storage"`
	BytesWrittenToStorage int64 `json:"bytes_written_to_storage"`
	FsyncCalls            int64 `json:"fsync_calls"`
}

// Plus returns the field-wise sum of two metric tuples.
func (m Metrics) Plus(other Metrics) Metrics {
	return Metrics{
		BytesRead:             m.BytesRead + other.BytesRead,
		BytesWritten:          m.BytesWritten + other.BytesWritten,
		BytesReadFromStorage:  m.BytesReadFromStorage + other.BytesReadFromStorage,
		BytesWrittenToStorage: m.BytesWrittenToStorage + other.BytesWrittenToStorage,
		FsyncCalls:            m.FsyncCalls + other.FsyncCalls,
	}
}

// Minus returns the field-wise difference. No clamping: counter resets in the
// source legitimately produce negative deltas (see Snapshot.Validate).
func (m Metrics) Minus(other Metrics) Metrics {
	return Metrics{
		BytesRead:             m.BytesRead - other.BytesRead,
		BytesWritten:          m.BytesWritten - other.BytesWritten,
		BytesReadFromStorage:  m.BytesReadFromStorage - other.BytesReadFromStorage,
		BytesWrittenToStorage: m.BytesWrittenToStorage - other.BytesWrittenToStorage,
		FsyncCalls:            m.FsyncCalls - other.FsyncCalls,
	}
}

// Counters is one raw foreground or background counter group, field names
// matching the kernel table columns.
type Counters struct {
	Rchar      int64 `json:"rchar"`
	Wchar      int64 `json:"wchar"`
	ReadBytes  int64 `json:"read_bytes"`
	WriteBytes int64 `json:"write_bytes"`
	Fsync      int64 `json:"fsync"`
}

// metrics maps the raw columns onto the normalized tuple.
func (c Counters) metrics() Metrics {
	return Metrics{
		BytesRead:             c.Rchar,
		BytesWritten:          c.Wchar,
		BytesReadFromStorage:  c.ReadBytes,
		BytesWrittenToStorage: c.WriteBytes,
		FsyncCalls:            c.Fsync,
	}
}

func countersFromMetrics(m Metrics) Counters {
	return Counters{
		Rchar:      m.BytesRead,
		Wchar:      m.BytesWritten,
		ReadBytes:  m.BytesReadFromStorage,
		WriteBytes: m.BytesWrittenToStorage,
		Fsync:      m.FsyncCalls,
	}
}

// Record is the raw per-application cumulative counter set as reported by the
// kernel, produced fresh each poll.
type Record struct {
	UID        int      `json:"uid"`
	Foreground Counters `json:"foreground"`
	Background Counters `json:"background"`
}

// Delta subtracts an already-normalized baseline snapshot from this record,
// staying in counter space.
func (r Record) Delta(baseline Snapshot) (Record, error) {
	if r.UID != baseline.UID {
		return Record{}, fmt.Errorf("%w: record uid %d, baseline uid %d", ErrUIDMismatch, r.UID, baseline.UID)
	}
	return Record{
		UID:        r.UID,
		Foreground: countersFromMetrics(r.Foreground.metrics().Minus(baseline.Foreground)),
		Background: countersFromMetrics(r.Background.metrics().Minus(baseline.Background)),
	}, nil
}

// Snapshot is the normalized per-application usage view: cumulative when
// taken directly from a Record, or a delta when produced by Delta.
type Snapshot struct {
	UID           int     `json:"uid"`
	RuntimeMillis int64   `json:"runtime_millis"`
	Foreground    Metrics `json:"foreground"`
	Background    Metrics `json:"background"`
}

// SnapshotFromRecord normalizes a raw record, attributing the given runtime.
func SnapshotFromRecord(r Record, runtimeMillis int64) Snapshot {
	return Snapshot{
		UID:           r.UID,
		RuntimeMillis: runtimeMillis,
		Foreground:    r.Foreground.metrics(),
		Background:    r.Background.metrics(),
	}
}

// Delta subtracts an older snapshot of the same application, field-wise and
// without clamping.
func (s Snapshot) Delta(older Snapshot) (Snapshot, error) {
	if s.UID != older.UID {
		return Snapshot{}, fmt.Errorf("%w: snapshot uid %d, older uid %d", ErrUIDMismatch, s.UID, older.UID)
	}
	return Snapshot{
		UID:           s.UID,
		RuntimeMillis: s.RuntimeMillis - older.RuntimeMillis,
		Foreground:    s.Foreground.Minus(older.Foreground),
		Background:    s.Background.Minus(older.Background),
	}, nil
}

// Validate reports whether any counter is negative, which in a source
// snapshot indicates a kernel counter reset or wraparound. Deltas are never
// validated implicitly.
func (s Snapshot) Validate() error {
	for _, m := range []Metrics{s.Foreground, s.Background} {
		if m.BytesRead < 0 || m.BytesWritten < 0 || m.BytesReadFromStorage < 0 ||
			m.BytesWrittenToStorage < 0 || m.FsyncCalls < 0 {
			return fmt.Errorf("iostats: uid %d has negative counters", s.UID)
		}
	}
	return nil
}
