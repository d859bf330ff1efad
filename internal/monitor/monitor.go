// Package monitor is the polling service around the wear and iostats cores:
// it detects estimate transitions, maintains the persistent history, closes
// per-uid I/O reporting windows and publishes events for anything noteworthy.
package monitor

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"storagemon/internal/config"
	"storagemon/internal/db"
	"storagemon/internal/events"
	"storagemon/internal/iostats"
	"storagemon/internal/wear"
)

const uptimeMetaKey = "accumulated_uptime_millis"

// Monitor polls the wear and I/O sources on a fixed cadence. It is the only
// writer of the evolving history and window state; the core types it holds
// are immutable values.
type Monitor struct {
	cfg       config.Config
	store     *sql.DB
	bus       *events.Bus
	providers []wear.Provider

	history    wear.History
	uptimeBase int64
	startedAt  time.Time

	baselines    map[int]iostats.Snapshot
	latest       map[int]iostats.Snapshot
	windowOpened time.Time
}

// New builds a monitor, restoring the wear history from the ledger (or from
// the database if the ledger is corrupt) and the accumulated uptime counter.
func New(cfg config.Config, store *sql.DB, bus *events.Bus) (*Monitor, error) {
	history, err := wear.LoadLedger(cfg.LedgerPath)
	if errors.Is(err, wear.ErrLedgerChecksum) {
		log.Printf("monitor: wear ledger corrupt, rebuilding from database")
		history, err = wear.LoadHistory(store)
	}
	if err != nil {
		return nil, fmt.Errorf("monitor: restoring wear history: %w", err)
	}

	uptimeBase, err := strconv.ParseInt(db.GetMeta(store, uptimeMetaKey, "0"), 10, 64)
	if err != nil {
		uptimeBase = 0
	}

	return &Monitor{
		cfg:   cfg,
		store: store,
		bus:   bus,
		providers: []wear.Provider{
			wear.EMMCProvider{LifetimePath: cfg.EMMCLifetimePath, EOLPath: cfg.EMMCEOLPath},
			wear.UFSProvider{Path: cfg.UFSHealthPath},
		},
		history:    history,
		uptimeBase: uptimeBase,
		startedAt:  time.Now(),
	}, nil
}

// History returns the current wear history.
func (m *Monitor) History() wear.History {
	return m.history
}

// UptimeMillis is the accumulated service uptime across restarts.
func (m *Monitor) UptimeMillis() int64 {
	return m.uptimeBase + time.Since(m.startedAt).Milliseconds()
}

// Poll runs one wear poll and one I/O poll, then checkpoints the uptime
// counter.
func (m *Monitor) Poll() {
	now := time.Now().UTC()
	m.pollWear(now)
	m.pollIo(now)

	if err := db.SetMeta(m.store, uptimeMetaKey, strconv.FormatInt(m.UptimeMillis(), 10)); err != nil {
		log.Printf("monitor: checkpointing uptime: %v", err)
	}
}

// pollWear loads wear information from the first provider that succeeds and
// appends a record if the reported estimate moved.
func (m *Monitor) pollWear(now time.Time) {
	var info *wear.Information
	var lastErr error
	for _, p := range m.providers {
		loaded, err := p.Load()
		if err != nil {
			lastErr = err
			continue
		}
		info = loaded
		break
	}
	if info == nil {
		m.bus.Publish(events.Event{
			Type:     events.PollFailed,
			Severity: events.SeverityInfo,
			Message:  fmt.Sprintf("no wear data this cycle: %v", lastErr),
		})
		return
	}

	if info.PreEOL >= wear.PreEOLWarning {
		m.bus.Publish(events.Event{
			Type:     events.PreEOLWarning,
			Severity: events.SeverityCritical,
			Message:  fmt.Sprintf("device reports pre-EOL state %s", info.PreEOL),
		})
	}

	current := info.Estimate()
	last := wear.UnknownEstimate
	if r, ok := m.history.Last(); ok {
		last = r.New
	}
	if current.Equal(last) {
		return
	}

	record := wear.Record{
		Old:          last,
		New:          current,
		UptimeMillis: m.UptimeMillis(),
		Timestamp:    now,
	}
	m.history = m.history.Append(record)

	if err := wear.SaveLedger(m.cfg.LedgerPath, m.history); err != nil {
		log.Printf("monitor: saving wear ledger: %v", err)
	}
	if err := wear.StoreRecord(m.store, record); err != nil {
		log.Printf("monitor: storing wear record: %v", err)
	}

	m.bus.Publish(events.Event{
		Type:     events.WearChanged,
		Severity: events.SeverityInfo,
		Message:  "device wear estimate changed",
		Metadata: map[string]string{
			"uptime_millis": strconv.FormatInt(record.UptimeMillis, 10),
		},
	})

	changes := m.history.Changes(m.cfg.MaxWearRate)
	if latest := changes[len(changes)-1]; !latest.Acceptable {
		m.bus.Publish(events.Event{
			Type:     events.DegradationAbnormal,
			Severity: events.SeverityCritical,
			Message: fmt.Sprintf("wear estimate degraded faster than %.2f%%/hour",
				m.cfg.MaxWearRate),
		})
	}
}

// pollIo refreshes the per-uid cumulative snapshots and closes the reporting
// window once it has run its course.
func (m *Monitor) pollIo(now time.Time) {
	records, err := iostats.LoadUIDIoStats(m.cfg.UIDIoStatsPath)
	if err != nil {
		m.bus.Publish(events.Event{
			Type:     events.PollFailed,
			Severity: events.SeverityInfo,
			Message:  fmt.Sprintf("no I/O data this cycle: %v", err),
		})
		return
	}

	runtime := m.UptimeMillis()
	snapshots := make(map[int]iostats.Snapshot, len(records))
	for uid, rec := range records {
		snapshots[uid] = iostats.SnapshotFromRecord(rec, runtime)
	}

	if m.baselines == nil {
		m.baselines = snapshots
		m.latest = snapshots
		m.windowOpened = now
		return
	}
	m.latest = snapshots

	if now.Sub(m.windowOpened) < m.cfg.WindowLength {
		return
	}
	m.closeWindow(now)
}

// closeWindow turns the accumulated per-uid deltas into a Window, persists
// it and rolls the baselines forward.
func (m *Monitor) closeWindow(now time.Time) {
	entries := make([]iostats.Snapshot, 0, len(m.latest))
	for uid, snap := range m.latest {
		baseline, ok := m.baselines[uid]
		if !ok {
			// uid appeared mid-window; everything it did counts.
			entries = append(entries, snap)
			continue
		}
		delta, err := snap.Delta(baseline)
		if err != nil {
			log.Printf("monitor: delta for uid %d: %v", uid, err)
			continue
		}
		entries = append(entries, delta)
	}

	window := iostats.Window{
		Entries:      entries,
		WindowMillis: now.Sub(m.windowOpened).Milliseconds(),
	}
	if err := iostats.StoreWindow(m.store, window, now); err != nil {
		log.Printf("monitor: storing io window: %v", err)
	}

	totals := window.Totals()
	m.bus.Publish(events.Event{
		Type:     events.IoWindowClosed,
		Severity: events.SeverityInfo,
		Message:  fmt.Sprintf("io window closed: %d uids", len(entries)),
		Metadata: map[string]string{
			"bytes_written": strconv.FormatInt(totals.BytesWrittenToStorage, 10),
			"bytes_read":    strconv.FormatInt(totals.BytesReadFromStorage, 10),
		},
	})
	if totals.BytesWrittenToStorage > m.cfg.OveruseWriteBytes {
		m.bus.Publish(events.Event{
			Type:     events.IoOveruse,
			Severity: events.SeverityCritical,
			Message: fmt.Sprintf("window wrote %d bytes to storage, above the %d byte limit",
				totals.BytesWrittenToStorage, m.cfg.OveruseWriteBytes),
		})
	}

	m.baselines = m.latest
	m.windowOpened = now
}

// Close checkpoints the uptime counter one last time.
func (m *Monitor) Close() {
	if err := db.SetMeta(m.store, uptimeMetaKey, strconv.FormatInt(m.UptimeMillis(), 10)); err != nil {
		log.Printf("monitor: final uptime checkpoint: %v", err)
	}
}
