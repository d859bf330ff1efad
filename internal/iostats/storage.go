package iostats

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const timeFormat = "2006-01-02 15:04:05.999999999"

// MigrateIoTables creates the io_windows table. Entries are stored as a JSON
// blob since they are only ever read back whole.
func MigrateIoTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS io_windows (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		window_millis INTEGER NOT NULL,
		entries_json  TEXT    NOT NULL,
		closed_at     DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_io_windows_closed ON io_windows(closed_at);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("iostats migration failed: %w", err)
	}
	return nil
}

// StoreWindow persists a completed reporting window.
func StoreWindow(db *sql.DB, w Window, closedAt time.Time) error {
	entries, err := json.Marshal(w.Entries)
	if err != nil {
		return fmt.Errorf("iostats: encoding window entries: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO io_windows (window_millis, entries_json, closed_at)
		VALUES (?, ?, ?)
	`, w.WindowMillis, string(entries), closedAt.UTC().Format(timeFormat))
	return err
}

// RecentWindows returns up to limit windows, newest first.
func RecentWindows(db *sql.DB, limit int) ([]Window, error) {
	rows, err := db.Query(`
		SELECT window_millis, entries_json
		FROM io_windows
		ORDER BY closed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []Window
	for rows.Next() {
		var w Window
		var entriesJSON string
		if err := rows.Scan(&w.WindowMillis, &entriesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(entriesJSON), &w.Entries); err != nil {
			return nil, fmt.Errorf("iostats: decoding window entries: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}
