package wear

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const timeFormat = "2006-01-02 15:04:05.999999999"

// MigrateWearTables creates the wear_history table.
func MigrateWearTables(db *sql.DB) error {
	statements := []struct {
		label string
		sql   string
	}{
		{"wear_history", `
			CREATE TABLE IF NOT EXISTS wear_history (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				old_estimate  TEXT    NOT NULL,
				new_estimate  TEXT    NOT NULL,
				uptime_millis INTEGER NOT NULL,
				timestamp     DATETIME NOT NULL,
				UNIQUE(uptime_millis, timestamp)
			);`},
		{"wear_history indexes", `
			CREATE INDEX IF NOT EXISTS idx_wear_uptime ON wear_history(uptime_millis);`},
	}

	for _, s := range statements {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("wear migration failed at [%s]: %w", s.label, err)
		}
	}
	return nil
}

// StoreRecord persists one estimate transition. Estimates are stored as JSON
// so the nullable channels survive unchanged.
func StoreRecord(db *sql.DB, r Record) error {
	oldJSON, err := json.Marshal(r.Old)
	if err != nil {
		return fmt.Errorf("wear: encoding old estimate: %w", err)
	}
	newJSON, err := json.Marshal(r.New)
	if err != nil {
		return fmt.Errorf("wear: encoding new estimate: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO wear_history (old_estimate, new_estimate, uptime_millis, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(uptime_millis, timestamp) DO UPDATE SET
			old_estimate = excluded.old_estimate,
			new_estimate = excluded.new_estimate
	`, string(oldJSON), string(newJSON), r.UptimeMillis, r.Timestamp.UTC().Format(timeFormat))
	return err
}

// LoadHistory reads every persisted transition back into a History.
func LoadHistory(db *sql.DB) (History, error) {
	rows, err := db.Query(`
		SELECT old_estimate, new_estimate, uptime_millis, timestamp
		FROM wear_history
		ORDER BY uptime_millis ASC
	`)
	if err != nil {
		return History{}, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var oldJSON, newJSON, ts string
		if err := rows.Scan(&oldJSON, &newJSON, &r.UptimeMillis, &ts); err != nil {
			return History{}, err
		}
		if err := json.Unmarshal([]byte(oldJSON), &r.Old); err != nil {
			return History{}, fmt.Errorf("wear: decoding old estimate: %w", err)
		}
		if err := json.Unmarshal([]byte(newJSON), &r.New); err != nil {
			return History{}, fmt.Errorf("wear: decoding new estimate: %w", err)
		}
		r.Timestamp, _ = time.Parse(timeFormat, ts)
		r.Timestamp = r.Timestamp.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return History{}, err
	}
	return HistoryFromRecords(records...), nil
}
