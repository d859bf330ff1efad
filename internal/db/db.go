package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"storagemon/internal/iostats"
	"storagemon/internal/wear"
)

var DB *sql.DB

// Init initializes the database connection and schema.
func Init(path string) error {
	var err error

	if err = ensureDirectory(path); err != nil {
		return err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	DB, err = sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	if err = DB.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	enableWAL()
	if err = createSchema(); err != nil {
		return err
	}
	if err = wear.MigrateWearTables(DB); err != nil {
		return err
	}
	return iostats.MigrateIoTables(DB)
}

func ensureDirectory(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	return nil
}

func enableWAL() {
	if _, err := DB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Printf("could not enable WAL mode: %v", err)
	}
}

func createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	if _, err := DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// GetMeta returns the value stored under key, or fallback if absent.
func GetMeta(db *sql.DB, key, fallback string) string {
	var value string
	if err := db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value); err != nil {
		return fallback
	}
	return value
}

// SetMeta stores a key/value pair, replacing any previous value.
func SetMeta(db *sql.DB, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
