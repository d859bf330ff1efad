package wear

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := MigrateWearTables(db); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreAndLoadHistory(t *testing.T) {
	db := setupTestDB(t)

	r1 := record(UnknownEstimate, Known(10, 20), 5000, 2000)
	r2 := record(r1.New, Known(10, 40), 9000, 16000)
	r3 := record(r2.New, Known(20, 40), 12000, 21000)

	// Out of order on purpose; LoadHistory must still come back sorted.
	for _, r := range []Record{r2, r3, r1} {
		if err := StoreRecord(db, r); err != nil {
			t.Fatalf("StoreRecord failed: %v", err)
		}
	}

	loaded, err := LoadHistory(db)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}

	want := HistoryFromRecords(r1, r2, r3)
	if !want.Equal(loaded) {
		t.Errorf("loaded history %+v, want %+v", loaded, want)
	}
	for i := 1; i < len(loaded.Records); i++ {
		if loaded.Records[i-1].UptimeMillis > loaded.Records[i].UptimeMillis {
			t.Fatal("loaded records not sorted by uptime")
		}
	}
}

func TestStoreRecordUpsert(t *testing.T) {
	db := setupTestDB(t)

	r := record(UnknownEstimate, Known(10, 20), 5000, 2000)
	if err := StoreRecord(db, r); err != nil {
		t.Fatalf("StoreRecord failed: %v", err)
	}
	r.New = Known(10, 30)
	if err := StoreRecord(db, r); err != nil {
		t.Fatalf("StoreRecord (upsert) failed: %v", err)
	}

	loaded, err := LoadHistory(db)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(loaded.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(loaded.Records))
	}
	if !loaded.Records[0].New.Equal(Known(10, 30)) {
		t.Errorf("upsert did not replace estimate: %+v", loaded.Records[0])
	}
}

func TestLoadHistoryEmpty(t *testing.T) {
	db := setupTestDB(t)
	loaded, err := LoadHistory(db)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(loaded.Records) != 0 {
		t.Errorf("expected empty history, got %d records", len(loaded.Records))
	}
}
