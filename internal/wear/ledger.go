package wear

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ErrLedgerChecksum indicates the ledger file does not match its recorded
// checksum and must not be trusted.
var ErrLedgerChecksum = errors.New("wear: ledger checksum mismatch")

const checksumSuffix = ".sum"

// SaveLedger writes the history as a JSON document alongside a blake2b-256
// checksum file. The pair is written ledger-then-sum so a crash between the
// two writes surfaces as a checksum mismatch on the next load.
func SaveLedger(path string, h History) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("wear: encoding ledger: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("wear: creating ledger directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("wear: writing ledger: %w", err)
	}
	sum := blake2b.Sum256(data)
	line := hex.EncodeToString(sum[:]) + "\n"
	if err := os.WriteFile(path+checksumSuffix, []byte(line), 0644); err != nil {
		return fmt.Errorf("wear: writing ledger checksum: %w", err)
	}
	return nil
}

// LoadLedger reads a history persisted by SaveLedger. A missing ledger is not
// an error and yields an empty history; a missing checksum file is tolerated
// for ledgers written by older revisions.
func LoadLedger(path string) (History, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return History{}, nil
	}
	if err != nil {
		return History{}, fmt.Errorf("wear: reading ledger: %w", err)
	}

	if sumData, err := os.ReadFile(path + checksumSuffix); err == nil {
		sum := blake2b.Sum256(data)
		want := strings.TrimSpace(string(sumData))
		if hex.EncodeToString(sum[:]) != want {
			return History{}, ErrLedgerChecksum
		}
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return History{}, fmt.Errorf("wear: decoding ledger: %w", err)
	}
	return HistoryFromRecords(h.Records...), nil
}
