package iostats

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// The kernel table has one line per uid: the uid followed by five foreground
// and five background counters.
const columnsPerLine = 11

// ParseUIDIoStats parses the cumulative per-uid I/O counter table. Parsing is
// all-or-nothing: one malformed line invalidates the whole poll, since a
// partial table would misrepresent system-wide I/O. Duplicate uids are
// last-write-wins.
func ParseUIDIoStats(r io.Reader) (map[int]Record, error) {
	records := make(map[int]Record)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != columnsPerLine {
			return nil, fmt.Errorf("iostats: line %d has %d fields, want %d", lineNo, len(fields), columnsPerLine)
		}
		values := make([]int64, columnsPerLine)
		for i, f := range fields {
			v, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("iostats: line %d field %d: %w", lineNo, i+1, err)
			}
			values[i] = v
		}
		rec := Record{
			UID:        int(values[0]),
			Foreground: Counters{Rchar: values[1], Wchar: values[2], ReadBytes: values[3], WriteBytes: values[4], Fsync: values[5]},
			Background: Counters{Rchar: values[6], Wchar: values[7], ReadBytes: values[8], WriteBytes: values[9], Fsync: values[10]},
		}
		records[rec.UID] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("iostats: reading counter table: %w", err)
	}
	return records, nil
}

// LoadUIDIoStats reads and parses the counter table from a file.
func LoadUIDIoStats(path string) (map[int]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("iostats: reading counter table: %w", err)
	}
	defer f.Close()
	return ParseUIDIoStats(f)
}
