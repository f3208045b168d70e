package capture

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// ReadRecordsFile reads one scrape pass stored as JSONL, one RawRecord per
// line in reading order. Blank and malformed lines are skipped.
func ReadRecordsFile(path string) ([]transcript.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var records []transcript.RawRecord

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB line buffer
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec transcript.RawRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue // skip malformed lines
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return records, nil
}
