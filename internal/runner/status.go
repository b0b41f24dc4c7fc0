package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultStatusPath is where the daemon publishes its run history for
// the status command to read.
const DefaultStatusPath = "/var/run/borgsched/status.json"

type statusDoc struct {
	WrittenAt time.Time   `json:"written_at"`
	Records   []RunRecord `json:"records"`
}

// WriteStatus publishes records to path, newest last. The document is
// written to a temporary file and renamed into place, so a concurrent
// reader sees either the old history or the new one, never a torn
// write.
func WriteStatus(path string, records []RunRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	data, err := json.MarshalIndent(statusDoc{WrittenAt: time.Now(), Records: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".status-*")
	if err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("write status: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}

// ReadStatus loads the history last published to path. A missing file
// is reported with os.IsNotExist so callers can tell "no daemon has
// run" from a broken document.
func ReadStatus(path string) (time.Time, []RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, nil, err
	}
	var doc statusDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return time.Time{}, nil, fmt.Errorf("decode status %s: %w", path, err)
	}
	return doc.WrittenAt, doc.Records, nil
}
