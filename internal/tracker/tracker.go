// Package tracker records which partbook files have already been processed,
// keyed by content hash, so batch runs can skip unchanged files.
package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is one processed-file entry.
type Record struct {
	Path        string    `json:"path"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processed_at"`
	Details     string    `json:"details,omitempty"`
}

// Tracker is a JSON-file-backed processed-files log. Safe for concurrent use
// within one process; the log file is rewritten on every update.
type Tracker struct {
	path string

	mu      sync.Mutex
	records map[string]Record
}

// Load opens the tracker log at path, creating an empty one if it does not
// exist yet.
func Load(path string) (*Tracker, error) {
	t := &Tracker{path: path, records: make(map[string]Record)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("failed to read tracker log: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &t.records); err != nil {
			return nil, fmt.Errorf("failed to parse tracker log %s: %w", path, err)
		}
	}
	return t, nil
}

// HashFile returns the sha256 hex digest of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Processed reports whether the given content hash has a successful record.
func (t *Tracker) Processed(hash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[hash]
	return ok && rec.Status == "success"
}

// Mark records the outcome for a content hash and persists the log.
func (t *Tracker) Mark(hash, path, status, details string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records[hash] = Record{
		Path:        path,
		Status:      status,
		ProcessedAt: time.Now().UTC(),
		Details:     details,
	}
	return t.save()
}

// Len returns the number of recorded files.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// save must be called with the lock held.
func (t *Tracker) save() error {
	data, err := json.MarshalIndent(t.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tracker log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("failed to create tracker directory: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tracker log: %w", err)
	}
	return os.Rename(tmp, t.path)
}
