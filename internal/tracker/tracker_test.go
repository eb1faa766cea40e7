package tracker

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTrackerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "processed.json")

	filePath := filepath.Join(dir, "book.pdf")
	if err := os.WriteFile(filePath, []byte("pdf content"), 0o644); err != nil {
		t.Fatal(err)
	}

	hash, err := HashFile(filePath)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}

	tr, err := Load(logPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tr.Processed(hash) {
		t.Error("fresh tracker should not know the hash")
	}

	if err := tr.Mark(hash, filePath, "success", "2 categories"); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if !tr.Processed(hash) {
		t.Error("hash should be processed after Mark")
	}

	// Reload from disk and confirm persistence.
	tr2, err := Load(logPath)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !tr2.Processed(hash) {
		t.Error("persisted record lost on reload")
	}
	if tr2.Len() != 1 {
		t.Errorf("Len = %d, want 1", tr2.Len())
	}
}

func TestFailedStatusIsNotProcessed(t *testing.T) {
	tr, err := Load(filepath.Join(t.TempDir(), "processed.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Mark("abc123", "book.pdf", "failed", "manifest missing"); err != nil {
		t.Fatal(err)
	}
	if tr.Processed("abc123") {
		t.Error("failed records must not count as processed")
	}
}

func TestHashFileStable(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	os.WriteFile(a, []byte("same"), 0o644)
	os.WriteFile(b, []byte("same"), 0o644)

	ha, err := HashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := HashFile(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Error("identical content must hash identically")
	}

	os.WriteFile(b, []byte("different"), 0o644)
	hb2, _ := HashFile(b)
	if ha == hb2 {
		t.Error("different content must hash differently")
	}
}
