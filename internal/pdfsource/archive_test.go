package pdfsource

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTestArchive(t *testing.T, entries map[string][]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "book.pdf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add entry %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("failed to write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finalize archive: %v", err)
	}

	return path
}

func TestOpenArchive(t *testing.T) {
	manifest := []byte(`{
		"pages": [
			{"page_number": 1, "has_visual_content": true, "image": {"path": "images/page_001.jpg"}},
			{"page_number": 2, "has_visual_content": false, "image": {"path": "images/page_002.jpg"}},
			{"page_number": 3, "has_visual_content": false, "image": {"path": "images/page_003.jpg"}}
		]
	}`)

	path := writeTestArchive(t, map[string][]byte{
		"manifest.json":       manifest,
		"images/page_001.jpg": []byte("diagram"),
		"images/page_002.jpg": []byte("table-a"),
		"images/page_003.jpg": []byte("table-b"),
	})

	dest := t.TempDir()
	m, err := OpenArchive(path, dest)
	if err != nil {
		t.Fatalf("OpenArchive failed: %v", err)
	}

	if len(m.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(m.Pages))
	}

	tables := m.TablePages()
	if len(tables) != 2 {
		t.Fatalf("expected 2 table pages, got %d", len(tables))
	}
	if tables[0].PageNumber != 2 || tables[1].PageNumber != 3 {
		t.Errorf("table pages out of order: %d, %d", tables[0].PageNumber, tables[1].PageNumber)
	}

	data, err := os.ReadFile(filepath.Join(dest, tables[0].Image.Path))
	if err != nil {
		t.Fatalf("extracted image missing: %v", err)
	}
	if string(data) != "table-a" {
		t.Errorf("extracted image content = %q, want %q", data, "table-a")
	}
}

func TestOpenArchiveMissingManifest(t *testing.T) {
	path := writeTestArchive(t, map[string][]byte{
		"images/page_001.jpg": []byte("diagram"),
	})

	_, err := OpenArchive(path, t.TempDir())
	if !errors.Is(err, ErrMissingManifest) {
		t.Fatalf("expected ErrMissingManifest, got %v", err)
	}
}

func TestOpenArchiveRejectsEscapingEntry(t *testing.T) {
	path := writeTestArchive(t, map[string][]byte{
		"../outside.txt": []byte("nope"),
	})

	if _, err := OpenArchive(path, t.TempDir()); err == nil {
		t.Fatal("expected error for escaping archive entry")
	}
}

func TestOpenArchiveNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "real.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7 not an archive"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := OpenArchive(path, t.TempDir()); err == nil {
		t.Fatal("expected error for non-zip input")
	}
}
