// Package pdfsource provides the page-level content adapters used by the
// extraction strategies: archive (ZIP + manifest) unpacking, page raster
// rendering, text-layer region cropping, and whole-document text.
package pdfsource

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingManifest indicates an archive-format partbook without a
// manifest.json. This is a format-level error: the file cannot be processed.
var ErrMissingManifest = errors.New("manifest.json not found in archive")

// Manifest describes the pages of an archive-format partbook.
type Manifest struct {
	Pages []ManifestPage `json:"pages"`
}

// ManifestPage is one page entry in the manifest. Pages with visual content
// are diagrams; the rest are parts tables.
type ManifestPage struct {
	PageNumber       int  `json:"page_number"`
	HasVisualContent bool `json:"has_visual_content"`
	Image            struct {
		Path string `json:"path"`
	} `json:"image"`
}

// TablePages returns the manifest pages flagged as parts tables
// (has_visual_content = false), in manifest order.
func (m *Manifest) TablePages() []ManifestPage {
	var pages []ManifestPage
	for _, p := range m.Pages {
		if !p.HasVisualContent {
			pages = append(pages, p)
		}
	}
	return pages
}

// OpenArchive extracts an archive-format partbook into destDir and returns
// its parsed manifest. The caller owns destDir and must remove it when done,
// including on failure.
func OpenArchive(path, destDir string) (*Manifest, error) {
	if err := extractZip(path, destDir); err != nil {
		return nil, fmt.Errorf("failed to extract archive %s: %w", path, err)
	}

	manifestPath := filepath.Join(destDir, "manifest.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingManifest, path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest.json: %w", err)
	}

	return &manifest, nil
}

// extractZip unpacks a ZIP file into destDir, rejecting entries that would
// escape the destination.
func extractZip(path, destDir string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(destDir, filepath.Clean(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractZipEntry(f, target); err != nil {
			return err
		}
	}

	return nil
}

func extractZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
