package extract

import (
	"log/slog"
	"os"
)

// FileFormat is the sniffed structural format of a partbook file.
type FileFormat string

const (
	// FormatArchive is a ZIP archive of page images plus a manifest.json,
	// shipped with a .pdf extension by some catalog systems.
	FormatArchive FileFormat = "archive"
	// FormatRealPDF is an actual PDF document.
	FormatRealPDF FileFormat = "real_pdf"
)

// DetectFormat sniffs whether the file at path is an archive-format partbook
// or a real PDF, using the ZIP local-file-header magic. An unreadable file is
// reported as FormatRealPDF with a warning so downstream PDF handling
// produces the definitive error.
func DetectFormat(path string, logger *slog.Logger) FileFormat {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("could not read file for format detection, assuming real PDF",
			"path", path, "error", err)
		return FormatRealPDF
	}
	defer f.Close()

	magic := make([]byte, 4)
	n, err := f.Read(magic)
	if err != nil || n < 2 {
		logger.Warn("could not read file header, assuming real PDF",
			"path", path, "error", err)
		return FormatRealPDF
	}

	if magic[0] == 'P' && magic[1] == 'K' {
		return FormatArchive
	}
	return FormatRealPDF
}
