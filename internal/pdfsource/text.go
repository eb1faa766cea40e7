package pdfsource

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// DocumentText extracts the text layer of every page and joins the pages
// with "--- Page N ---" separators (1-based page numbers). Pages with no
// extractable text are omitted; an image-only document yields "".
func DocumentText(path string) (string, error) {
	return documentText(path, 0)
}

// LeadPagesText is DocumentText limited to the first maxPages pages. A
// maxPages <= 0 reads the whole document.
func LeadPagesText(path string, maxPages int) (string, error) {
	return documentText(path, maxPages)
}

func documentText(path string, maxPages int) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && maxPages < n {
		n = maxPages
	}

	var blocks []string
	for i := 0; i < n; i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i+1, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("--- Page %d ---\n%s", i+1, text))
	}

	return strings.Join(blocks, "\n\n"), nil
}
