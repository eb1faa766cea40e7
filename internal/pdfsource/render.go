package pdfsource

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
)

// DefaultRenderDPI is the raster resolution used when a caller passes dpi <= 0.
const DefaultRenderDPI = 150

const renderJPEGQuality = 85

// RenderPage rasterizes one page of a PDF to JPEG bytes. pageIndex is
// zero-based. The document is opened and closed per call so that long batch
// runs never hold more than one document's worth of native resources.
func RenderPage(path string, pageIndex int, dpi float64) ([]byte, error) {
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer doc.Close()

	if pageIndex < 0 || pageIndex >= doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", pageIndex, doc.NumPage())
	}

	img, err := doc.ImageDPI(pageIndex, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", pageIndex, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: renderJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", pageIndex, err)
	}

	return buf.Bytes(), nil
}
