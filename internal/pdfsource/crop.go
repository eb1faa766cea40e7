package pdfsource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Region is a fractional page rectangle in top-left coordinates: X0/Y0 is the
// upper-left corner and X1/Y1 the lower-right, all in [0,1] of page size.
type Region struct {
	X0, Y0, X1, Y1 float64
}

// TitleRegion covers the upper-right band of a parts-table page where the
// bilingual assembly title is printed: from 42% of the width to the right
// edge, within the top 7% of the page.
var TitleRegion = Region{X0: 0.42, Y0: 0, X1: 1.0, Y1: 0.07}

// lineTolerance groups positioned glyph runs into lines when their baselines
// are within this many points.
const lineTolerance = 2.0

// CropRegionText extracts the positioned text inside a fractional region of
// one page, without any LLM involvement. pageIndex is zero-based. Runs are
// grouped into lines top to bottom and ordered left to right within a line.
func CropRegionText(path string, pageIndex int, region Region) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	if pageIndex < 0 || pageIndex >= reader.NumPage() {
		return "", fmt.Errorf("page %d out of range (document has %d pages)", pageIndex, reader.NumPage())
	}

	page := reader.Page(pageIndex + 1)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d has no content", pageIndex+1)
	}

	width, height := pageSize(page)
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("page %d has no usable media box", pageIndex+1)
	}

	// PDF text coordinates grow bottom-up; flip the fractional Y band.
	minX := region.X0 * width
	maxX := region.X1 * width
	minY := (1 - region.Y1) * height
	maxY := (1 - region.Y0) * height

	var runs []pdf.Text
	for _, t := range page.Content().Text {
		if t.X >= minX && t.X <= maxX && t.Y >= minY && t.Y <= maxY {
			runs = append(runs, t)
		}
	}
	if len(runs) == 0 {
		return "", nil
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if diff := runs[i].Y - runs[j].Y; diff > lineTolerance || diff < -lineTolerance {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var sb strings.Builder
	lineY := runs[0].Y
	for _, r := range runs {
		if lineY-r.Y > lineTolerance {
			sb.WriteString("\n")
			lineY = r.Y
		}
		sb.WriteString(r.S)
	}

	return strings.TrimSpace(sb.String()), nil
}

func pageSize(page pdf.Page) (width, height float64) {
	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Len() < 4 {
		return 0, 0
	}
	x0 := box.Index(0).Float64()
	y0 := box.Index(1).Float64()
	x1 := box.Index(2).Float64()
	y1 := box.Index(3).Float64()
	return x1 - x0, y1 - y0
}
