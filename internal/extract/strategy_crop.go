package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/motorsights/epcbook/internal/pdfsource"
	"github.com/motorsights/epcbook/internal/taxonomy"
)

// extractCrop runs the geometric-crop strategy: every page carries a
// bilingual category label in a fixed header region, read straight from the
// PDF text layer. For a real PDF this costs zero LLM tokens; that is the
// point of the strategy, not a side effect. Archive inputs have no text
// layer, so they fall back to per-page vision title extraction before the
// same bilingual split.
func (e *Engine) extractCrop(ctx context.Context, path string, format FileFormat, workdir string) (*taxonomy.ExtractionResult, error) {
	collector := NewCollector()

	if format == FormatArchive {
		if err := e.collectArchiveLabels(ctx, path, workdir, collector); err != nil {
			return nil, err
		}
	} else {
		if err := e.collectCroppedLabels(path, collector); err != nil {
			return nil, err
		}
	}

	labels := collector.Values()
	e.logger.Info("unique header labels found", "path", path, "count", len(labels))

	result := &taxonomy.ExtractionResult{}
	for _, label := range labels {
		cn, en := SplitBilingualLabel(label)
		if cn == "" && en == "" {
			continue
		}
		result.Categories = append(result.Categories, taxonomy.Category{
			NameEN: en,
			NameCN: cn,
		})
	}
	return result, nil
}

func (e *Engine) collectCroppedLabels(path string, collector *Collector) error {
	pageCount, err := pdfsource.PageCount(path)
	if err != nil {
		return fileErr(StageFormat, path, err)
	}

	for i := 0; i < pageCount; i++ {
		raw, err := pdfsource.CropRegionText(path, i, e.opts.CropRegion)
		if err != nil {
			e.logger.Warn("region crop failed, skipping page", "page", i+1, "error", err)
			continue
		}
		label := lastLine(raw)
		if label == "" {
			continue
		}
		if collector.Add(label) {
			e.logger.Debug("unique header", "page", i+1, "label", label)
		}
	}
	return nil
}

func (e *Engine) collectArchiveLabels(ctx context.Context, path, workdir string, collector *Collector) error {
	manifest, err := e.readArchivePages(path, workdir)
	if err != nil {
		return err
	}

	for _, page := range manifest.Pages {
		img, ok := e.readPageImage(workdir, page)
		if !ok {
			continue
		}
		label, err := e.caller.ExtractSingleTitle(ctx, img)
		if err != nil {
			if errors.Is(err, ErrRetriesExhausted) {
				return fileErr(StageValidation, path, err)
			}
			e.logger.Warn("header extraction failed, skipping page",
				"page", page.PageNumber, "error", err)
			continue
		}
		collector.Add(strings.TrimSpace(label))
	}
	return nil
}

// lastLine returns the last non-empty line of a cropped header region. The
// header may span two lines; the category label is the bottom one.
func lastLine(raw string) string {
	lines := strings.Split(raw, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
