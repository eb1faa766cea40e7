package extract

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/motorsights/epcbook/internal/pdfsource"
	"github.com/motorsights/epcbook/internal/taxonomy"
)

// filenameCategories maps lowercase separator-stripped filename substrings to
// the bilingual category name for archive partbooks. Keys are checked in
// order; the first match wins.
var filenameCategories = []struct {
	key    string
	nameEN string
	nameCN string
}{
	{"driveaxle", "Drive Axle", "驱动桥"},
	{"drive_axle", "Drive Axle", "驱动桥"},
	{"steeringaxle", "Steering Axle", "转向桥"},
	{"steering_axle", "Steering Axle", "转向桥"},
}

const (
	fallbackCategoryEN = "Drive Axle"
	fallbackCategoryCN = "驱动桥"
)

// inferCategoryFromFilename derives the bilingual category name from the
// partbook filename. Unmatched filenames fall back to the default with a
// logged warning.
func (e *Engine) inferCategoryFromFilename(path string) (nameEN, nameCN string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ToLower(stem)
	stem = strings.ReplaceAll(stem, "-", "")
	stem = strings.ReplaceAll(stem, " ", "")

	for _, fc := range filenameCategories {
		if strings.Contains(stem, fc.key) {
			return fc.nameEN, fc.nameCN
		}
	}

	e.logger.Warn("could not infer category from filename, using default",
		"path", path, "default", fallbackCategoryEN)
	return fallbackCategoryEN, fallbackCategoryCN
}

// extractArchiveVision runs the archive/vision strategy: read the table title
// off every table page via vision, normalize, dedup, translate in one batch,
// and nest the unique titles as type categories under a single
// filename-inferred category.
func (e *Engine) extractArchiveVision(ctx context.Context, path string, format FileFormat, workdir string) (*taxonomy.ExtractionResult, error) {
	nameEN, nameCN := e.inferCategoryFromFilename(path)

	collector := NewCollector()

	if format == FormatArchive {
		manifest, err := e.readArchivePages(path, workdir)
		if err != nil {
			return nil, err
		}
		for _, page := range manifest.TablePages() {
			img, ok := e.readPageImage(workdir, page)
			if !ok {
				continue
			}
			if err := e.collectTitle(ctx, path, collector, img, page.PageNumber); err != nil {
				return nil, err
			}
		}
	} else {
		// A real PDF has no manifest to flag table pages, so every page
		// is rendered and offered to the title call; diagram pages come
		// back with a null title and are skipped.
		pageCount, err := pdfsource.PageCount(path)
		if err != nil {
			return nil, fileErr(StageFormat, path, err)
		}
		for i := 0; i < pageCount; i++ {
			img, err := pdfsource.RenderPage(path, i, e.opts.RenderDPI)
			if err != nil {
				e.logger.Warn("page render failed, skipping", "page", i+1, "error", err)
				continue
			}
			if err := e.collectTitle(ctx, path, collector, img, i+1); err != nil {
				return nil, err
			}
		}
	}

	titles := collector.Values()
	e.logger.Info("unique subtypes found", "path", path, "count", len(titles))

	translations := e.caller.TranslateBatch(ctx, titles)

	dataType := make([]taxonomy.TypeCategory, 0, len(translations))
	for _, t := range translations {
		dataType = append(dataType, taxonomy.TypeCategory{
			NameEN: t.EN,
			NameCN: t.CN,
		})
	}

	return &taxonomy.ExtractionResult{
		Categories: []taxonomy.Category{{
			NameEN:   nameEN,
			NameCN:   nameCN,
			DataType: dataType,
		}},
	}, nil
}

// collectTitle runs the single-title call for one page image and feeds the
// normalized result into the collector. Recognition failures skip the page;
// validation-retry exhaustion aborts the file.
func (e *Engine) collectTitle(ctx context.Context, path string, collector *Collector, img []byte, pageNum int) error {
	rawTitle, err := e.caller.ExtractSingleTitle(ctx, img)
	if err != nil {
		if errors.Is(err, ErrRetriesExhausted) {
			return fileErr(StageValidation, path, err)
		}
		e.logger.Warn("title extraction failed, skipping page",
			"page", pageNum, "error", err)
		return nil
	}
	if rawTitle == "" {
		e.logger.Debug("no title on page", "page", pageNum)
		return nil
	}

	title := NormalizeTitle(rawTitle)
	if title == "" {
		return nil
	}
	if collector.Add(title) {
		e.logger.Info("new subtype", "page", pageNum, "title", title)
	}
	return nil
}
