package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/motorsights/epcbook/internal/pdfsource"
	"github.com/motorsights/epcbook/internal/taxonomy"
)

// extractToC runs the table-of-contents strategy: read the ToC from the lead
// pages and translate it into a flat bilingual category list. Direct text
// extraction is strictly cheaper than vision, so it is tried first; the
// per-page vision path only runs when the lead pages have no text layer.
func (e *Engine) extractToC(ctx context.Context, path string, format FileFormat, workdir string) (*taxonomy.ExtractionResult, error) {
	if format == FormatArchive {
		return e.tocFromArchive(ctx, path, workdir)
	}

	text, err := pdfsource.LeadPagesText(path, e.opts.LeadPages)
	if err != nil {
		return nil, fileErr(StageFormat, path, err)
	}

	if strings.TrimSpace(text) != "" {
		e.logger.Info("toc text extracted", "path", path, "chars", len(text))
		return e.tocFromText(ctx, path, text)
	}

	e.logger.Info("no text layer in lead pages, falling back to vision", "path", path)
	return e.tocFromRenderedPages(ctx, path)
}

// tocFromText sends the extracted ToC text through one extraction call.
func (e *Engine) tocFromText(ctx context.Context, path, text string) (*taxonomy.ExtractionResult, error) {
	userText := "Here is the raw text extracted from the Table of Contents of a " +
		"Chinese-only parts manual. " +
		"Please extract and translate all category names as instructed:\n\n" + text

	result, err := e.caller.ExtractCategoriesFromText(ctx, tocExtractionPrompt, userText)
	if err != nil {
		if errors.Is(err, ErrRetriesExhausted) {
			return nil, fileErr(StageValidation, path, err)
		}
		return nil, fileErr(StageRecognition, path, err)
	}

	return dedupCategories(result), nil
}

// tocFromRenderedPages is the vision fallback for image-only lead pages.
func (e *Engine) tocFromRenderedPages(ctx context.Context, path string) (*taxonomy.ExtractionResult, error) {
	pageCount, err := pdfsource.PageCount(path)
	if err != nil {
		return nil, fileErr(StageFormat, path, err)
	}
	if pageCount > e.opts.LeadPages {
		pageCount = e.opts.LeadPages
	}

	collector := NewCollector()
	for i := 0; i < pageCount; i++ {
		img, err := pdfsource.RenderPage(path, i, e.opts.RenderDPI)
		if err != nil {
			e.logger.Warn("page render failed, skipping", "page", i+1, "error", err)
			continue
		}
		if err := e.collectCategoryNames(ctx, path, collector, img, i+1); err != nil {
			return nil, err
		}
	}

	return e.translateCollected(ctx, collector)
}

// tocFromArchive reads category names off the first lead-window page images
// of an archive-format partbook.
func (e *Engine) tocFromArchive(ctx context.Context, path, workdir string) (*taxonomy.ExtractionResult, error) {
	manifest, err := e.readArchivePages(path, workdir)
	if err != nil {
		return nil, err
	}

	pages := manifest.Pages
	if len(pages) > e.opts.LeadPages {
		pages = pages[:e.opts.LeadPages]
	}

	collector := NewCollector()
	for _, page := range pages {
		img, ok := e.readPageImage(workdir, page)
		if !ok {
			continue
		}
		if err := e.collectCategoryNames(ctx, path, collector, img, page.PageNumber); err != nil {
			return nil, err
		}
	}

	return e.translateCollected(ctx, collector)
}

func (e *Engine) collectCategoryNames(ctx context.Context, path string, collector *Collector, img []byte, pageNum int) error {
	names, err := e.caller.ExtractMultipleTitles(ctx, img)
	if err != nil {
		if errors.Is(err, ErrRetriesExhausted) {
			return fileErr(StageValidation, path, err)
		}
		e.logger.Warn("category extraction failed, skipping page",
			"page", pageNum, "error", err)
		return nil
	}
	for _, name := range names {
		collector.Add(strings.TrimSpace(name))
	}
	return nil
}

func (e *Engine) translateCollected(ctx context.Context, collector *Collector) (*taxonomy.ExtractionResult, error) {
	names := collector.Values()
	e.logger.Info("unique category names found", "count", len(names))

	translations := e.caller.TranslateBatch(ctx, names)

	result := &taxonomy.ExtractionResult{}
	for _, t := range translations {
		result.Categories = append(result.Categories, taxonomy.Category{
			NameEN: t.EN,
			NameCN: t.CN,
		})
	}
	return result, nil
}
