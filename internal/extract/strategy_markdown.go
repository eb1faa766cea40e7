package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/motorsights/epcbook/internal/pdfsource"
	"github.com/motorsights/epcbook/internal/taxonomy"
)

// extractMarkdown runs the full-document strategy: the whole partbook is
// turned into structured text and sent through one large extraction call that
// understands the numbered-section / part-code convention of this document
// family. It is the only strategy that trades many small calls for one big
// one, keeping whole-document context.
func (e *Engine) extractMarkdown(ctx context.Context, path string, format FileFormat, workdir string) (*taxonomy.ExtractionResult, error) {
	var (
		text string
		err  error
	)

	if format == FormatArchive {
		text, err = e.transcribeArchive(ctx, path, workdir)
		if err != nil {
			return nil, err
		}
	} else {
		text, err = pdfsource.DocumentText(path)
		if err != nil {
			return nil, fileErr(StageFormat, path, err)
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, fileErr(StageRecognition, path,
			fmt.Errorf("no extractable text in document"))
	}

	e.logger.Info("document text ready", "path", path, "chars", len(text))

	userText := "Extract the category structure from this parts catalog text:\n\n" + text
	result, err := e.caller.ExtractCategoriesFromText(ctx, markdownExtractionPrompt, userText)
	if err != nil {
		if errors.Is(err, ErrRetriesExhausted) {
			return nil, fileErr(StageValidation, path, err)
		}
		return nil, fileErr(StageRecognition, path, err)
	}

	return dedupCategories(result), nil
}

// transcribeArchive rebuilds document text from an archive's page images via
// per-page vision transcription, joined with the same page separators a real
// PDF's text layer would produce.
func (e *Engine) transcribeArchive(ctx context.Context, path, workdir string) (string, error) {
	manifest, err := e.readArchivePages(path, workdir)
	if err != nil {
		return "", err
	}

	var blocks []string
	for _, page := range manifest.Pages {
		img, ok := e.readPageImage(workdir, page)
		if !ok {
			continue
		}

		text, err := e.caller.TranscribePage(ctx, img)
		if err != nil {
			if errors.Is(err, ErrRetriesExhausted) {
				return "", fileErr(StageValidation, path, err)
			}
			e.logger.Warn("page transcription failed, skipping",
				"page", page.PageNumber, "error", err)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("--- Page %d ---\n%s", page.PageNumber, text))
	}

	return strings.Join(blocks, "\n\n"), nil
}

// dedupCategories collapses duplicate categories by Chinese name, first
// occurrence wins, and guarantees the description fields are present.
func dedupCategories(result *taxonomy.ExtractionResult) *taxonomy.ExtractionResult {
	collector := NewCollector()
	out := &taxonomy.ExtractionResult{}
	for _, cat := range result.Categories {
		key := cat.NameCN
		if key == "" {
			key = cat.NameEN
		}
		if !collector.Add(key) {
			continue
		}
		out.Categories = append(out.Categories, cat)
	}
	return out
}
