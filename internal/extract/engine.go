package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/motorsights/epcbook/internal/pdfsource"
	"github.com/motorsights/epcbook/internal/taxonomy"
)

// DefaultLeadPages caps the lead-page window scanned for a table of contents.
const DefaultLeadPages = 10

// Options tune the extraction engine. Zero values get sensible defaults.
type Options struct {
	// RenderDPI is the raster resolution for page rendering.
	RenderDPI float64
	// LeadPages is the ToC lead-page window.
	LeadPages int
	// CropRegion is the page-header region read by the geometric strategy.
	// Ratios are empirically tuned per document family, so they are
	// configurable rather than fixed.
	CropRegion pdfsource.Region
	// WorkRoot is the parent directory for per-run temp workdirs. Empty
	// means the system temp directory.
	WorkRoot string
}

func (o Options) withDefaults() Options {
	if o.RenderDPI <= 0 {
		o.RenderDPI = pdfsource.DefaultRenderDPI
	}
	if o.LeadPages <= 0 {
		o.LeadPages = DefaultLeadPages
	}
	if o.CropRegion == (pdfsource.Region{}) {
		o.CropRegion = pdfsource.TitleRegion
	}
	return o
}

// Engine routes a partbook file through the extraction strategy its declared
// type implies, branching internally on the sniffed file format. It owns the
// per-run temp workdir and guarantees its cleanup.
type Engine struct {
	caller *Caller
	opts   Options
	logger *slog.Logger
}

// NewEngine creates an Engine around a configured Caller.
func NewEngine(caller *Caller, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{caller: caller, opts: opts.withDefaults(), logger: logger}
}

// Extract runs the full extraction pipeline for one partbook file and returns
// its normalized category structure. Page-level failures are logged and
// skipped; format errors and validation-retry exhaustion abort the file with
// a *FileError naming the failed stage.
func (e *Engine) Extract(ctx context.Context, path string, ptype taxonomy.PartbookType) (*taxonomy.ExtractionResult, error) {
	if !ptype.Valid() {
		return nil, fmt.Errorf("unknown partbook type %q", ptype)
	}

	format := DetectFormat(path, e.logger)
	e.logger.Info("starting extraction",
		"path", path, "partbook_type", ptype, "format", format)

	workdir, err := e.newWorkdir()
	if err != nil {
		return nil, fileErr(StageFormat, path, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workdir); rmErr != nil {
			e.logger.Warn("failed to remove temp workdir", "dir", workdir, "error", rmErr)
		}
	}()

	var result *taxonomy.ExtractionResult
	switch ptype {
	case taxonomy.PartbookAxleDrive:
		result, err = e.extractArchiveVision(ctx, path, format, workdir)
	case taxonomy.PartbookCabinChassis:
		result, err = e.extractMarkdown(ctx, path, format, workdir)
	case taxonomy.PartbookEngine:
		result, err = e.extractCrop(ctx, path, format, workdir)
	case taxonomy.PartbookTransmission:
		result, err = e.extractToC(ctx, path, format, workdir)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("extraction complete",
		"path", path,
		"categories", result.CategoryCount(),
		"type_categories", result.TypeCategoryCount())
	return result, nil
}

// newWorkdir creates a fresh uniquely-named directory for one run. Workdirs
// are never reused across runs.
func (e *Engine) newWorkdir() (string, error) {
	root := e.opts.WorkRoot
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "epc-extract-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workdir: %w", err)
	}
	return dir, nil
}

// readArchivePages opens an archive-format partbook and returns its manifest.
// A missing or unparsable manifest is a format-level failure.
func (e *Engine) readArchivePages(path, workdir string) (*pdfsource.Manifest, error) {
	manifest, err := pdfsource.OpenArchive(path, workdir)
	if err != nil {
		return nil, fileErr(StageFormat, path, err)
	}
	e.logger.Info("archive extracted", "path", path, "pages", len(manifest.Pages))
	return manifest, nil
}

func (e *Engine) readPageImage(workdir string, page pdfsource.ManifestPage) ([]byte, bool) {
	if page.Image.Path == "" {
		return nil, false
	}
	img, err := os.ReadFile(filepath.Join(workdir, page.Image.Path))
	if err != nil {
		e.logger.Warn("page image unreadable, skipping",
			"page", page.PageNumber, "error", err)
		return nil, false
	}
	return img, true
}
