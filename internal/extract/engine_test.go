package extract

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/motorsights/epcbook/internal/pdfsource"
	"github.com/motorsights/epcbook/internal/providers"
	"github.com/motorsights/epcbook/internal/taxonomy"
)

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()

	zipPath := filepath.Join(dir, "archive.pdf")
	if err := os.WriteFile(zipPath, []byte("PK\x03\x04rest"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DetectFormat(zipPath, testLogger()); got != FormatArchive {
		t.Errorf("zip magic detected as %s", got)
	}

	pdfPath := filepath.Join(dir, "real.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DetectFormat(pdfPath, testLogger()); got != FormatRealPDF {
		t.Errorf("pdf magic detected as %s", got)
	}

	if got := DetectFormat(filepath.Join(dir, "missing.pdf"), testLogger()); got != FormatRealPDF {
		t.Errorf("unreadable file detected as %s, want real_pdf default", got)
	}
}

// writeArchivePartbook creates a synthetic archive-format partbook with one
// diagram page and two table pages.
func writeArchivePartbook(t *testing.T, name string) string {
	t.Helper()

	manifest := `{
		"pages": [
			{"page_number": 1, "has_visual_content": true, "image": {"path": "images/p1.jpg"}},
			{"page_number": 2, "has_visual_content": false, "image": {"path": "images/p2.jpg"}},
			{"page_number": 3, "has_visual_content": false, "image": {"path": "images/p3.jpg"}}
		]
	}`

	return writeZip(t, name, map[string][]byte{
		"manifest.json": []byte(manifest),
		"images/p1.jpg": []byte("diagram"),
		"images/p2.jpg": []byte("table-a"),
		"images/p3.jpg": []byte("table-b"),
	})
}

func writeZip(t *testing.T, name string, entries map[string][]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for entryName, data := range entries {
		w, err := zw.Create(entryName)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// imageIn returns the bytes of the image attached to a chat request, if any.
func imageIn(req *providers.ChatRequest) []byte {
	for _, m := range req.Messages {
		if len(m.Images) > 0 {
			return m.Images[0]
		}
	}
	return nil
}

const uniqueTitle = "贯通式驱动桥主减速器总成爆炸图对应备件目录"

func archiveVisionMock(failFor string) *providers.MockClient {
	return &providers.MockClient{
		RespondFn: func(req *providers.ChatRequest) (string, error) {
			img := imageIn(req)
			if img == nil {
				// Translation batch call.
				return fmt.Sprintf(
					`{"translations": [{"cn": %q, "en": "Pass-Through Drive Axle Main Reducer Assembly Parts Catalog"}]}`,
					uniqueTitle), nil
			}
			switch string(img) {
			case failFor:
				return "", fmt.Errorf("simulated page failure")
			case "table-a":
				return fmt.Sprintf(`{"raw_title": "表1 %s"}`, uniqueTitle), nil
			case "table-b":
				// Continuation page of the same table.
				return fmt.Sprintf(`{"raw_title": "表2 %s(续)"}`, uniqueTitle), nil
			default:
				return `{"raw_title": null}`, nil
			}
		},
	}
}

func newTestEngine(t *testing.T, mock *providers.MockClient) *Engine {
	t.Helper()
	caller := NewCaller(mock, "", 3, testLogger())
	return NewEngine(caller, Options{WorkRoot: t.TempDir()}, testLogger())
}

func TestArchiveVisionRoundTrip(t *testing.T) {
	path := writeArchivePartbook(t, "drive_axle.pdf")
	engine := newTestEngine(t, archiveVisionMock(""))

	result, err := engine.Extract(context.Background(), path, taxonomy.PartbookAxleDrive)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.CategoryCount() != 1 {
		t.Fatalf("expected 1 category, got %d", result.CategoryCount())
	}
	cat := result.Categories[0]
	if cat.NameEN != "Drive Axle" || cat.NameCN != "驱动桥" {
		t.Errorf("category = %q / %q", cat.NameEN, cat.NameCN)
	}
	if len(cat.DataType) != 1 {
		t.Fatalf("expected duplicate titles collapsed to 1 type category, got %d", len(cat.DataType))
	}
	sub := cat.DataType[0]
	if sub.NameCN != uniqueTitle {
		t.Errorf("type category cn = %q", sub.NameCN)
	}
	if sub.NameEN != "Pass-Through Drive Axle Main Reducer Assembly Parts Catalog" {
		t.Errorf("type category en = %q", sub.NameEN)
	}
}

func TestArchiveVisionSkipsFailedPage(t *testing.T) {
	path := writeArchivePartbook(t, "drive_axle.pdf")
	engine := newTestEngine(t, archiveVisionMock("table-a"))

	result, err := engine.Extract(context.Background(), path, taxonomy.PartbookAxleDrive)
	if err != nil {
		t.Fatalf("page-level failure must not abort the run: %v", err)
	}

	// table-b still yields the title; the failed page is simply absent.
	if got := len(result.Categories[0].DataType); got != 1 {
		t.Fatalf("expected 1 type category from surviving page, got %d", got)
	}
}

func TestMissingManifestIsFatal(t *testing.T) {
	path := writeZip(t, "drive_axle.pdf", map[string][]byte{
		"images/p1.jpg": []byte("table-a"),
	})
	engine := newTestEngine(t, archiveVisionMock(""))

	_, err := engine.Extract(context.Background(), path, taxonomy.PartbookAxleDrive)
	if err == nil {
		t.Fatal("expected format-level failure")
	}

	var fe *FileError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FileError, got %T", err)
	}
	if fe.Stage != StageFormat {
		t.Errorf("stage = %s, want %s", fe.Stage, StageFormat)
	}
	if !errors.Is(err, pdfsource.ErrMissingManifest) {
		t.Errorf("error should wrap ErrMissingManifest: %v", err)
	}
}

func TestRetryExhaustionIsFatal(t *testing.T) {
	path := writeArchivePartbook(t, "drive_axle.pdf")
	mock := &providers.MockClient{ResponseText: `{"nonsense": true}`}
	engine := newTestEngine(t, mock)

	_, err := engine.Extract(context.Background(), path, taxonomy.PartbookAxleDrive)
	if err == nil {
		t.Fatal("expected validation-retry exhaustion to abort the file")
	}

	var fe *FileError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FileError, got %T", err)
	}
	if fe.Stage != StageValidation {
		t.Errorf("stage = %s, want %s", fe.Stage, StageValidation)
	}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("error should wrap ErrRetriesExhausted: %v", err)
	}
}

func TestWorkdirCleanedUp(t *testing.T) {
	path := writeArchivePartbook(t, "steering-axle.pdf")
	workRoot := t.TempDir()

	caller := NewCaller(archiveVisionMock(""), "", 3, testLogger())
	engine := NewEngine(caller, Options{WorkRoot: workRoot}, testLogger())

	if _, err := engine.Extract(context.Background(), path, taxonomy.PartbookAxleDrive); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	entries, err := os.ReadDir(workRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("workdir not cleaned up, %d entries remain", len(entries))
	}
}

func TestWorkdirCleanedUpOnFailure(t *testing.T) {
	path := writeZip(t, "drive_axle.pdf", map[string][]byte{
		"images/p1.jpg": []byte("x"),
	})
	workRoot := t.TempDir()

	caller := NewCaller(archiveVisionMock(""), "", 3, testLogger())
	engine := NewEngine(caller, Options{WorkRoot: workRoot}, testLogger())

	if _, err := engine.Extract(context.Background(), path, taxonomy.PartbookAxleDrive); err == nil {
		t.Fatal("expected failure")
	}

	entries, err := os.ReadDir(workRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("workdir not cleaned up after failure, %d entries remain", len(entries))
	}
}

func TestInferCategoryFromFilename(t *testing.T) {
	engine := newTestEngine(t, providers.NewMockClient())

	tests := []struct {
		path   string
		wantEN string
		wantCN string
	}{
		{"/books/drive_axle_2024.pdf", "Drive Axle", "驱动桥"},
		{"/books/Drive-Axle.pdf", "Drive Axle", "驱动桥"},
		{"/books/steering_axle.pdf", "Steering Axle", "转向桥"},
		{"/books/SteeringAxle v2.pdf", "Steering Axle", "转向桥"},
		{"/books/mystery.pdf", "Drive Axle", "驱动桥"},
	}

	for _, tt := range tests {
		en, cn := engine.inferCategoryFromFilename(tt.path)
		if en != tt.wantEN || cn != tt.wantCN {
			t.Errorf("inferCategoryFromFilename(%q) = (%q, %q), want (%q, %q)",
				tt.path, en, cn, tt.wantEN, tt.wantCN)
		}
	}
}

func TestExtractRejectsUnknownType(t *testing.T) {
	engine := newTestEngine(t, providers.NewMockClient())
	if _, err := engine.Extract(context.Background(), "whatever.pdf", taxonomy.PartbookType("rocket")); err == nil {
		t.Fatal("expected error for unknown partbook type")
	}
}

func TestToCArchiveBranch(t *testing.T) {
	manifest := `{
		"pages": [
			{"page_number": 1, "has_visual_content": false, "image": {"path": "p1.jpg"}},
			{"page_number": 2, "has_visual_content": false, "image": {"path": "p2.jpg"}}
		]
	}`
	path := writeZip(t, "transmission.pdf", map[string][]byte{
		"manifest.json": []byte(manifest),
		"p1.jpg":        []byte("toc-1"),
		"p2.jpg":        []byte("toc-2"),
	})

	mock := &providers.MockClient{
		RespondFn: func(req *providers.ChatRequest) (string, error) {
			img := imageIn(req)
			switch {
			case img == nil:
				return `{"translations": [
					{"cn": "离合器", "en": "Clutch"},
					{"cn": "变速器", "en": "Transmission"}
				]}`, nil
			case string(img) == "toc-1":
				return `{"categories_cn": ["离合器", "变速器"]}`, nil
			default:
				// Overlapping names on the second page collapse in dedup.
				return `{"categories_cn": ["变速器"]}`, nil
			}
		},
	}
	engine := newTestEngine(t, mock)

	result, err := engine.Extract(context.Background(), path, taxonomy.PartbookTransmission)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.CategoryCount() != 2 {
		t.Fatalf("expected 2 categories, got %d", result.CategoryCount())
	}
	if result.Categories[0].NameCN != "离合器" || result.Categories[0].NameEN != "Clutch" {
		t.Errorf("first category = %+v", result.Categories[0])
	}
	if result.Categories[1].NameCN != "变速器" || result.Categories[1].NameEN != "Transmission" {
		t.Errorf("second category = %+v", result.Categories[1])
	}
}

func TestMarkdownArchiveBranch(t *testing.T) {
	manifest := `{
		"pages": [
			{"page_number": 1, "has_visual_content": false, "image": {"path": "p1.jpg"}}
		]
	}`
	path := writeZip(t, "cabin.pdf", map[string][]byte{
		"manifest.json": []byte(manifest),
		"p1.jpg":        []byte("page-text"),
	})

	mock := &providers.MockClient{
		RespondFn: func(req *providers.ChatRequest) (string, error) {
			if imageIn(req) != nil {
				return `{"text": "3 离合器与操纵机构\nJS180 变速器总成"}`, nil
			}
			return `{"categories": [
				{
					"category_name_en": "Clutch and Controls",
					"category_name_cn": "离合器与操纵机构",
					"category_description": "",
					"data_type": [
						{
							"type_category_name_en": "Transmission Assembly",
							"type_category_name_cn": "变速器总成",
							"type_category_description": "",
							"type_category_code": "JS180"
						}
					]
				}
			]}`, nil
		},
	}
	engine := newTestEngine(t, mock)

	result, err := engine.Extract(context.Background(), path, taxonomy.PartbookCabinChassis)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.CategoryCount() != 1 {
		t.Fatalf("expected 1 category, got %d", result.CategoryCount())
	}
	sub := result.Categories[0].DataType
	if len(sub) != 1 || sub[0].Code != "JS180" {
		t.Errorf("expected part code carried verbatim, got %+v", sub)
	}
}
