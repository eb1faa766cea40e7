package epc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/motorsights/epcbook/internal/taxonomy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCreateCategory(t *testing.T) {
	var gotAuth string
	var gotReq CategoryRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "data": {"category_name_en": "Drive Axle"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("tok-123"), 3, testLogger())
	res, err := client.CreateCategory(context.Background(), CategoryRequest{
		MasterCategoryID: "mc-1",
		NameEN:           "Drive Axle",
		NameCN:           "驱动桥",
		DataType:         []taxonomy.TypeCategory{},
	})
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if res.Skipped {
		t.Error("unexpected skip")
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.NameCN != "驱动桥" {
		t.Errorf("request cn name = %q", gotReq.NameCN)
	}
}

func TestCreateCategoryConflictIsSkip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message": "category already exists"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("tok"), 3, testLogger())
	res, err := client.CreateCategory(context.Background(), CategoryRequest{NameEN: "Drive Axle"})
	if err != nil {
		t.Fatalf("409 must not be an error: %v", err)
	}
	if !res.Skipped {
		t.Error("409 must be reported as skipped")
	}
	if res.Message != "category already exists" {
		t.Errorf("message = %q", res.Message)
	}
}

// failingOnceToken simulates an expired cached token that recovers after
// invalidation.
type failingOnceToken struct {
	invalidated bool
}

func (f *failingOnceToken) BearerToken(context.Context) (string, error) {
	if f.invalidated {
		return "fresh", nil
	}
	return "stale", nil
}

func (f *failingOnceToken) Invalidate() { f.invalidated = true }

func TestUnauthorizedRefreshesTokenOnce(t *testing.T) {
	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := r.Header.Get("Authorization")
		tokens = append(tokens, tok)
		if tok == "Bearer stale" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &failingOnceToken{}, 3, testLogger())
	_, err := client.CreateCategory(context.Background(), CategoryRequest{NameEN: "X"})
	if err != nil {
		t.Fatalf("expected recovery after token refresh: %v", err)
	}
	if len(tokens) != 2 || tokens[0] != "Bearer stale" || tokens[1] != "Bearer fresh" {
		t.Errorf("token sequence = %v", tokens)
	}
}

func TestSubmitResultCollectsOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CategoryRequest
		json.NewDecoder(r.Body).Decode(&req)
		switch req.NameEN {
		case "Skipped":
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message": "exists"}`))
		case "Broken":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success": false, "error": "bad payload"}`))
		default:
			w.Write([]byte(`{"success": true}`))
		}
	}))
	defer srv.Close()

	result := &taxonomy.ExtractionResult{
		Categories: []taxonomy.Category{
			{NameEN: "Created", DataType: []taxonomy.TypeCategory{{NameEN: "Sub"}}},
			{NameEN: "Skipped"},
			{NameEN: "Broken"},
		},
	}

	client := NewClient(srv.URL, StaticToken("tok"), 3, testLogger())
	batch, err := client.SubmitResult(context.Background(), result, "mc-1", "Truck Parts")
	if err != nil {
		t.Fatalf("SubmitResult failed: %v", err)
	}

	if len(batch.Created) != 1 || batch.Created[0] != "Created" {
		t.Errorf("created = %v", batch.Created)
	}
	if len(batch.Skipped) != 1 || batch.Skipped[0] != "Skipped" {
		t.Errorf("skipped = %v", batch.Skipped)
	}
	if len(batch.Errors) != 1 {
		t.Errorf("errors = %v", batch.Errors)
	}
	if batch.TypeCategoryNum != 1 {
		t.Errorf("type categories = %d", batch.TypeCategoryNum)
	}
}

func TestSubmitResultRequiresMasterCategory(t *testing.T) {
	client := NewClient("http://unused", StaticToken("tok"), 3, testLogger())
	if _, err := client.SubmitResult(context.Background(), &taxonomy.ExtractionResult{}, "", ""); err == nil {
		t.Fatal("expected error for missing master category id")
	}
}
