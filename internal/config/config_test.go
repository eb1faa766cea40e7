package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LLM.Provider == "" {
		t.Error("expected default LLM provider")
	}
	if cfg.LLM.APIKey != "${EPC_LLM_API_KEY}" {
		t.Error("expected API key placeholder")
	}
	if cfg.Extraction.CropXRatio != 0.42 {
		t.Errorf("crop x ratio = %v, want 0.42", cfg.Extraction.CropXRatio)
	}
	if cfg.Extraction.CropYRatio != 0.07 {
		t.Errorf("crop y ratio = %v, want 0.07", cfg.Extraction.CropYRatio)
	}
	if cfg.Extraction.LeadPages != 10 {
		t.Errorf("lead pages = %d, want 10", cfg.Extraction.LeadPages)
	}
	if cfg.Extraction.MaxRetries != 3 {
		t.Errorf("max retries = %d, want 3", cfg.Extraction.MaxRetries)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestEngineOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extraction.CropXRatio = 0.5
	cfg.Extraction.CropYRatio = 0.1

	opts := cfg.EngineOptions("/tmp/work")
	if opts.CropRegion.X0 != 0.5 || opts.CropRegion.Y1 != 0.1 {
		t.Errorf("crop region = %+v", opts.CropRegion)
	}
	if opts.CropRegion.X1 != 1 || opts.CropRegion.Y0 != 0 {
		t.Errorf("crop region must reach the page corner, got %+v", opts.CropRegion)
	}
	if opts.WorkRoot != "/tmp/work" {
		t.Errorf("work root = %q", opts.WorkRoot)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# epcbook configuration") {
		t.Error("expected comment header")
	}
	if !strings.Contains(content, "crop_x_ratio") {
		t.Error("expected extraction keys in written config")
	}
	if !strings.Contains(content, "${EPC_LLM_API_KEY}") {
		t.Error("expected env var placeholder preserved")
	}
}
