package config

import (
	"time"

	"github.com/motorsights/epcbook/internal/extract"
	"github.com/motorsights/epcbook/internal/pdfsource"
	"github.com/motorsights/epcbook/internal/providers"
)

// Config is the full epcbook configuration.
type Config struct {
	LLM        LLMConfig                 `mapstructure:"llm" yaml:"llm"`
	EPC        EPCConfig                 `mapstructure:"epc" yaml:"epc"`
	Extraction ExtractionConfig          `mapstructure:"extraction" yaml:"extraction"`
	Server     ServerConfig              `mapstructure:"server" yaml:"server"`
	Masters    map[string]MasterCategory `mapstructure:"master_categories" yaml:"master_categories"`
}

// LLMConfig configures the chat-completion provider.
type LLMConfig struct {
	Provider       string `mapstructure:"provider" yaml:"provider"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	Model          string `mapstructure:"model" yaml:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	RPM            int    `mapstructure:"rpm" yaml:"rpm"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// EPCConfig configures the catalog API and its SSO gateway.
type EPCConfig struct {
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	GatewayURL  string `mapstructure:"gateway_url" yaml:"gateway_url"`
	Email       string `mapstructure:"email" yaml:"email"`
	Password    string `mapstructure:"password" yaml:"password"`
	BearerToken string `mapstructure:"bearer_token" yaml:"bearer_token"`
	MaxRetries  int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// ExtractionConfig tunes the extraction engine.
type ExtractionConfig struct {
	RenderDPI float64 `mapstructure:"render_dpi" yaml:"render_dpi"`
	LeadPages int     `mapstructure:"lead_pages" yaml:"lead_pages"`
	// Crop ratios for the geometric strategy's header region, as fractions
	// of page width/height. Tuned per document family.
	CropXRatio float64 `mapstructure:"crop_x_ratio" yaml:"crop_x_ratio"`
	CropYRatio float64 `mapstructure:"crop_y_ratio" yaml:"crop_y_ratio"`
	MaxRetries int     `mapstructure:"max_retries" yaml:"max_retries"`
}

// ServerConfig configures the review server.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// MasterCategory names the catalog master category a partbook type submits
// under.
type MasterCategory struct {
	ID     string `mapstructure:"id" yaml:"id"`
	NameEN string `mapstructure:"name_en" yaml:"name_en"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       providers.GatewayName,
			APIKey:         "${EPC_LLM_API_KEY}",
			BaseURL:        "https://ai.sumopod.com/v1",
			Model:          "gpt-4o",
			TimeoutSeconds: 60,
			RPM:            60,
			MaxRetries:     3,
		},
		EPC: EPCConfig{
			BaseURL:    "https://dev-gateway.motorsights.com/api/epc",
			GatewayURL: "https://dev-gateway.motorsights.com",
			Email:      "${EPC_SSO_EMAIL}",
			Password:   "${EPC_SSO_PASSWORD}",
			MaxRetries: 3,
		},
		Extraction: ExtractionConfig{
			RenderDPI:  pdfsource.DefaultRenderDPI,
			LeadPages:  extract.DefaultLeadPages,
			CropXRatio: pdfsource.TitleRegion.X0,
			CropYRatio: pdfsource.TitleRegion.Y1,
			MaxRetries: extract.DefaultMaxRetries,
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Masters: map[string]MasterCategory{},
	}
}

// ProviderSettings converts the LLM section to provider settings, resolving
// ${ENV_VAR} references in the API key.
func (c *Config) ProviderSettings() providers.Settings {
	return providers.Settings{
		Provider:   c.LLM.Provider,
		APIKey:     ResolveEnvVars(c.LLM.APIKey),
		BaseURL:    c.LLM.BaseURL,
		Model:      c.LLM.Model,
		Timeout:    time.Duration(c.LLM.TimeoutSeconds) * time.Second,
		RPM:        c.LLM.RPM,
		MaxRetries: c.LLM.MaxRetries,
	}
}

// EngineOptions converts the extraction section to engine options.
func (c *Config) EngineOptions(workRoot string) extract.Options {
	return extract.Options{
		RenderDPI: c.Extraction.RenderDPI,
		LeadPages: c.Extraction.LeadPages,
		CropRegion: pdfsource.Region{
			X0: c.Extraction.CropXRatio,
			Y0: 0,
			X1: 1,
			Y1: c.Extraction.CropYRatio,
		},
		WorkRoot: workRoot,
	}
}
