package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/motorsights/epcbook/internal/api"
	"github.com/motorsights/epcbook/internal/config"
	"github.com/motorsights/epcbook/internal/epc"
	"github.com/motorsights/epcbook/internal/extract"
	"github.com/motorsights/epcbook/internal/home"
	"github.com/motorsights/epcbook/internal/providers"
	"github.com/motorsights/epcbook/version"
)

var (
	cfgFile      string
	homeDirFlag  string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "epc",
	Short: "Extract category taxonomies from automotive partbook PDFs",
	Long: `epc extracts hierarchical category taxonomies from heterogeneous
automotive parts-catalog PDFs and submits them to the Motorsights EPC API.

Each partbook type routes through its own extraction strategy:
  - axle_drive:    archive of page images, titles read per table page (vision)
  - cabin_chassis: full-document text, one large structured extraction call
  - engine:        fixed header region cropped from the PDF text layer (no LLM)
  - transmission:  table-of-contents translation, vision fallback for scans`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.epcbook/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDirFlag, "home", "", "epcbook home directory (default: ~/.epcbook)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(initCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setup loads config and the home directory, shared by most commands.
func setup() (*config.Manager, *home.Dir, error) {
	h, err := home.New(homeDirFlag)
	if err != nil {
		return nil, nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, err
	}

	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return mgr, h, nil
}

// newEngine builds the extraction engine from config.
func newEngine(cfg *config.Config, h *home.Dir, logger *slog.Logger) (*extract.Engine, error) {
	client, err := providers.New(cfg.ProviderSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	caller := extract.NewCaller(client, cfg.LLM.Model, cfg.Extraction.MaxRetries, logger)
	return extract.NewEngine(caller, cfg.EngineOptions(h.WorkPath()), logger), nil
}

// newCatalog builds the EPC catalog client from config. Returns an error if
// neither a bearer token nor SSO credentials are configured.
func newCatalog(cfg *config.Config, logger *slog.Logger) (*epc.Client, error) {
	var tokens epc.TokenSource
	if tok := config.ResolveEnvVars(cfg.EPC.BearerToken); tok != "" {
		tokens = epc.StaticToken(tok)
	} else {
		auth, err := epc.NewAuthClient(
			cfg.EPC.GatewayURL,
			config.ResolveEnvVars(cfg.EPC.Email),
			config.ResolveEnvVars(cfg.EPC.Password),
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("catalog auth not configured: %w", err)
		}
		tokens = auth
	}
	return epc.NewClient(cfg.EPC.BaseURL, tokens, cfg.EPC.MaxRetries, logger), nil
}
