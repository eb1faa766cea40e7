package main

import (
	"github.com/spf13/cobra"

	"github.com/motorsights/epcbook/internal/api"
	"github.com/motorsights/epcbook/internal/config"
	"github.com/motorsights/epcbook/internal/home"
	"github.com/motorsights/epcbook/internal/taxonomy"
	"github.com/motorsights/epcbook/internal/tracker"
)

type doctorReport struct {
	HomeDir      string   `json:"home_dir"`
	HomeExists   bool     `json:"home_exists"`
	ConfigFile   string   `json:"config_file"`
	ConfigExists bool     `json:"config_exists"`
	LLMProvider  string   `json:"llm_provider"`
	LLMModel     string   `json:"llm_model"`
	LLMKeySet    bool     `json:"llm_key_set"`
	CatalogAuth  string   `json:"catalog_auth"`
	MastersSet   []string `json:"masters_configured"`
	MastersUnset []string `json:"masters_missing"`
	TrackedFiles int      `json:"tracked_files"`
	TrackerIssue string   `json:"tracker_issue,omitempty"`
	ConfigIssue  string   `json:"config_issue,omitempty"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and credentials",
	Long: `Check that the home directory, config file, LLM credentials, catalog
credentials, and master category mappings are in place. Reports what is
missing without contacting any remote service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDirFlag)
		if err != nil {
			return err
		}

		report := doctorReport{
			HomeDir:    h.Path(),
			HomeExists: h.Exists(),
			ConfigFile: h.ConfigPath(),
		}

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			report.ConfigIssue = err.Error()
			return api.Output(report)
		}
		cfg := mgr.Get()
		report.ConfigExists = h.ConfigExists() || cfgFile != ""

		report.LLMProvider = cfg.LLM.Provider
		report.LLMModel = cfg.LLM.Model
		report.LLMKeySet = config.ResolveEnvVars(cfg.LLM.APIKey) != ""

		switch {
		case config.ResolveEnvVars(cfg.EPC.BearerToken) != "":
			report.CatalogAuth = "bearer_token"
		case config.ResolveEnvVars(cfg.EPC.Email) != "" && config.ResolveEnvVars(cfg.EPC.Password) != "":
			report.CatalogAuth = "sso_credentials"
		default:
			report.CatalogAuth = "none"
		}

		for _, pt := range taxonomy.PartbookTypes() {
			if master, ok := cfg.Masters[string(pt)]; ok && master.ID != "" {
				report.MastersSet = append(report.MastersSet, string(pt))
			} else {
				report.MastersUnset = append(report.MastersUnset, string(pt))
			}
		}

		report.TrackedFiles, report.TrackerIssue = trackerSummary(h)

		return api.Output(report)
	},
}

func trackerSummary(h *home.Dir) (int, string) {
	tr, err := tracker.Load(h.TrackerPath())
	if err != nil {
		return 0, err.Error()
	}
	return tr.Len(), ""
}
