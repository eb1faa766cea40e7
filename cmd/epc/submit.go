package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/motorsights/epcbook/internal/api"
	"github.com/motorsights/epcbook/internal/taxonomy"
)

var (
	submitType     string
	submitMasterID string
	submitMasterEN string
)

var submitCmd = &cobra.Command{
	Use:   "submit result.json",
	Short: "Submit a saved extraction result to the EPC catalog",
	Long: `Submit a previously extracted taxonomy (the JSON written by extract or by
the review server) to the EPC catalog API. The master category comes from the
master_categories config section for the given --type, or can be overridden
with --master-id and --master-name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := setup()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		logger := newLogger()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read result file: %w", err)
		}
		var result taxonomy.ExtractionResult
		if err := json.Unmarshal(data, &result); err != nil {
			return fmt.Errorf("failed to parse result file %s: %w", args[0], err)
		}
		if len(result.Categories) == 0 {
			return fmt.Errorf("result file %s has no categories", args[0])
		}

		masterID, masterEN := submitMasterID, submitMasterEN
		if masterID == "" {
			master, ok := cfg.Masters[submitType]
			if !ok {
				return fmt.Errorf("no master category configured for type %q; set master_categories.%s or pass --master-id", submitType, submitType)
			}
			masterID, masterEN = master.ID, master.NameEN
		}

		catalog, err := newCatalog(cfg, logger)
		if err != nil {
			return err
		}

		results, err := catalog.SubmitResult(cmd.Context(), &result, masterID, masterEN)
		if err != nil {
			return err
		}
		return api.Output(results)
	},
}

func init() {
	submitCmd.Flags().StringVarP(&submitType, "type", "t", "", "partbook type, used to look up the master category")
	submitCmd.Flags().StringVar(&submitMasterID, "master-id", "", "master category ID (overrides config)")
	submitCmd.Flags().StringVar(&submitMasterEN, "master-name", "", "master category English name (with --master-id)")
}
