package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/motorsights/epcbook/internal/api"
	"github.com/motorsights/epcbook/internal/taxonomy"
	"github.com/motorsights/epcbook/internal/tracker"
)

var (
	extractType  string
	extractDir   string
	extractForce bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file.pdf]",
	Short: "Extract the category taxonomy from one or more partbook PDFs",
	Long: `Extract the category taxonomy from a partbook PDF, or from every PDF in a
directory with --dir. Already-processed files (matched by content hash) are
skipped unless --force is given.

Examples:
  epc extract drive_axle.pdf --type axle_drive
  epc extract --dir ./books --type transmission
  epc extract engine.pdf --type engine -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && extractDir == "" {
			return fmt.Errorf("provide a PDF path or --dir")
		}

		ptype := taxonomy.PartbookType(extractType)
		if !ptype.Valid() {
			return fmt.Errorf("unknown --type %q (one of: axle_drive, cabin_chassis, engine, transmission)", extractType)
		}

		mgr, h, err := setup()
		if err != nil {
			return err
		}
		logger := newLogger()

		engine, err := newEngine(mgr.Get(), h, logger)
		if err != nil {
			return err
		}

		tr, err := tracker.Load(h.TrackerPath())
		if err != nil {
			return err
		}

		paths := args
		if extractDir != "" {
			paths, err = pdfsInDir(extractDir)
			if err != nil {
				return err
			}
		}

		summary := struct {
			Extracted []string                              `json:"extracted"`
			Skipped   []string                              `json:"skipped"`
			Failed    map[string]string                     `json:"failed,omitempty"`
			Outputs   map[string]string                     `json:"outputs"`
			Results   map[string]*taxonomy.ExtractionResult `json:"results"`
		}{
			Failed:  map[string]string{},
			Outputs: map[string]string{},
			Results: map[string]*taxonomy.ExtractionResult{},
		}

		for _, path := range paths {
			hash, err := tracker.HashFile(path)
			if err != nil {
				summary.Failed[path] = err.Error()
				continue
			}
			if !extractForce && tr.Processed(hash) {
				logger.Info("already processed, skipping", "path", path)
				summary.Skipped = append(summary.Skipped, path)
				continue
			}

			result, err := engine.Extract(cmd.Context(), path, ptype)
			if err != nil {
				summary.Failed[path] = err.Error()
				if markErr := tr.Mark(hash, path, "failed", err.Error()); markErr != nil {
					logger.Warn("failed to update tracker log", "error", markErr)
				}
				continue
			}

			summary.Extracted = append(summary.Extracted, path)
			summary.Results[path] = result

			outPath := h.OutputPath(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
			if err := saveResult(outPath, result); err != nil {
				logger.Warn("failed to write result file", "path", outPath, "error", err)
			} else {
				summary.Outputs[path] = outPath
			}

			if markErr := tr.Mark(hash, path, "success",
				fmt.Sprintf("%d categories", result.CategoryCount())); markErr != nil {
				logger.Warn("failed to update tracker log", "error", markErr)
			}
		}

		if err := api.Output(summary); err != nil {
			return err
		}
		if len(summary.Failed) > 0 {
			return fmt.Errorf("%d file(s) failed", len(summary.Failed))
		}
		return nil
	},
}

func saveResult(path string, result *taxonomy.ExtractionResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func pdfsInDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no PDF files in %s", dir)
	}
	return paths, nil
}

func init() {
	extractCmd.Flags().StringVarP(&extractType, "type", "t", "", "partbook type (required)")
	extractCmd.Flags().StringVar(&extractDir, "dir", "", "process every PDF in this directory")
	extractCmd.Flags().BoolVar(&extractForce, "force", false, "re-process files already in the tracker log")
	extractCmd.MarkFlagRequired("type")
}
