package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/motorsights/epcbook/internal/server"
	"github.com/motorsights/epcbook/internal/tracker"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload-and-review HTTP server",
	Long: `Run the HTTP server. Partbooks come in through multipart upload, run
through the extraction engine in the background, and wait in a review queue
until approved for submission to the catalog.

If catalog credentials are not configured the server still runs; approval
then only marks the job as approved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, h, err := setup()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		logger := newLogger()

		engine, err := newEngine(cfg, h, logger)
		if err != nil {
			return err
		}

		catalog, err := newCatalog(cfg, logger)
		if err != nil {
			logger.Warn("catalog submission disabled", "reason", err)
			catalog = nil
		}

		tr, err := tracker.Load(h.TrackerPath())
		if err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.ListenAddr
		}

		mgr.WatchConfig()

		srv := server.New(server.Config{
			Addr:          addr,
			Engine:        engine,
			Catalog:       catalog,
			ConfigManager: mgr,
			HomeDir:       h,
			Tracker:       tr,
			Logger:        logger,
		})

		go func() {
			<-cmd.Context().Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", "error", err)
			}
		}()

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}
