// Package server is the upload-and-review HTTP server: partbooks come in
// through multipart upload, run through the extraction engine in the
// background, and wait in a review queue until a human approves submission to
// the catalog.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/motorsights/epcbook/internal/config"
	"github.com/motorsights/epcbook/internal/epc"
	"github.com/motorsights/epcbook/internal/extract"
	"github.com/motorsights/epcbook/internal/home"
	"github.com/motorsights/epcbook/internal/taxonomy"
	"github.com/motorsights/epcbook/internal/tracker"
)

// Server is the epcbook review server.
type Server struct {
	httpServer *http.Server
	engine     *extract.Engine
	catalog    *epc.Client
	configMgr  *config.Manager
	homeDir    *home.Dir
	tracker    *tracker.Tracker
	jobs       *jobStore
	logger     *slog.Logger

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Addr is the listen address (default :8080).
	Addr string
	// Engine runs extractions for uploaded files.
	Engine *extract.Engine
	// Catalog submits approved results. May be nil; approval then only
	// marks the job, useful for review-only deployments.
	Catalog *epc.Client
	// ConfigManager provides configuration with hot-reload support.
	ConfigManager *config.Manager
	// HomeDir is the epcbook home directory.
	HomeDir *home.Dir
	// Tracker records submitted files. May be nil.
	Tracker *tracker.Tracker
	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		engine:    cfg.Engine,
		catalog:   cfg.Catalog,
		configMgr: cfg.ConfigManager,
		homeDir:   cfg.HomeDir,
		tracker:   cfg.Tracker,
		jobs:      newJobStore(),
		logger:    cfg.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("review server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}

// runExtraction processes one uploaded job in the background.
func (s *Server) runExtraction(job Job) {
	s.jobs.update(job.ID, func(j *Job) { j.Status = JobExtracting })

	ctx := context.Background()
	result, err := s.engine.Extract(ctx, job.path, job.PartbookType)
	if err != nil {
		stage := ""
		var fe *extract.FileError
		if errors.As(err, &fe) {
			stage = string(fe.Stage)
		}
		s.logger.Error("extraction failed", "job", job.ID, "error", err)
		s.jobs.update(job.ID, func(j *Job) {
			j.Status = JobFailed
			j.Error = err.Error()
			j.Stage = stage
		})
		return
	}

	if err := s.writeResultFile(job.ID, result); err != nil {
		s.logger.Warn("failed to write result file", "job", job.ID, "error", err)
	}

	s.jobs.update(job.ID, func(j *Job) {
		j.Status = JobReview
		j.Result = result
	})
	s.logger.Info("extraction finished, awaiting review",
		"job", job.ID, "categories", result.CategoryCount())
}

// writeResultFile saves the extracted taxonomy under outputs/ so it survives
// a restart and can be submitted later with the CLI.
func (s *Server) writeResultFile(jobID string, result *taxonomy.ExtractionResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.homeDir.OutputPath(jobID), data, 0o644)
}

// submitJob pushes an approved result to the catalog API.
func (s *Server) submitJob(ctx context.Context, job Job) (*epc.BatchResults, error) {
	master, ok := s.masterCategoryFor(job.PartbookType)
	if !ok {
		return nil, errors.New("no master category configured for partbook type " + string(job.PartbookType))
	}
	return s.catalog.SubmitResult(ctx, job.Result, master.ID, master.NameEN)
}

// markProcessed records a submitted upload in the processed-files log so a
// later batch run skips it.
func (s *Server) markProcessed(job Job) {
	if s.tracker == nil {
		return
	}
	hash, err := tracker.HashFile(job.path)
	if err != nil {
		s.logger.Warn("failed to hash submitted file", "job", job.ID, "error", err)
		return
	}
	if err := s.tracker.Mark(hash, job.Filename, "success", "submitted via review server"); err != nil {
		s.logger.Warn("failed to update tracker log", "job", job.ID, "error", err)
	}
}

func (s *Server) masterCategoryFor(ptype taxonomy.PartbookType) (config.MasterCategory, bool) {
	if s.configMgr == nil {
		return config.MasterCategory{}, false
	}
	mc, ok := s.configMgr.Get().Masters[string(ptype)]
	return mc, ok && mc.ID != ""
}
