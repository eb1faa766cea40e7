package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/motorsights/epcbook/internal/taxonomy"
)

// maxUploadBytes caps partbook uploads; archive-format books carry full page
// images and run large.
const maxUploadBytes = 256 << 20

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/status/{id}", s.handleStatus)
	mux.HandleFunc("POST /api/approve/{id}", s.handleApprove)
}

// HealthResponse is the response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleUpload accepts a multipart partbook upload and starts extraction in
// the background. Fields: "file" (the partbook) and "partbook_type".
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	ptype := taxonomy.PartbookType(r.FormValue("partbook_type"))
	if !ptype.Valid() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unknown partbook_type %q", ptype))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	dest := filepath.Join(s.homeDir.UploadsPath(),
		uuid.NewString()+"_"+filepath.Base(header.Filename))
	out, err := os.Create(dest)
	if err != nil {
		s.logger.Error("failed to store upload", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dest)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	out.Close()

	job := s.jobs.create(header.Filename, dest, ptype)
	go s.runExtraction(job)

	s.logger.Info("upload accepted", "job", job.ID, "filename", job.Filename)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.jobs.list()})
}

// MasterCategoryInfo pairs a partbook type with its configured master
// category, if any.
type MasterCategoryInfo struct {
	PartbookType string `json:"partbook_type"`
	MasterID     string `json:"master_category_id,omitempty"`
	MasterNameEN string `json:"master_category_name_en,omitempty"`
	Configured   bool   `json:"configured"`
}

// handleCategories lists the partbook types the server accepts and the
// master category each submits under.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	infos := make([]MasterCategoryInfo, 0, len(taxonomy.PartbookTypes()))
	for _, pt := range taxonomy.PartbookTypes() {
		info := MasterCategoryInfo{PartbookType: string(pt)}
		if master, ok := s.masterCategoryFor(pt); ok {
			info.MasterID = master.ID
			info.MasterNameEN = master.NameEN
			info.Configured = true
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": infos})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleApprove marks a reviewed job approved and, when a catalog client is
// configured, submits its result.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := s.jobs.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != JobReview {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("job is %s, only %s jobs can be approved", job.Status, JobReview))
		return
	}

	approved, _ := s.jobs.update(id, func(j *Job) { j.Status = JobApproved })

	if s.catalog == nil {
		writeJSON(w, http.StatusOK, approved)
		return
	}

	batch, err := s.submitJob(r.Context(), job)
	if err != nil {
		s.logger.Error("catalog submission failed", "job", id, "error", err)
		s.jobs.update(id, func(j *Job) {
			j.Status = JobFailed
			j.Error = err.Error()
			j.Stage = "submission"
		})
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.jobs.update(id, func(j *Job) { j.Status = JobSubmitted })
	s.markProcessed(job)
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":  id,
		"status":  JobSubmitted,
		"results": batch,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
