package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/user/site-mirror/internal/delivery/http/request"
	"github.com/user/site-mirror/internal/delivery/http/response"
	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/repository"
	"github.com/user/site-mirror/internal/usecase"
	"go.uber.org/zap"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	jobs   usecase.JobManager
	checks map[string]HealthCheck
	logger *zap.Logger
}

// NewHandler creates the API handler. checks may be nil when the service
// runs without external stores.
func NewHandler(jobs usecase.JobManager, checks map[string]HealthCheck, logger *zap.Logger) *Handler {
	return &Handler{
		jobs:   jobs,
		checks: checks,
		logger: logger,
	}
}

func (h *Handler) HandleSubmitMirror(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitMirrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := url.ParseRequestURI(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		h.writeJSONError(w, "Invalid URL format", http.StatusBadRequest)
		return
	}
	if req.Depth < 0 {
		h.writeJSONError(w, "Depth must not be negative", http.StatusBadRequest)
		return
	}

	jobID, err := h.jobs.Submit(r.Context(), entity.MirrorRequest{
		SeedURL:      req.URL,
		Depth:        req.Depth,
		ConvertLinks: req.ConvertLinks,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrQueueFull) {
			h.writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("failed to submit mirror job", zap.String("url", req.URL), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.SubmitMirrorResponse{
		Status:  "success",
		Message: "Mirror job accepted",
		JobID:   jobID,
	})
}

func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.jobs.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			h.writeJSONError(w, "Job not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get job", zap.String("job_id", id), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, response.NewJobResponse(job))
}

func (h *Handler) HandleGetManifest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := h.jobs.Manifest(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			h.writeJSONError(w, "Job not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get manifest", zap.String("job_id", id), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []entity.ManifestEntry{}
	}

	h.writeJSON(w, http.StatusOK, response.ManifestResponse{JobID: id, Entries: entries})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := map[string]string{"status": "ok"}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Error("health check failed", zap.String("component", name), zap.Error(err))
			resp[name] = "unhealthy"
			resp["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp[name] = "healthy"
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
