// Package api exposes the HTTP interface: job submission and the site
// query/delete surface.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davmora/siteforge/internal/metrics"
	"github.com/davmora/siteforge/internal/sitegen"
)

// Config controls HTTP surface behavior.
type Config struct {
	RequestTimeout time.Duration
	PageSize       int
	StatsWindow    time.Duration
}

// Server wires HTTP handlers to the store, blob sink, and queue publisher.
type Server struct {
	router    chi.Router
	store     sitegen.Store
	blobs     sitegen.BlobSink
	publisher sitegen.QueuePublisher
	idGen     sitegen.IDGenerator
	clock     sitegen.Clock
	cfg       Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	store sitegen.Store,
	blobs sitegen.BlobSink,
	publisher sitegen.QueuePublisher,
	idGen sitegen.IDGenerator,
	clock sitegen.Clock,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 24 * time.Hour
	}
	s := &Server{
		store:     store,
		blobs:     blobs,
		publisher: publisher,
		idGen:     idGen,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/sites/generate", s.submitJob)
		r.Get("/sites", s.listSites)
		r.Get("/sites/stats", s.siteStats)
		r.Get("/sites/{site_id}", s.getSite)
		r.Delete("/sites/{site_id}", s.deleteSite)
		r.Get("/jobs", s.listJobs)
		r.Get("/jobs/{job_id}", s.getJob)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// Readiness means the store answers; a dead database should pull the
	// instance out of rotation.
	if _, _, err := s.store.ListJobs(r.Context(), sitegen.Page{Number: 1, Size: 1}); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type generateRequest struct {
	Quantity      int    `json:"quantity"`
	VerifyDomains bool   `json:"verifyDomains"`
	MetadataFile  string `json:"metadataFile"`
}

type generateResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
}

// submitJob validates the request, persists a queued job, and publishes the
// message. Validation failures are synchronous 400s; nothing is persisted.
func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Quantity < sitegen.MinQuantity || req.Quantity > sitegen.MaxQuantity {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("quantity must be between %d and %d", sitegen.MinQuantity, sitegen.MaxQuantity))
		return
	}
	params := sitegen.JobParams{
		Quantity:      req.Quantity,
		VerifyDomains: req.VerifyDomains,
		MetadataFile:  req.MetadataFile,
	}

	jobID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate job id")
		return
	}
	now := s.clock.Now()
	job := sitegen.Job{
		ID:        jobID,
		Status:    sitegen.JobStatusQueued,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertJob(r.Context(), job); err != nil {
		s.logger.Error("insert job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create job")
		return
	}

	pubCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	msg := sitegen.JobMessage{JobID: jobID, Params: params}
	if err := s.publisher.Send(pubCtx, msg); err != nil {
		// The queued row stays; the stale sweep cannot reach it but an
		// operator can resubmit. Surface the failure honestly.
		s.logger.Error("publish job message failed",
			zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "enqueue job")
		return
	}

	s.logger.Info("job submitted",
		zap.String("job_id", jobID),
		zap.Int("quantity", params.Quantity),
		zap.Bool("verify_domains", params.VerifyDomains),
	)
	writeJSON(w, http.StatusAccepted, generateResponse{
		Success: true,
		JobID:   jobID,
		Status:  string(sitegen.JobStatusQueued),
	})
}

// Every read response carries the success envelope alongside a named
// payload key, matching the submit and delete responses.
type jobResponse struct {
	Success bool        `json:"success"`
	Job     sitegen.Job `json:"job"`
}

type jobListResponse struct {
	Success bool          `json:"success"`
	Jobs    []sitegen.Job `json:"jobs"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	Size    int           `json:"size"`
}

type siteResponse struct {
	Success bool               `json:"success"`
	Site    sitegen.SiteRecord `json:"site"`
}

type siteListResponse struct {
	Success bool                 `json:"success"`
	Sites   []sitegen.SiteRecord `json:"sites"`
	Total   int                  `json:"total"`
	Page    int                  `json:"page"`
	Size    int                  `json:"size"`
}

type statsResponse struct {
	Success bool          `json:"success"`
	Stats   sitegen.Stats `json:"stats"`
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, sitegen.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "fetch job")
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{Success: true, Job: job})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	page := s.parsePage(r)
	jobs, total, err := s.store.ListJobs(r.Context(), page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobListResponse{
		Success: true, Jobs: jobs, Total: total, Page: page.Number, Size: page.Size,
	})
}

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	page := s.parsePage(r)
	filter := sitegen.SiteFilter{
		JobID: r.URL.Query().Get("job_id"),
		Name:  r.URL.Query().Get("name"),
	}
	sites, total, err := s.store.ListSites(r.Context(), filter, page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list sites")
		return
	}
	writeJSON(w, http.StatusOK, siteListResponse{
		Success: true, Sites: sites, Total: total, Page: page.Number, Size: page.Size,
	})
}

func (s *Server) getSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "site_id")
	site, err := s.store.GetSite(r.Context(), siteID)
	if err != nil {
		if errors.Is(err, sitegen.ErrNotFound) {
			writeError(w, http.StatusNotFound, "site not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "fetch site")
		return
	}
	writeJSON(w, http.StatusOK, siteResponse{Success: true, Site: site})
}

// deleteSite removes the record first, then the blob best-effort; a leaked
// artifact is preferable to a dangling record pointing at nothing.
func (s *Server) deleteSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "site_id")
	site, err := s.store.DeleteSite(r.Context(), siteID)
	if err != nil {
		if errors.Is(err, sitegen.ErrNotFound) {
			writeError(w, http.StatusNotFound, "site not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete site")
		return
	}
	if err := s.blobs.Delete(r.Context(), site.ContentPath); err != nil && !errors.Is(err, sitegen.ErrNotFound) {
		s.logger.Warn("site artifact delete failed",
			zap.String("site_id", siteID),
			zap.String("path", site.ContentPath),
			zap.Error(err),
		)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": siteID})
}

func (s *Server) siteStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.SiteStats(r.Context(), s.cfg.StatsWindow)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Success: true, Stats: stats})
}

func (s *Server) parsePage(r *http.Request) sitegen.Page {
	page := sitegen.Page{Number: 1, Size: s.cfg.PageSize}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page.Number = n
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			page.Size = n
		}
	}
	return page
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)
			metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, elapsed)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
