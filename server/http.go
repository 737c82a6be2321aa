// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/c360studio/issuesense/analyze"
	"github.com/c360studio/issuesense/llm"
	"github.com/c360studio/issuesense/metrics"
	"github.com/c360studio/issuesense/tracker"
)

const (
	// maxBatchItems bounds one batch request.
	maxBatchItems = 20
	// maxRequestBody bounds how much of a request body is read.
	maxRequestBody = 1 << 20
)

// Service is the analysis surface the handler fronts. *analyze.Analyzer
// satisfies it.
type Service interface {
	Analyze(ctx context.Context, ref tracker.ItemRef) (*analyze.Result, error)
	AnalyzeBatch(ctx context.Context, refs []tracker.ItemRef) []analyze.BatchResult
}

// Handler routes HTTP requests to the analysis service.
type Handler struct {
	service Service
	metrics *metrics.Metrics
	logger  *slog.Logger
	version string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithMetrics exposes a metrics endpoint and instruments requests.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithVersion sets the version string reported by the root endpoint.
func WithVersion(v string) HandlerOption {
	return func(h *Handler) {
		h.version = v
	}
}

// NewHandler creates a handler over the given service.
func NewHandler(service Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		logger:  slog.Default(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers all endpoints on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /analyze", h.handleAnalyze)
	mux.HandleFunc("POST /batch-analyze", h.handleBatchAnalyze)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /{$}", h.handleRoot)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
}

// AnalyzeRequest is the JSON request for POST /analyze.
type AnalyzeRequest struct {
	Repository string `json:"repository"`
	ItemNumber int    `json:"item_number"`
}

// BatchAnalyzeRequest is the JSON request for POST /batch-analyze.
type BatchAnalyzeRequest struct {
	Items []AnalyzeRequest `json:"items"`
}

// BatchAnalyzeResponse is the JSON response for POST /batch-analyze.
type BatchAnalyzeResponse struct {
	Results []analyze.BatchResult `json:"results"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleAnalyze handles POST /analyze - analyze a single work item.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "parse_error", "Invalid JSON body: "+err.Error())
		return
	}

	ref, err := parseRef(req)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.service.Analyze(r.Context(), ref)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleBatchAnalyze handles POST /batch-analyze - analyze several work
// items independently. The response is always 200 with per-item status;
// only a malformed request fails the call as a whole.
func (h *Handler) handleBatchAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req BatchAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "parse_error", "Invalid JSON body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "items is required")
		return
	}
	if len(req.Items) > maxBatchItems {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "too many items in one batch")
		return
	}

	refs := make([]tracker.ItemRef, 0, len(req.Items))
	for _, item := range req.Items {
		ref, err := parseRef(item)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		refs = append(refs, ref)
	}

	results := h.service.AnalyzeBatch(r.Context(), refs)
	writeJSON(w, http.StatusOK, BatchAnalyzeResponse{Results: results})
}

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRoot handles GET / with service identity.
func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "issuesense",
		"version": h.version,
	})
}

func parseRef(req AnalyzeRequest) (tracker.ItemRef, error) {
	owner, repo, err := tracker.ParseRepository(req.Repository)
	if err != nil {
		return tracker.ItemRef{}, err
	}
	if req.ItemNumber <= 0 {
		return tracker.ItemRef{}, errors.New("item_number must be positive")
	}
	return tracker.ItemRef{Owner: owner, Repo: repo, Number: req.ItemNumber}, nil
}

// writeServiceError maps pipeline errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case tracker.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case tracker.IsRateLimited(err):
		writeJSONError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case tracker.IsMalformed(err), llm.IsMalformed(err):
		writeJSONError(w, http.StatusBadGateway, "upstream_malformed", err.Error())
	case tracker.IsTransport(err), llm.IsTransport(err):
		writeJSONError(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
	default:
		h.logger.Error("Unclassified analysis failure", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
