// Package server exposes the transcript service over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatsnip/config"
	"chatsnip/internal"
	"chatsnip/logger"
	"chatsnip/metrics"
	"chatsnip/render"
	"chatsnip/transcript"
	"chatsnip/types"
)

// Error codes returned in the "error" field of failed responses
const (
	ErrCodeMethodNotAllowed  = "method_not_allowed"
	ErrCodeInvalidJSON       = "invalid_json"
	ErrCodePayloadTooLarge   = "payload_too_large"
	ErrCodeNoUsableText      = "no_usable_text"
	ErrCodeUnsupportedFormat = "unsupported_format"
	ErrCodeInternal          = "internal_error"
)

// Handler serves the JSON API
type Handler struct {
	config    *config.Config
	service   *transcript.Service
	obsLogger *logger.ObservabilityLogger
	metrics   *metrics.Metrics
	version   string
}

// NewHandler creates a new API handler. obs and m may be nil.
func NewHandler(cfg *config.Config, svc *transcript.Service, obs *logger.ObservabilityLogger, m *metrics.Metrics, version string) *Handler {
	return &Handler{
		config:    cfg,
		service:   svc,
		obsLogger: obs,
		metrics:   m,
		version:   version,
	}
}

// Routes returns the API mux. gatherer backs /metrics; nil uses the default registry.
func (h *Handler) Routes(gatherer prometheus.Gatherer) http.Handler {
	metricsHandler := promhttp.Handler()
	if gatherer != nil {
		metricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleRoot)
	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", metricsHandler)
	mux.HandleFunc("/v1/classify", h.HandleClassify)
	mux.HandleFunc("/v1/render", h.HandleRender)
	mux.HandleFunc("/v1/export", h.HandleExport)
	return h.withRequestContext(mux)
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Strategy string          `json:"strategy"`
	Messages []types.Message `json:"messages"`
}

type renderRequest struct {
	Messages      []types.Message `json:"messages"`
	AssistantName string          `json:"assistantName"`
	Format        string          `json:"format"`
}

type renderResponse struct {
	Format string `json:"format"`
	Output string `json:"output"`
}

type exportRequest struct {
	Text        string `json:"text"`
	Model       string `json:"model"`
	CustomModel string `json:"customModel"`
	Format      string `json:"format"`
}

type exportResponse struct {
	Strategy      string          `json:"strategy"`
	Messages      []types.Message `json:"messages"`
	AssistantName string          `json:"assistantName"`
	Format        string          `json:"format"`
	Output        string          `json:"output"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HandleClassify handles POST /v1/classify
func (h *Handler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	conv, err := h.service.Classify(r.Context(), req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, classifyResponse{Strategy: conv.Strategy, Messages: nonNil(conv.Messages)})
}

// HandleRender handles POST /v1/render
func (h *Handler) HandleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !h.decode(w, r, &req) {
		return
	}

	format, err := render.ParseFormat(req.Format)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	output, err := h.service.Render(r.Context(), types.Conversation{Messages: req.Messages}, req.AssistantName, format)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, renderResponse{Format: string(format), Output: output})
}

// HandleExport handles POST /v1/export
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Export(r.Context(), transcript.ExportRequest{
		Text:        req.Text,
		Model:       req.Model,
		CustomModel: req.CustomModel,
		Format:      req.Format,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, exportResponse{
		Strategy:      result.Conversation.Strategy,
		Messages:      nonNil(result.Conversation.Messages),
		AssistantName: result.AssistantName,
		Format:        string(result.Format),
		Output:        result.Output,
	})
}

// handleRoot provides basic information about the service
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: "no such endpoint: " + r.URL.Path})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":    "chatsnip",
		"version":    h.version,
		"status":     "running",
		"strategies": h.service.StrategyNames(),
		"endpoints": []string{
			"GET /health - Health check",
			"GET /metrics - Prometheus metrics",
			"POST /v1/classify - Infer messages from pasted text",
			"POST /v1/render - Render messages as HTML or Markdown",
			"POST /v1/export - Classify and render in one call",
		},
	})
}

// handleHealth provides a simple health check endpoint
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// decode enforces POST, the body size limit and JSON syntax. It writes the
// error response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: ErrCodeMethodNotAllowed, Message: "use POST"})
		return false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxInputBytes))
	defer r.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error:   ErrCodePayloadTooLarge,
				Message: fmt.Sprintf("request body exceeds %d bytes", h.config.MaxInputBytes),
			})
			return false
		}
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: ErrCodeInvalidJSON, Message: "failed to read request"})
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		if h.obsLogger != nil {
			h.obsLogger.Warn(logger.ComponentHTTPServer, logger.CategoryWarning, internal.GetRequestID(r.Context()), "Invalid JSON in request", map[string]interface{}{
				"error":      err.Error(),
				"body_bytes": len(body),
			})
		}
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: ErrCodeInvalidJSON, Message: "invalid request format"})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrNoUsableText):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ErrCodeNoUsableText, Message: "please paste some conversation text"})
	case errors.Is(err, types.ErrUnsupportedFormat):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: ErrCodeUnsupportedFormat, Message: err.Error()})
	default:
		if h.obsLogger != nil {
			h.obsLogger.Error(logger.ComponentHTTPServer, logger.CategoryError, internal.GetRequestID(r.Context()), "Request failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: ErrCodeInternal, Message: "internal error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(messages []types.Message) []types.Message {
	if messages == nil {
		return []types.Message{}
	}
	return messages
}
