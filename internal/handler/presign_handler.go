// Package handler provides the HTTP surface of the Lysbox presign service.
package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Thanawat984/lysbox-presign/internal/identity"
	"github.com/Thanawat984/lysbox-presign/internal/metrics"
	"github.com/Thanawat984/lysbox-presign/internal/service"
)

// PresignHandler handles presign requests.
type PresignHandler struct {
	presignService *service.PresignService
	metrics        *metrics.Metrics
	maxBodySize    int64
	logger         zerolog.Logger
}

// Config contains configuration for the presign handler.
type Config struct {
	PresignService *service.PresignService
	Metrics        *metrics.Metrics
	MaxBodySize    int64
	Logger         zerolog.Logger
}

// NewPresignHandler creates a new PresignHandler.
func NewPresignHandler(cfg Config) *PresignHandler {
	maxBodySize := cfg.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = 1 << 20
	}

	return &PresignHandler{
		presignService: cfg.PresignService,
		metrics:        cfg.Metrics,
		maxBodySize:    maxBodySize,
		logger:         cfg.Logger.With().Str("handler", "presign").Logger(),
	}
}

// RegisterRoutes registers the presign routes.
func (h *PresignHandler) RegisterRoutes(r chi.Router) {
	r.Options("/v1/presign", h.handlePreflight)
	r.Post("/v1/presign", h.handlePresign)
}

// presignRequest is the caller-facing request body.
type presignRequest struct {
	// Mode is "put" or "get".
	Mode string `json:"mode"`

	// Path is the object key template with <user> and <yyyy> placeholders.
	Path string `json:"path"`

	// ContentType is the upload content type. Only meaningful for mode "put".
	ContentType string `json:"contentType,omitempty"`

	// ExpiresIn optionally narrows the validity window, in seconds.
	ExpiresIn int64 `json:"expiresIn,omitempty"`
}

// presignResponse is the success response body.
type presignResponse struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// handlePreflight answers CORS preflight requests. It short-circuits
// before any body parsing or authentication.
func (h *PresignHandler) handlePreflight(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handlePresign authenticates the caller and issues a presigned URL.
func (h *PresignHandler) handlePresign(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := h.parseRequest(r)
	if err != nil {
		h.observe("", "error", start)
		writeError(w, err)
		return
	}

	mode, err := service.ParseMode(req.Mode)
	if err != nil {
		h.observe(req.Mode, "error", start)
		writeError(w, err)
		return
	}

	token, err := identity.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		h.observe(string(mode), "unauthorized", start)
		writeError(w, err)
		return
	}

	output, err := h.presignService.GeneratePresignedURL(r.Context(), service.PresignInput{
		Token:        token,
		Mode:         mode,
		PathTemplate: req.Path,
		ContentType:  req.ContentType,
		Expiry:       time.Duration(req.ExpiresIn) * time.Second,
	})
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("mode", string(mode)).Msg("presign failed")
			h.observe(string(mode), "error", start)
		} else {
			h.logger.Debug().Err(err).Str("mode", string(mode)).Msg("presign rejected")
			h.observe(string(mode), "rejected", start)
		}
		writeError(w, err)
		return
	}

	h.observe(string(mode), "ok", start)
	writeJSON(w, http.StatusOK, presignResponse{
		URL:  output.URL,
		Path: output.Key,
	})
}

// parseRequest decodes and validates the JSON body.
func (h *PresignHandler) parseRequest(r *http.Request) (*presignRequest, error) {
	body := http.MaxBytesReader(nil, r.Body, h.maxBodySize)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	var req presignRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, errInvalidBody
	}

	if req.Path == "" {
		return nil, service.ErrMissingPath
	}
	if req.ExpiresIn < 0 {
		return nil, service.ErrInvalidExpiration
	}

	return &req, nil
}

// observe records request metrics. Metrics are optional in tests.
func (h *PresignHandler) observe(mode, status string, start time.Time) {
	if h.metrics == nil {
		return
	}
	if mode == "" {
		mode = "invalid"
	}
	h.metrics.PresignRequests.WithLabelValues(mode, status).Inc()
	h.metrics.PresignDuration.Observe(time.Since(start).Seconds())
}

// handleHealth handles health check requests.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
