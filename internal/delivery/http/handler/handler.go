package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/delivery/http/middleware"
	"github.com/user/recipe-service/internal/delivery/http/request"
	"github.com/user/recipe-service/internal/delivery/http/response"
	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/progress"
	"github.com/user/recipe-service/internal/usecase"
)

const (
	maxImageBytes   = 10 << 20
	maxRequestBytes = 1 << 20
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	extractor usecase.RecipeExtractor
	reviewer  usecase.Reviewer
	sessions  *progress.Broadcaster
	checks    map[string]HealthCheck
	logger    *zap.Logger
}

func NewHandler(extractor usecase.RecipeExtractor, reviewer usecase.Reviewer, sessions *progress.Broadcaster, logger *zap.Logger) *Handler {
	return &Handler{
		extractor: extractor,
		reviewer:  reviewer,
		sessions:  sessions,
		checks:    map[string]HealthCheck{},
		logger:    logger.Named("handler"),
	}
}

// WithHealthCheck adds a dependency to the health endpoint.
func (h *Handler) WithHealthCheck(name string, check HealthCheck) *Handler {
	h.checks[name] = check
	return h
}

func (h *Handler) HandleParse(w http.ResponseWriter, r *http.Request) {
	var req request.ParseRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.extractor.Submit(r.Context(), usecase.SubmitRequest{
		Source:         entity.NewURLSource(strings.TrimSpace(req.URL)),
		CollectionHint: req.CollectionID,
		Owner:          middleware.UserID(r.Context()),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewParseResponse(res))
}

func (h *Handler) HandleParseImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<16))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		h.writeError(w, entity.NewStructuralError("expected a multipart form with an image file of at most 10 MB", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, entity.NewStructuralError("the form field \"file\" is required", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		h.writeError(w, entity.NewStructuralError("the uploaded file could not be read", err))
		return
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		h.writeError(w, entity.NewStructuralError("the uploaded file is not an image ("+contentType+")", nil))
		return
	}

	res, err := h.extractor.Submit(r.Context(), usecase.SubmitRequest{
		Source:         entity.NewImageSource(data, contentType, header.Filename),
		CollectionHint: r.FormValue("collection_id"),
		Owner:          middleware.UserID(r.Context()),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewParseResponse(res))
}

func (h *Handler) HandleRecentFailures(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	failures, err := h.extractor.RecentFailures(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewFailedExtractions(failures))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Error("Health check failed", zap.String("dependency", name), zap.Error(err))
			status[name] = "unhealthy"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "healthy"
	}
	h.writeJSON(w, code, status)
}

// decode reads a JSON body into v, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.writeJSON(w, http.StatusBadRequest, response.ErrorResponse{
			ErrorType: response.ErrorTypeStructural,
			Message:   "Invalid request body",
		})
		return false
	}
	return true
}

// limit parses the optional limit query parameter.
func (h *Handler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.writeJSON(w, http.StatusBadRequest, response.ErrorResponse{
			ErrorType: response.ErrorTypeStructural,
			Message:   "limit must be a non-negative integer",
		})
		return 0, false
	}
	return n, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, body := response.FromError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}
	h.writeJSON(w, status, body)
}
