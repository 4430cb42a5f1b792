package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/recipe-service/internal/delivery/http/middleware"
	"github.com/user/recipe-service/internal/delivery/http/request"
	"github.com/user/recipe-service/internal/delivery/http/response"
	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/usecase"
)

// SSE event names.
const (
	SSEEventSession   = "session"
	SSEEventProgress  = "progress"
	SSEEventComplete  = "complete"
	SSEEventError     = "error"
	SSEEventHeartbeat = "heartbeat"
)

var heartbeatInterval = 15 * time.Second

// HandleParseStream runs an extraction and streams its progress as SSE.
// Closing the connection cancels the extraction.
func (h *Handler) HandleParseStream(w http.ResponseWriter, r *http.Request) {
	var req request.ParseRequest
	if !h.decode(w, r, &req) {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeJSON(w, http.StatusInternalServerError, response.ErrorResponse{ErrorType: response.ErrorTypeGeneric, Message: "streaming not supported"})
		return
	}

	g, ctx := errgroup.WithContext(r.Context())
	id, done, err := h.extractor.SubmitStreaming(ctx, usecase.SubmitRequest{
		Source:         entity.NewURLSource(strings.TrimSpace(req.URL)),
		CollectionHint: req.CollectionID,
		Owner:          middleware.UserID(r.Context()),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	setSSEHeaders(w)
	if err := h.sendSSEEvent(w, flusher, 0, SSEEventSession, response.SessionStarted{SessionID: id}); err != nil {
		h.logger.Debug("Client disconnected before the stream started", zap.Error(err))
		return
	}

	var outcome usecase.StreamResult
	g.Go(func() error {
		outcome = <-done
		return nil
	})
	g.Go(func() error {
		return h.pumpEvents(ctx, w, flusher, id, false)
	})
	if err := g.Wait(); err != nil {
		h.logger.Debug("Progress stream ended early", zap.String("session_id", id), zap.Error(err))
		return
	}
	if r.Context().Err() != nil {
		return
	}

	if outcome.Err != nil {
		_, body := response.FromError(outcome.Err)
		_ = h.sendSSEEvent(w, flusher, 0, SSEEventError, body)
		return
	}
	_ = h.sendSSEEvent(w, flusher, 0, SSEEventComplete, response.NewParseResponse(outcome.Result))
}

// HandleSessionEvents streams an existing session from its first event.
func (h *Handler) HandleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.sessions.Session(id); !ok {
		h.writeError(w, entity.NewNotFoundError(fmt.Sprintf("progress session %s not found", id), nil))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeJSON(w, http.StatusInternalServerError, response.ErrorResponse{ErrorType: response.ErrorTypeGeneric, Message: "streaming not supported"})
		return
	}
	setSSEHeaders(w)
	flusher.Flush()
	if err := h.pumpEvents(r.Context(), w, flusher, id, true); err != nil {
		h.logger.Debug("Client disconnected from session stream", zap.String("session_id", id), zap.Error(err))
	}
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.Sessions()
	h.writeJSON(w, http.StatusOK, response.SessionListResponse{Sessions: sessions, Count: len(sessions)})
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, ok := h.sessions.Session(id)
	if !ok {
		h.writeError(w, entity.NewNotFoundError(fmt.Sprintf("progress session %s not found", id), nil))
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

func (h *Handler) HandleCleanupSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Cleanup(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// pumpEvents writes session events until the subscription ends. Terminal
// events are written as complete/error only when withTerminal is set; the
// streaming parse endpoint sends its own final event from the result.
func (h *Handler) pumpEvents(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, id string, withTerminal bool) error {
	events := h.sessions.Subscribe(ctx, id)
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if err := h.sendSSEEvent(w, flusher, 0, SSEEventHeartbeat, map[string]any{}); err != nil {
				return err
			}
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			name := SSEEventProgress
			switch ev.Phase {
			case entity.PhaseCompleted:
				name = SSEEventComplete
			case entity.PhaseFailed:
				name = SSEEventError
			}
			if name != SSEEventProgress && !withTerminal {
				continue
			}
			if err := h.sendSSEEvent(w, flusher, ev.Sequence, name, ev); err != nil {
				return err
			}
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// sendSSEEvent writes one event. An error means the client went away.
func (h *Handler) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, id int, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Warn("Failed to marshal SSE data", zap.Error(err))
		return nil
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write event type: %w", err)
	}
	if id > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", id); err != nil {
			return fmt.Errorf("write event id: %w", err)
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write event data: %w", err)
	}
	flusher.Flush()
	return nil
}
