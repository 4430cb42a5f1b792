package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/recipe-service/internal/delivery/http/request"
	"github.com/user/recipe-service/internal/delivery/http/response"
)

func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	items, err := h.reviewer.ListPending(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.PendingListResponse{Items: items, Count: len(items)})
}

func (h *Handler) HandleGetPending(w http.ResponseWriter, r *http.Request) {
	item, err := h.reviewer.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	var req request.ApproveRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.reviewer.Approve(r.Context(), chi.URLParam(r, "id"), req.Edits)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var req request.RejectRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.reviewer.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reviewer.Summary(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}
