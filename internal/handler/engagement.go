package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/booklinks/booklinks/internal/service"
)

// EngagementHandler serves upvotes and comments on reference edges.
type EngagementHandler struct {
	engagement *service.EngagementService
	logger     *slog.Logger
}

func NewEngagementHandler(engagement *service.EngagementService, logger *slog.Logger) *EngagementHandler {
	return &EngagementHandler{engagement: engagement, logger: logger}
}

// HTTP: GET /api/references/{id}/upvotes
func (h *EngagementHandler) HandleUpvotes(w http.ResponseWriter, r *http.Request) {
	st, err := h.engagement.Upvotes(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HTTP: POST /api/references/{id}/upvote
func (h *EngagementHandler) HandleToggleUpvote(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	st, err := h.engagement.ToggleUpvote(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HTTP: GET /api/references/{id}/comments
func (h *EngagementHandler) HandleComments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engagement.Comments(r.Context(), chi.URLParam(r, "id")))
}

// HTTP: POST /api/references/{id}/comments
func (h *EngagementHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in service.CommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.engagement.AddComment(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HTTP: DELETE /api/comments/{id}
func (h *EngagementHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.engagement.DeleteComment(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
