package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/service"
)

type FeedbackHandler struct {
	feedback *service.FeedbackService
	logger   *slog.Logger
}

func NewFeedbackHandler(feedback *service.FeedbackService, logger *slog.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, logger: logger}
}

// HandleSubmit accepts feedback from anyone. Signed-in users are recorded
// as the submitter.
//
// HTTP: POST /api/feedback
func (h *FeedbackHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var in service.FeedbackInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	f, err := h.feedback.Submit(r.Context(), viewerID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// HTTP: GET /api/feedback?status=new&type=bug
func (h *FeedbackHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	items, err := h.feedback.List(r.Context(), userID, model.FeedbackFilter{
		Status: model.FeedbackStatus(q.Get("status")),
		Type:   model.FeedbackType(q.Get("type")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []model.Feedback{}
	}
	writeJSON(w, http.StatusOK, items)
}

// HTTP: PATCH /api/feedback/{id}
func (h *FeedbackHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in service.FeedbackUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	f, err := h.feedback.UpdateStatus(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
