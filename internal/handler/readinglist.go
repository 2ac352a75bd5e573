package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/service"
)

type ReadingListHandler struct {
	lists  *service.ReadingListService
	logger *slog.Logger
}

func NewReadingListHandler(lists *service.ReadingListService, logger *slog.Logger) *ReadingListHandler {
	return &ReadingListHandler{lists: lists, logger: logger}
}

// visibilityRequest uses a pointer so that a missing field is an error
// instead of silently making the list private.
type visibilityRequest struct {
	IsPublic *bool `json:"isPublic"`
}

// HTTP: GET /api/lists
func (h *ReadingListHandler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.lists.Public(r.Context()))
}

// HTTP: GET /api/me/lists?bookId=...
func (h *ReadingListHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	lists, err := h.lists.Mine(r.Context(), userID, r.URL.Query().Get("bookId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// HandleGet looks the list up by slug. The other list routes share the
// {list} path segment but treat it as the list ID.
//
// HTTP: GET /api/lists/{list}
func (h *ReadingListHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	list, err := h.lists.Get(r.Context(), chi.URLParam(r, "list"), viewerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: POST /api/lists
func (h *ReadingListHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in service.CreateListInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	list, err := h.lists.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// HTTP: PATCH /api/lists/{list}
func (h *ReadingListHandler) HandleSetVisibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.IsPublic == nil {
		writeError(w, apperror.ValidationFailed("isPublic", "isPublic is required"))
		return
	}
	list, err := h.lists.SetVisibility(r.Context(), userID, chi.URLParam(r, "list"), *req.IsPublic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: DELETE /api/lists/{list}
func (h *ReadingListHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.lists.Delete(r.Context(), userID, chi.URLParam(r, "list")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddItem appends a book. Adding a book already on the list answers
// 200 with the request echoed back; a new item answers 201.
//
// HTTP: POST /api/lists/{list}/items
func (h *ReadingListHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in service.AddItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	item, created, err := h.lists.AddItem(r.Context(), userID, chi.URLParam(r, "list"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, item)
}

// HTTP: DELETE /api/lists/{list}/items/{bookId}
func (h *ReadingListHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.lists.RemoveItem(r.Context(), userID, chi.URLParam(r, "list"), chi.URLParam(r, "bookId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
