package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/booklinks/booklinks/internal/service"
)

// BookHandler serves the catalogue: search, book pages, adding books and
// references, and outbound purchase/library links.
type BookHandler struct {
	books  *service.BookService
	graph  *service.GraphService
	logger *slog.Logger
}

func NewBookHandler(books *service.BookService, graph *service.GraphService, logger *slog.Logger) *BookHandler {
	return &BookHandler{books: books, graph: graph, logger: logger}
}

// HandleSearch searches the local catalogue and the books API together.
//
// HTTP: GET /api/books/search?q=...
func (h *BookHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.books.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// HandleGet returns a book with its references in both directions.
//
// HTTP: GET /api/books/{slug}
func (h *BookHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.graph.BookDetail(r.Context(), chi.URLParam(r, "slug"), viewerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleCreate adds a book and the books it references.
// An existing book is returned with 200 instead of 201.
//
// HTTP: POST /api/books
func (h *BookHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.AddBookInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.books.AddBook(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// HandleAddReference records that {slug} references the book in the body.
//
// HTTP: POST /api/books/{slug}/references
func (h *BookHandler) HandleAddReference(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.BookInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	ref, created, err := h.books.AddReference(r.Context(), userID, chi.URLParam(r, "slug"), in)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"reference": ref, "created": created})
}

// HandleDeleteReference removes an edge. Only its author or an administrator may.
//
// HTTP: DELETE /api/references/{id}
func (h *BookHandler) HandleDeleteReference(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.books.DeleteReference(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLinks returns where to buy or borrow a book.
//
// HTTP: GET /api/books/{slug}/links?country=GB&tz=Europe/London
func (h *BookHandler) HandleLinks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	l, err := h.books.Links(r.Context(), chi.URLParam(r, "slug"), q.Get("country"), q.Get("tz"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// HandleGraph returns every book and edge for the explore view.
// It always answers 200; a storage failure yields an empty graph.
//
// HTTP: GET /api/graph
func (h *BookHandler) HandleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.graph.Graph(r.Context()))
}
