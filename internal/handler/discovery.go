package handler

import (
	"log/slog"
	"net/http"

	"github.com/booklinks/booklinks/internal/service"
)

// DiscoveryHandler triggers the reference discovery pipeline.
type DiscoveryHandler struct {
	discovery *service.DiscoveryService
	logger    *slog.Logger
}

func NewDiscoveryHandler(discovery *service.DiscoveryService, logger *slog.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{discovery: discovery, logger: logger}
}

// discoverFailure is the error body of POST /api/discover. The discovery
// client reads "success" on every response, so failures keep that key
// instead of the usual ErrorResponse.
type discoverFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HandleDiscover runs discovery for one book.
//
// HTTP: POST /api/discover
// REQUEST BODY: {"bookId": "..."} or {"bookTitle": "..."}
func (h *DiscoveryHandler) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	var req service.DiscoverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.discovery.Discover(r.Context(), req)
	if err != nil {
		h.logger.Error("discovery failed",
			slog.String("bookId", req.BookID),
			slog.String("bookTitle", req.BookTitle),
			slog.String("error", err.Error()),
		)
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *DiscoveryHandler) fail(w http.ResponseWriter, err error) {
	status, _, message := classify(err)
	writeJSON(w, status, discoverFailure{Success: false, Error: message})
}
