package handler

import (
	"net/http"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/auth"
)

// viewerID returns the signed-in user's ID, or "" for anonymous requests.
// Used on routes wrapped in auth.OptionalAuth.
func viewerID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// currentUser returns the caller's ID on a RequireAuth route. The middleware
// has already rejected anonymous requests, so the 401 here only fires if a
// route was mounted without it.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return "", false
	}
	return id, true
}
