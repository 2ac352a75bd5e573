package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/booklinks/booklinks/internal/auth"
	"github.com/booklinks/booklinks/internal/handler"
	"github.com/booklinks/booklinks/internal/middleware"
	"github.com/booklinks/booklinks/internal/ratelimit"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	Books      *handler.BookHandler
	Discovery  *handler.DiscoveryHandler
	Lists      *handler.ReadingListHandler
	Engagement *handler.EngagementHandler
	Feedback   *handler.FeedbackHandler
	Stats      *handler.StatsHandler
}

// RouterConfig is what NewRouter needs besides the handlers.
type RouterConfig struct {
	Tokens        *auth.TokenService
	AuthLimiter   ratelimit.Limiter
	DiscoveryCORS []string // allowed origins for POST /api/discover
	Logger        *slog.Logger
}

// NewRouter configures all middleware and routes.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz
//	POST   /auth/signup | /auth/login | /auth/logout        (rate limited)
//	GET    /auth/github/login | /auth/github/callback
//	POST   /api/discover                                    (CORS)
//	GET    /api/graph, /api/stats, /api/books/search, /api/books/{slug}, /api/books/{slug}/links
//	GET    /api/lists, /api/lists/{list}
//	GET    /api/references/{id}/upvotes, /api/references/{id}/comments
//	POST   /api/feedback                                    (optional auth)
//	...and the authenticated mutations below.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: unique ID per request, picked up by the logger
//  2. RealIP: client IP from proxy headers
//  3. Logger: one line per request
//  4. Recoverer: a panic becomes a 500 instead of a crash
func NewRouter(h Handlers, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)

	requireAuth := auth.RequireAuth(cfg.Tokens)
	optionalAuth := auth.OptionalAuth(cfg.Tokens)

	r.Get("/healthz", h.Health.HandleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.AuthLimiter, cfg.Logger))
		r.Post("/signup", h.Auth.HandleSignup)
		r.Post("/login", h.Auth.HandleLogin)
		r.Post("/logout", h.Auth.HandleLogout)
		r.Get("/github/login", h.Auth.HandleGitHubLogin)
		r.Get("/github/callback", h.Auth.HandleGitHubCallback)
	})

	origins := cfg.DiscoveryCORS
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	discoveryCORS := cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"authorization", "x-client-info", "apikey", "content-type"},
		MaxAge:         300,
	})

	r.Route("/api", func(r chi.Router) {
		// The preflight needs a matching OPTIONS route to reach the CORS middleware.
		r.Group(func(r chi.Router) {
			r.Use(discoveryCORS)
			r.Post("/discover", h.Discovery.HandleDiscover)
			r.Options("/discover", func(w http.ResponseWriter, r *http.Request) {})
		})

		// Public reads. A valid session still identifies the viewer, e.g.
		// for "you upvoted this".
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/graph", h.Books.HandleGraph)
			r.Get("/stats", h.Stats.HandleStats)
			r.Get("/books/search", h.Books.HandleSearch)
			r.Get("/books/{slug}", h.Books.HandleGet)
			r.Get("/books/{slug}/links", h.Books.HandleLinks)
			r.Get("/lists", h.Lists.HandlePublic)
			r.Get("/lists/{list}", h.Lists.HandleGet)
			r.Get("/references/{id}/upvotes", h.Engagement.HandleUpvotes)
			r.Get("/references/{id}/comments", h.Engagement.HandleComments)
			r.Post("/feedback", h.Feedback.HandleSubmit)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", h.Auth.HandleMe)
			r.Patch("/me", h.Auth.HandleUpdateMe)
			r.Get("/me/lists", h.Lists.HandleMine)

			r.Post("/books", h.Books.HandleCreate)
			r.Post("/books/{slug}/references", h.Books.HandleAddReference)
			r.Delete("/references/{id}", h.Books.HandleDeleteReference)

			r.Post("/references/{id}/upvote", h.Engagement.HandleToggleUpvote)
			r.Post("/references/{id}/comments", h.Engagement.HandleAddComment)
			r.Delete("/comments/{id}", h.Engagement.HandleDeleteComment)

			r.Post("/lists", h.Lists.HandleCreate)
			r.Patch("/lists/{list}", h.Lists.HandleSetVisibility)
			r.Delete("/lists/{list}", h.Lists.HandleDelete)
			r.Post("/lists/{list}/items", h.Lists.HandleAddItem)
			r.Delete("/lists/{list}/items/{bookId}", h.Lists.HandleRemoveItem)

			r.Get("/feedback", h.Feedback.HandleList)
			r.Patch("/feedback/{id}", h.Feedback.HandleUpdate)
		})
	})

	return r
}
