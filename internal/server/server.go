// Package server is the composition root: it opens the database, builds the
// remote clients, services and handlers, mounts the routes and runs the
// HTTP server until a shutdown signal arrives.
//
// DEPENDENCY FLOW:
//
//	config.Config → sqlite.DB, llm.Client, booksapi.Client, ratelimit.Limiter
//	             → service.* (business rules)
//	             → handler.* (HTTP)
//	             → NewRouter
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/booklinks/booklinks/internal/auth"
	"github.com/booklinks/booklinks/internal/booksapi"
	"github.com/booklinks/booklinks/internal/config"
	"github.com/booklinks/booklinks/internal/handler"
	"github.com/booklinks/booklinks/internal/llm"
	"github.com/booklinks/booklinks/internal/ratelimit"
	sqliteRepo "github.com/booklinks/booklinks/internal/repository/sqlite"
	"github.com/booklinks/booklinks/internal/service"
	"github.com/booklinks/booklinks/internal/validation"
)

const (
	shutdownTimeout = 30 * time.Second
	// Discovery makes a model call plus several books API calls; it needs
	// longer than the other routes.
	writeTimeout = 120 * time.Second

	authLimiterPrefix = "booklinks:auth:"
)

// Server represents the HTTP server and all resources it owns. Close (or a
// completed Start) releases them.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	closers []io.Closer
}

// New wires every dependency from cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("server: JWT_SECRET must be set")
	}

	if err := ensureDBDir(cfg.DBPath); err != nil {
		return nil, err
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{config: cfg, logger: logger, db: db}

	limiter, err := s.authLimiter()
	if err != nil {
		s.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	github := auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	if !github.Enabled() {
		logger.Warn("GITHUB_CLIENT_ID / GITHUB_CLIENT_SECRET not set; GitHub login is disabled")
	}

	llmClient := llm.New(llm.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
	})
	if !llmClient.Configured() {
		logger.Warn("OPENAI_API_KEY not set; discovery will rely on Google Books only")
	}

	booksClient := booksapi.NewClient(booksapi.Config{
		BaseURL:           cfg.GoogleBooksBaseURL,
		APIKey:            cfg.GoogleBooksAPIKey,
		RequestsPerSecond: cfg.GoogleBooksRate,
		Burst:             cfg.GoogleBooksBurst,
	}, logger)

	s.router = NewRouter(BuildHandlers(Deps{
		DB:        db,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(),
		GitHub:    github,
		Suggester: llmClient,
		BooksAPI:  booksClient,
		Cookies:   auth.CookieOptions{Secure: cfg.CookieSecure},
		EdgeLimit: cfg.GraphEdgeLimit,
		Logger:    logger,
	}), RouterConfig{
		Tokens:        tokens,
		AuthLimiter:   limiter,
		DiscoveryCORS: splitOrigins(cfg.DiscoveryCORSOrigin),
		Logger:        logger,
	})

	return s, nil
}

// Deps is everything BuildHandlers needs. Tests fill it with fakes for the
// remote services.
type Deps struct {
	DB        *sqliteRepo.DB
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	GitHub    handler.GitHubAuthenticator
	Suggester service.ReferenceSuggester
	BooksAPI  service.BooksAPI
	Cookies   auth.CookieOptions
	EdgeLimit int
	Logger    *slog.Logger
}

// BuildHandlers assembles services over the database and the handlers over
// the services.
func BuildHandlers(d Deps) Handlers {
	validate := validation.New()
	db, logger := d.DB, d.Logger

	authService := service.NewAuthService(db, d.Tokens, d.Passwords, validate, logger)
	bookService := service.NewBookService(db, db, db, d.BooksAPI, validate, logger)
	graphService := service.NewGraphService(db, db, d.EdgeLimit, logger)
	discoveryService := service.NewDiscoveryService(db, db, d.Suggester, d.BooksAPI, logger)
	listService := service.NewReadingListService(db, db, validate, logger)
	engagementService := service.NewEngagementService(db, db, validate, logger)
	feedbackService := service.NewFeedbackService(db, db, validate, logger)
	statsService := service.NewStatsService(db, logger)

	return Handlers{
		Health:     handler.NewHealthHandler(db, logger),
		Auth:       handler.NewAuthHandler(authService, d.GitHub, d.Cookies, d.Tokens.TTL(), logger),
		Books:      handler.NewBookHandler(bookService, graphService, logger),
		Discovery:  handler.NewDiscoveryHandler(discoveryService, logger),
		Lists:      handler.NewReadingListHandler(listService, logger),
		Engagement: handler.NewEngagementHandler(engagementService, logger),
		Feedback:   handler.NewFeedbackHandler(feedbackService, logger),
		Stats:      handler.NewStatsHandler(statsService, logger),
	}
}

// authLimiter returns the shared Redis counter when REDIS_ADDR is set and a
// process-local one otherwise.
func (s *Server) authLimiter() (ratelimit.Limiter, error) {
	limit, window := s.config.AuthRateLimit, s.config.AuthRateWindow

	if s.config.RedisAddr == "" {
		mem := ratelimit.NewMemory(limit, window)
		s.closers = append(s.closers, closerFunc(func() error { mem.Stop(); return nil }))
		return mem, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        s.config.RedisAddr,
		Password:    s.config.RedisPassword,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", s.config.RedisAddr, err)
	}
	s.closers = append(s.closers, rdb)

	s.logger.Info("auth rate limit shared through Redis", slog.String("addr", s.config.RedisAddr))
	return ratelimit.NewRedis(rdb, authLimiterPrefix, limit, window), nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and handles graceful shutdown:
//  1. Stop accepting new connections on SIGINT/SIGTERM
//  2. Wait up to 30s for in-flight requests
//  3. Close the limiter, Redis and the database (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close releases everything New opened, newest first. Safe to call twice.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
		s.db = nil
	}
	return errors.Join(errs...)
}

// ensureDBDir creates the database's parent directory (like `mkdir -p`).
func ensureDBDir(dbPath string) error {
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
