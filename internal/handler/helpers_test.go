package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/booklinks/booklinks/internal/auth"
	"github.com/booklinks/booklinks/internal/booksapi"
	"github.com/booklinks/booklinks/internal/llm"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/ratelimit"
	sqliteRepo "github.com/booklinks/booklinks/internal/repository/sqlite"
	"github.com/booklinks/booklinks/internal/server"
	"github.com/booklinks/booklinks/internal/slug"
)

const testSecret = "handler-test-secret-0123456789"

// testEnv is the whole router over an in-memory database. Only the remote
// services (language model, books API, GitHub) are fakes.
type testEnv struct {
	t      *testing.T
	router http.Handler
	db     *sqliteRepo.DB
	tokens *auth.TokenService

	llm    *fakeSuggester
	books  *fakeBooksAPI
	github *fakeGitHub
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimit(t, 1000)
}

func newTestEnvWithLimit(t *testing.T, authLimit int) *testEnv {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	limiter := ratelimit.NewMemory(authLimit, time.Minute)
	t.Cleanup(limiter.Stop)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		t:      t,
		db:     db,
		tokens: tokens,
		llm:    &fakeSuggester{},
		books:  &fakeBooksAPI{volumes: map[string]booksapi.Volume{}},
		github: &fakeGitHub{enabled: true},
	}

	handlers := server.BuildHandlers(server.Deps{
		DB:        db,
		Tokens:    tokens,
		Passwords: auth.NewPasswordServiceForTest(bcrypt.MinCost),
		GitHub:    env.github,
		Suggester: env.llm,
		BooksAPI:  env.books,
		Logger:    logger,
	})
	env.router = server.NewRouter(handlers, server.RouterConfig{
		Tokens:      tokens,
		AuthLimiter: limiter,
		Logger:      logger,
	})
	return env
}

// request describes one call through the router.
type request struct {
	method string
	path   string
	body   any // marshalled to JSON unless it is a string
	token  string
}

func (e *testEnv) do(req request) *httptest.ResponseRecorder {
	e.t.Helper()

	var body io.Reader
	switch b := req.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, r)
	return rr
}

// user stores an account directly and returns it with a session token.
func (e *testEnv) user(email string, admin bool) (model.User, string) {
	e.t.Helper()

	u := model.User{Email: email, DisplayName: email, IsAdmin: admin}
	require.NoError(e.t, e.db.CreateUser(context.Background(), &u))
	token, err := e.tokens.Generate(u.ID)
	require.NoError(e.t, err)
	return u, token
}

func (e *testEnv) book(title, author string) model.Book {
	e.t.Helper()

	b := model.Book{Slug: slug.Make(title), Title: title, Author: author}
	_, err := e.db.CreateBook(context.Background(), &b)
	require.NoError(e.t, err)
	return b
}

func (e *testEnv) reference(source, target model.Book, addedBy string) model.Reference {
	e.t.Helper()

	ref := model.Reference{
		SourceBookID:     source.ID,
		ReferencedBookID: target.ID,
		Source:           model.SourceUser,
		AddedBy:          addedBy,
	}
	_, err := e.db.CreateReference(context.Background(), &ref)
	require.NoError(e.t, err)
	return ref
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	return nil
}

// --- remote fakes ---

type fakeSuggester struct {
	configured  bool
	suggestions []llm.Suggestion
}

func (f *fakeSuggester) Configured() bool { return f.configured }

func (f *fakeSuggester) SuggestReferences(_ context.Context, _, _ string) ([]llm.Suggestion, error) {
	return f.suggestions, nil
}

type fakeBooksAPI struct {
	mu       sync.Mutex
	search   []booksapi.Volume
	mentions []booksapi.Volume
	volumes  map[string]booksapi.Volume
}

func (f *fakeBooksAPI) SearchVolumes(_ context.Context, _ string, _ int) ([]booksapi.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.search, nil
}

func (f *fakeBooksAPI) SearchByTitleAuthor(_ context.Context, _, _ string, _ int) ([]booksapi.Volume, error) {
	return nil, nil
}

func (f *fakeBooksAPI) SearchMentions(_ context.Context, _, _ string) ([]booksapi.Volume, error) {
	return f.mentions, nil
}

func (f *fakeBooksAPI) GetVolume(_ context.Context, id string) (*booksapi.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.volumes[id]
	if !ok {
		return nil, &booksapi.HTTPError{StatusCode: http.StatusNotFound}
	}
	return &v, nil
}

type fakeGitHub struct {
	enabled bool
	user    *auth.GitHubUser
	err     error
	codes   []string
}

func (f *fakeGitHub) Enabled() bool { return f.enabled }

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.com/login/oauth/authorize?state=" + state
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	f.codes = append(f.codes, code)
	return f.user, f.err
}
