package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklinks/booklinks/internal/config"
)

func testConfig(dbPath string) *config.Config {
	return &config.Config{
		Port:                8080,
		DBPath:              dbPath,
		JWTSecret:           "server-test-secret-0123456789",
		JWTTTL:              time.Hour,
		AuthRateLimit:       10,
		AuthRateWindow:      time.Minute,
		GoogleBooksRate:     5,
		GoogleBooksBurst:    5,
		GraphEdgeLimit:      500,
		DiscoveryCORSOrigin: "*",
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_CreatesDatabaseDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "booklinks.db")

	s, err := New(testConfig(dbPath), discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = os.Stat(filepath.Dir(dbPath))
	assert.NoError(t, err)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/graph", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNew_RequiresJWTSecret(t *testing.T) {
	cfg := testConfig(":memory:")
	cfg.JWTSecret = ""

	_, err := New(cfg, discard())
	assert.Error(t, err)

	cfg.JWTSecret = "too-short"
	_, err = New(cfg, discard())
	assert.Error(t, err)
}

func TestNew_UnreachableRedis(t *testing.T) {
	cfg := testConfig(":memory:")
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := New(cfg, discard())
	assert.ErrorContains(t, err, "redis ping")
}

func TestClose_Twice(t *testing.T) {
	s, err := New(testConfig(":memory:"), discard())
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSplitOrigins(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"*", []string{"*"}},
		{"https://a.example, https://b.example", []string{"https://a.example", "https://b.example"}},
		{" , ", nil},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitOrigins(tt.in), tt.in)
	}
}
