// Package config loads BookLinks settings from defaults, an optional config
// file and environment variables, in increasing order of precedence.
//
// Keys are the environment variable names in lower case, so DB_PATH in the
// environment and db_path in a YAML file set the same field.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvConfigFile names the config file when no path is passed to Load.
const EnvConfigFile = "BOOKLINKS_CONFIG"

const minJWTSecretLen = 16

// Config holds every setting the server and the maintenance CLI read.
type Config struct {
	Port   int    `mapstructure:"port"`
	DBPath string `mapstructure:"db_path"`

	// Auth
	JWTSecret          string        `mapstructure:"jwt_secret"`
	JWTTTL             time.Duration `mapstructure:"jwt_ttl"`
	CookieSecure       bool          `mapstructure:"cookie_secure"`
	GitHubClientID     string        `mapstructure:"github_client_id"`
	GitHubClientSecret string        `mapstructure:"github_client_secret"`
	GitHubCallbackURL  string        `mapstructure:"github_callback_url"`
	AuthRateLimit      int           `mapstructure:"auth_rate_limit"`
	AuthRateWindow     time.Duration `mapstructure:"auth_rate_window"`
	RedisAddr          string        `mapstructure:"redis_addr"`
	RedisPassword      string        `mapstructure:"redis_password"`

	// Remote services
	OpenAIAPIKey        string  `mapstructure:"openai_api_key"`
	OpenAIBaseURL       string  `mapstructure:"openai_base_url"`
	OpenAIModel         string  `mapstructure:"openai_model"`
	GoogleBooksAPIKey   string  `mapstructure:"google_books_api_key"`
	GoogleBooksBaseURL  string  `mapstructure:"google_books_base_url"`
	GoogleBooksRate     float64 `mapstructure:"google_books_rate"`
	GoogleBooksBurst    int     `mapstructure:"google_books_burst"`
	GraphEdgeLimit      int     `mapstructure:"graph_edge_limit"`
	DiscoveryCORSOrigin string  `mapstructure:"discovery_cors_origin"`

	// Logging
	LogLevel         string `mapstructure:"log_level"`
	LogFormat        string `mapstructure:"log_format"`
	LogFile          string `mapstructure:"log_file"`
	LogFileMaxSizeMB int    `mapstructure:"log_file_max_size_mb"`
	LogFileBackups   int    `mapstructure:"log_file_backups"`
	LogFileMaxAge    int    `mapstructure:"log_file_max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "data/booklinks.db")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_ttl", 15*time.Minute)
	v.SetDefault("cookie_secure", false)
	v.SetDefault("github_client_id", "")
	v.SetDefault("github_client_secret", "")
	v.SetDefault("github_callback_url", "")
	v.SetDefault("auth_rate_limit", 10)
	v.SetDefault("auth_rate_window", time.Minute)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")

	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "https://api.openai.com")
	v.SetDefault("openai_model", "gpt-3.5-turbo")
	v.SetDefault("google_books_api_key", "")
	v.SetDefault("google_books_base_url", "https://www.googleapis.com/books/v1")
	v.SetDefault("google_books_rate", 5.0)
	v.SetDefault("google_books_burst", 5)
	v.SetDefault("graph_edge_limit", 500)
	v.SetDefault("discovery_cors_origin", "*")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
	v.SetDefault("log_file_max_size_mb", 50)
	v.SetDefault("log_file_backups", 5)
	v.SetDefault("log_file_max_age_days", 28)
}

// Load reads configuration. path names a YAML, TOML or JSON file; when it
// is empty, $BOOKLINKS_CONFIG is used, and when that is empty too only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every command relies on. A missing
// JWT_SECRET is allowed here because the CLI never signs tokens; the server
// refuses to start without one.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 1-65535", c.Port))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path must not be empty"))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("jwt_secret must be at least %d characters", minJWTSecretLen))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("jwt_ttl must be positive"))
	}
	if c.AuthRateLimit < 1 {
		errs = append(errs, errors.New("auth_rate_limit must be at least 1"))
	}
	if c.AuthRateWindow <= 0 {
		errs = append(errs, errors.New("auth_rate_window must be positive"))
	}
	if c.GraphEdgeLimit < 1 {
		errs = append(errs, errors.New("graph_edge_limit must be at least 1"))
	}
	if c.GoogleBooksRate <= 0 || c.GoogleBooksBurst < 1 {
		errs = append(errs, errors.New("google_books_rate and google_books_burst must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q is not one of text, json", c.LogFormat))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// GitHubEnabled reports whether both OAuth client credentials are set.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}
