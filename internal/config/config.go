// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	DBURL    string `mapstructure:"DB_URL"`
	RedisURL string `mapstructure:"REDIS_URL"`

	GithubAppID         int64  `mapstructure:"GITHUB_APP_ID"`
	GithubAppPrivateKey string `mapstructure:"GITHUB_APP_PRIVATE_KEY"`
	GithubAppSlug       string `mapstructure:"GITHUB_APP_SLUG"`
	GithubWebhookSecret string `mapstructure:"GITHUB_WEBHOOK_SECRET"`
	GithubAPIURL        string `mapstructure:"GITHUB_API_URL"`

	AuthSecret         string        `mapstructure:"AUTH_SECRET"`
	DashboardURL       string        `mapstructure:"DASHBOARD_URL"`
	CORSAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`
	StateTokenTTL      time.Duration `mapstructure:"STATE_TOKEN_TTL"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	ManualSyncLimit        int  `mapstructure:"MANUAL_SYNC_LIMIT"`
	InitialSyncLimit       int  `mapstructure:"INITIAL_SYNC_LIMIT"`
	CommitPageSize         int  `mapstructure:"COMMIT_PAGE_SIZE"`
	DetailFetchConcurrency int  `mapstructure:"DETAIL_FETCH_CONCURRENCY"`
	WebhookFetchStats      bool `mapstructure:"WEBHOOK_FETCH_STATS"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	return load(viper.New(), ".")
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GITHUB_API_URL", "https://api.github.com/")
	v.SetDefault("STATE_TOKEN_TTL", "15m")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("MANUAL_SYNC_LIMIT", 100)
	v.SetDefault("INITIAL_SYNC_LIMIT", 30)
	v.SetDefault("COMMIT_PAGE_SIZE", 100)
	v.SetDefault("DETAIL_FETCH_CONCURRENCY", 4)
	v.SetDefault("WEBHOOK_FETCH_STATS", true)

	// Defaults make every key known to Unmarshal; these have no default value.
	for _, key := range []string{"DB_URL", "REDIS_URL", "GITHUB_APP_ID", "GITHUB_APP_PRIVATE_KEY", "GITHUB_APP_SLUG",
		"GITHUB_WEBHOOK_SECRET", "AUTH_SECRET", "DASHBOARD_URL", "CORS_ALLOWED_ORIGINS"} {
		_ = v.BindEnv(key)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(configPath)
	_ = v.ReadInConfig() // Ignore error if file not found

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Env lists arrive as one comma separated string.
	if len(cfg.CORSAllowedOrigins) == 1 && strings.Contains(cfg.CORSAllowedOrigins[0], ",") {
		cfg.CORSAllowedOrigins = strings.Split(cfg.CORSAllowedOrigins[0], ",")
	}
	for i := range cfg.CORSAllowedOrigins {
		cfg.CORSAllowedOrigins[i] = strings.TrimSpace(cfg.CORSAllowedOrigins[i])
	}
	if len(cfg.CORSAllowedOrigins) == 0 && cfg.DashboardURL != "" {
		cfg.CORSAllowedOrigins = []string{originOf(cfg.DashboardURL)}
	}

	if strings.HasPrefix(cfg.GithubAppPrivateKey, "@") {
		pem, err := os.ReadFile(strings.TrimPrefix(cfg.GithubAppPrivateKey, "@"))
		if err != nil {
			return nil, fmt.Errorf("GITHUB_APP_PRIVATE_KEY: %w", err)
		}
		cfg.GithubAppPrivateKey = string(pem)
	}
	if !strings.HasSuffix(cfg.GithubAPIURL, "/") {
		cfg.GithubAPIURL += "/"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.DBURL == "" {
		errs = append(errs, errors.New("DB_URL is a required configuration field"))
	}
	if c.GithubAppID == 0 {
		errs = append(errs, errors.New("GITHUB_APP_ID is a required configuration field"))
	}
	if c.GithubAppPrivateKey == "" {
		errs = append(errs, errors.New("GITHUB_APP_PRIVATE_KEY is a required configuration field"))
	}
	if c.GithubAppSlug == "" {
		errs = append(errs, errors.New("GITHUB_APP_SLUG is a required configuration field"))
	}
	if c.GithubWebhookSecret == "" {
		errs = append(errs, errors.New("GITHUB_WEBHOOK_SECRET is a required configuration field"))
	}
	if len(c.AuthSecret) < 32 {
		errs = append(errs, errors.New("AUTH_SECRET must be at least 32 characters"))
	}
	if _, err := url.ParseRequestURI(c.DashboardURL); err != nil {
		errs = append(errs, errors.New("DASHBOARD_URL must be a valid URL"))
	}
	if c.ManualSyncLimit <= 0 || c.InitialSyncLimit <= 0 {
		errs = append(errs, errors.New("MANUAL_SYNC_LIMIT and INITIAL_SYNC_LIMIT must be positive"))
	}
	if c.CommitPageSize <= 0 || c.CommitPageSize > 100 {
		errs = append(errs, errors.New("COMMIT_PAGE_SIZE must be between 1 and 100"))
	}
	if c.DetailFetchConcurrency <= 0 {
		errs = append(errs, errors.New("DETAIL_FETCH_CONCURRENCY must be positive"))
	}
	return errors.Join(errs...)
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
