// Package config loads TaskFlow settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `env:"LEVEL" envDefault:"info"`
	// Format is one of text, json, logfmt.
	Format     string `env:"FORMAT" envDefault:"text"`
	TimeFormat string `env:"TIME_FORMAT" envDefault:"2006-01-02 15:04:05"`
}

type AuthConfig struct {
	TokenSecret string        `env:"TOKEN_SECRET"`
	Issuer      string        `env:"ISSUER" envDefault:"taskflow"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
}

type SessionConfig struct {
	CookieName string        `env:"COOKIE_NAME" envDefault:"taskflow_sess"`
	TTL        time.Duration `env:"TTL" envDefault:"336h"`
	Secure     bool          `env:"COOKIE_SECURE" envDefault:"false"`
	// SameSite is one of lax, strict, none.
	SameSite string `env:"SAME_SITE" envDefault:"lax"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

type RateLimitConfig struct {
	// Login is a ulule/limiter rate such as "30-M".
	Login string `env:"LOGIN" envDefault:"30-M"`
}

type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

type ClientConfig struct {
	APIURL  string        `env:"API_URL" envDefault:"http://localhost:8080"`
	Token   string        `env:"TOKEN"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Config is the full TaskFlow configuration. Every variable is read with the
// TASKFLOW_ prefix, e.g. TASKFLOW_LOG_LEVEL.
type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"postgres://postgres:postgres@db:5432/taskflow?sslmode=disable"`

	Log       LogConfig       `envPrefix:"LOG_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Session   SessionConfig   `envPrefix:"SESSION_"`
	CORS      CORSConfig      `envPrefix:"CORS_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
	Client    ClientConfig
}

const Prefix = "TASKFLOW_"

// DefaultEnvFiles are loaded by Load when no files are given.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Load reads the given dotenv files, those that exist, and then the
// environment. Variables already set in the process win over dotenv files.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}
	return Parse(nil)
}

// Parse builds a Config from environ, or from the process environment when
// environ is nil.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{Prefix: Prefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unusable values and normalizes the rest.
func (c *Config) Validate() error {
	var errs []error
	c.Client.APIURL = strings.TrimSuffix(c.Client.APIURL, "/")

	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "logfmt":
	default:
		errs = append(errs, fmt.Errorf("log format %q: want text, json or logfmt", c.Log.Format))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log level %q: want debug, info, warn or error", c.Log.Level))
	}
	if _, err := c.Session.SameSiteMode(); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth token ttl must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics path %q must start with /", c.Metrics.Path))
	}
	return errors.Join(errs...)
}

// SameSiteMode maps the configured SameSite name to its cookie mode.
func (s SessionConfig) SameSiteMode() (http.SameSite, error) {
	switch strings.ToLower(s.SameSite) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("session same site %q: want lax, strict or none", s.SameSite)
}

// RequireTokenSecret fails when no JWT secret is configured. Only the server
// needs one.
func (c *Config) RequireTokenSecret() error {
	if len(c.Auth.TokenSecret) < 16 {
		return errors.New("TASKFLOW_AUTH_TOKEN_SECRET must be at least 16 bytes")
	}
	return nil
}
