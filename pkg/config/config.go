package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultJWTSecret   = "secret"
	DefaultSnapshotKey = "linkora-profile"
)

type Config struct {
	Port               string        `yaml:"port"`
	AppEnv             string        `yaml:"app_env"`
	BaseURL            string        `yaml:"base_url"`
	DatabaseURL        string        `yaml:"database_url"`
	RedisURL           string        `yaml:"redis_url"`
	SnapshotKey        string        `yaml:"snapshot_key"`
	JWTSecret          string        `yaml:"jwt_secret"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	GoogleClientID     string        `yaml:"google_client_id"`
	GoogleClientSecret string        `yaml:"google_client_secret"`
	GoogleRedirectURL  string        `yaml:"google_redirect_url"`
	FrontendURL        string        `yaml:"frontend_url"`
	AllowedEmails      []string      `yaml:"allowed_emails"`
	CORSOrigins        []string      `yaml:"cors_origins"`
	LogLevel           string        `yaml:"log_level"`
	PersistTimeout     time.Duration `yaml:"persist_timeout"`
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE,
// then environment variables, and fills defaults for anything left unset.
func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	overrideString(&c.Port, "PORT")
	overrideString(&c.AppEnv, "APP_ENV")
	overrideString(&c.BaseURL, "BASE_URL")
	overrideString(&c.DatabaseURL, "DATABASE_URL")
	overrideString(&c.RedisURL, "REDIS_URL")
	overrideString(&c.SnapshotKey, "SNAPSHOT_KEY")
	overrideString(&c.JWTSecret, "JWT_SECRET")
	overrideString(&c.GoogleClientID, "GOOGLE_CLIENT_ID")
	overrideString(&c.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	overrideString(&c.GoogleRedirectURL, "GOOGLE_REDIRECT_URL")
	overrideString(&c.FrontendURL, "FRONTEND_URL")
	overrideString(&c.LogLevel, "LOG_LEVEL")
	overrideList(&c.AllowedEmails, "ALLOWED_EMAILS")
	overrideList(&c.CORSOrigins, "CORS_ORIGINS")
	if err := overrideDuration(&c.SessionTTL, "SESSION_TTL"); err != nil {
		return err
	}
	return overrideDuration(&c.PersistTimeout, "PERSIST_TIMEOUT")
}

func (c *Config) applyDefaults() {
	setDefault(&c.Port, "8080")
	setDefault(&c.AppEnv, "local")
	setDefault(&c.BaseURL, "http://localhost:"+c.Port)
	setDefault(&c.DatabaseURL, "file:db.sqlite")
	setDefault(&c.SnapshotKey, DefaultSnapshotKey)
	setDefault(&c.JWTSecret, defaultJWTSecret)
	setDefault(&c.GoogleRedirectURL, strings.TrimRight(c.BaseURL, "/")+"/auth/google/callback")
	setDefault(&c.FrontendURL, strings.TrimRight(c.BaseURL, "/")+"/")
	setDefault(&c.LogLevel, "info")
	if c.SessionTTL == 0 {
		c.SessionTTL = 24 * time.Hour
	}
	if c.PersistTimeout == 0 {
		c.PersistTimeout = 5 * time.Second
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{c.FrontendURL}
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GoogleEnabled reports whether Google sign-in is configured
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c *Config) Validate() error {
	var errs []error
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		errs = append(errs, fmt.Errorf("PORT %q is not a valid port", c.Port))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.PersistTimeout < 0 {
		errs = append(errs, errors.New("PERSIST_TIMEOUT must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func overrideString(dst *string, key string) {
	*dst = getEnv(key, *dst)
}

func overrideList(dst *[]string, key string) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func overrideDuration(dst *time.Duration, key string) error {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setDefault(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}
