package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Guidance   GuidanceConfig   `yaml:"guidance"`
	Auth       AuthConfig       `yaml:"auth"`
	Session    SessionConfig    `yaml:"session"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"-"` // env-only, may carry credentials
}

// ClassifierConfig contains remote zero-shot classifier settings. The
// remote classifier is enabled when APIKey is set.
type ClassifierConfig struct {
	APIKey          string   `yaml:"-"` // env-only, never in YAML
	BaseURL         string   `yaml:"base_url"`
	Model           string   `yaml:"model"`
	Timeout         Duration `yaml:"timeout"`
	BreakerFailures uint32   `yaml:"breaker_failures"`
	BreakerCooldown Duration `yaml:"breaker_cooldown"`
}

// RemoteEnabled reports whether the remote classifier is configured.
func (c ClassifierConfig) RemoteEnabled() bool {
	return c.APIKey != ""
}

// GuidanceConfig contains model-backed guidance settings. Guidance falls
// back to keyword rules when APIKey is empty.
type GuidanceConfig struct {
	APIKey    string   `yaml:"-"` // env-only, never in YAML
	Model     string   `yaml:"model"`
	MaxTokens int64    `yaml:"max_tokens"`
	Timeout   Duration `yaml:"timeout"`
}

// ModelEnabled reports whether guidance uses the chat model.
func (g GuidanceConfig) ModelEnabled() bool {
	return g.APIKey != ""
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	// Tokens maps bearer token to actor id.
	Tokens  map[string]string `yaml:"-"` // env-only, never in YAML
	DevMode bool              `yaml:"-"`
}

// SessionConfig contains assistant session settings. Pending actions are
// kept in Redis when RedisAddr is set, in memory otherwise.
type SessionConfig struct {
	PendingTTL    Duration `yaml:"pending_ttl"`
	RedisAddr     string   `yaml:"redis_addr"`
	RedisDB       int      `yaml:"redis_db"`
	RedisPassword string   `yaml:"-"` // env-only, never in YAML
	SweepInterval Duration `yaml:"sweep_interval"`
}

// RateLimitConfig contains the per-actor limit on classifier and
// assistant routes. A non-positive RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("STEWARD_CONFIG_PATH", "config/steward.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadUnvalidated applies defaults, the YAML file and env overrides
// without validation. CLI commands that need one section use it.
func loadUnvalidated() (*Config, error) {
	cfg := newDefaults()
	if err := loadYAMLFile(cfg, getEnv("STEWARD_CONFIG_PATH", "config/steward.yaml")); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClassifierConfig loads only the classifier section. It does not
// require API tokens.
func LoadClassifierConfig() (*ClassifierConfig, error) {
	cfg, err := loadUnvalidated()
	if err != nil {
		return nil, err
	}
	return &cfg.Classifier, nil
}

// LoadDatabaseConfig loads only the database section. It does not
// require API tokens.
func LoadDatabaseConfig() (*DatabaseConfig, error) {
	cfg, err := loadUnvalidated()
	if err != nil {
		return nil, err
	}
	return &cfg.Database, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "data/steward.db",
		},
		Classifier: ClassifierConfig{
			BaseURL:         "https://api-inference.huggingface.co/models",
			Model:           "facebook/bart-large-mnli",
			Timeout:         Duration(10 * time.Second),
			BreakerFailures: 5,
			BreakerCooldown: Duration(30 * time.Second),
		},
		Guidance: GuidanceConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 200,
			Timeout:   Duration(10 * time.Second),
		},
		Session: SessionConfig{
			PendingTTL:    Duration(10 * time.Minute),
			SweepInterval: Duration(1 * time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values. Malformed numbers and
// durations are ignored; a malformed token list is an error.
func applyEnvOverrides(cfg *Config) error {
	// Server
	if v := os.Getenv("STEWARD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	envDuration("STEWARD_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("STEWARD_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("STEWARD_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Database
	if v := os.Getenv("STEWARD_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("STEWARD_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("STEWARD_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Classifier (HF_API_KEY is the Hugging Face convention)
	if v := os.Getenv("HF_API_KEY"); v != "" {
		cfg.Classifier.APIKey = v
	}
	if v := os.Getenv("STEWARD_CLASSIFIER_URL"); v != "" {
		cfg.Classifier.BaseURL = v
	}
	if v := os.Getenv("STEWARD_CLASSIFIER_MODEL"); v != "" {
		cfg.Classifier.Model = v
	}
	envDuration("STEWARD_CLASSIFIER_TIMEOUT", &cfg.Classifier.Timeout)

	// Guidance (OPENAI_API_KEY is industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Guidance.APIKey = v
	}
	if v := os.Getenv("STEWARD_GUIDANCE_MODEL"); v != "" {
		cfg.Guidance.Model = v
	}

	// Auth
	if v := os.Getenv("STEWARD_API_TOKENS"); v != "" {
		tokens, err := ParseTokens(v)
		if err != nil {
			return err
		}
		cfg.Auth.Tokens = tokens
	}
	cfg.Auth.DevMode = os.Getenv("STEWARD_DEV_MODE") == "true"

	// Session
	envDuration("STEWARD_PENDING_TTL", &cfg.Session.PendingTTL)
	envDuration("STEWARD_SWEEP_INTERVAL", &cfg.Session.SweepInterval)
	if v := os.Getenv("STEWARD_REDIS_ADDR"); v != "" {
		cfg.Session.RedisAddr = v
	}
	if v := os.Getenv("STEWARD_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.RedisDB = n
		}
	}
	if v := os.Getenv("STEWARD_REDIS_PASSWORD"); v != "" {
		cfg.Session.RedisPassword = v
	}

	// Rate limit
	if v := os.Getenv("STEWARD_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("STEWARD_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Burst = n
		}
	}

	// Log
	if v := os.Getenv("STEWARD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STEWARD_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	return nil
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// ParseTokens parses "actor=token,actor=token" into a token to actor map.
func ParseTokens(s string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		actor, token, ok := strings.Cut(pair, "=")
		actor, token = strings.TrimSpace(actor), strings.TrimSpace(token)
		if !ok || actor == "" || token == "" {
			return nil, errors.New("STEWARD_API_TOKENS must be a comma-separated list of actor=token pairs")
		}
		if _, dup := tokens[token]; dup {
			return nil, fmt.Errorf("STEWARD_API_TOKENS assigns one token to several actors (%s)", actor)
		}
		tokens[token] = actor
	}
	return tokens, nil
}

// validate checks that required configuration values are set.
// In dev mode (STEWARD_DEV_MODE=true), the token requirement is skipped.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("STEWARD_DATABASE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Session.PendingTTL <= 0 {
		return errors.New("session.pending_ttl must be positive")
	}

	if c.Auth.DevMode {
		return nil
	}
	if len(c.Auth.Tokens) == 0 {
		return errors.New("STEWARD_API_TOKENS is required")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
