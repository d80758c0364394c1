// Package config loads runtime configuration from a .env file, an optional
// YAML file and the process environment, in that order of increasing
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/vybe_engagement/pkg/logger"
)

// FileEnv names the variable holding the YAML config path.
const FileEnv = "VYBE_CONFIG_FILE"

// Auth modes.
const (
	AuthModeJWT      = "jwt"
	AuthModeSupabase = "supabase"
)

type ServerConfig struct {
	Host         string        `yaml:"host" env:"SERVER_HOST"`
	Port         int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`

	// AllowedOrigins is a comma-separated CORS allow list.
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Origins splits AllowedOrigins.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// DatabaseConfig selects the persistent store. An empty DSN keeps everything
// in memory.
type DatabaseConfig struct {
	Driver       string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN          string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	AutoMigrate  bool   `yaml:"auto_migrate" env:"DATABASE_AUTO_MIGRATE"`
}

// RedisConfig selects the counter cache. An empty Addr uses an in-process
// cache.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"REDIS_ADDR"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX"`
}

type AuthConfig struct {
	Mode            string `yaml:"mode" env:"AUTH_MODE"`
	JWTSecret       string `yaml:"jwt_secret" env:"SUPABASE_JWT_SECRET"`
	SupabaseURL     string `yaml:"supabase_url" env:"SUPABASE_URL"`
	SupabaseAnonKey string `yaml:"supabase_anon_key" env:"SUPABASE_ANON_KEY"`
}

type CountersConfig struct {
	CacheTTL          time.Duration `yaml:"cache_ttl" env:"COUNTERS_CACHE_TTL"`
	ReconcileSchedule string        `yaml:"reconcile_schedule" env:"COUNTERS_RECONCILE_SCHEDULE"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Redis     RedisConfig          `yaml:"redis"`
	Auth      AuthConfig           `yaml:"auth"`
	Counters  CountersConfig       `yaml:"counters"`
	RateLimit RateLimitConfig      `yaml:"rate_limit"`
	Logging   logger.LoggingConfig `yaml:"logging"`
}

// Load reads .env (if present), then the YAML file named by $VYBE_CONFIG_FILE
// (if set), then the environment, and fills remaining zero values with
// defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		if err := LoadFromPath(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	loggingFromEnv(&cfg.Logging)

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath merges the YAML document at path into cfg.
func LoadFromPath(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "vybe:"
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = AuthModeJWT
	}
	if c.Counters.CacheTTL == 0 {
		c.Counters.CacheTTL = 5 * time.Minute
	}
	if c.Counters.ReconcileSchedule == "" {
		c.Counters.ReconcileSchedule = "@every 5m"
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth: SUPABASE_JWT_SECRET is required in %s mode", AuthModeJWT)
		}
	case AuthModeSupabase:
		if c.Auth.SupabaseURL == "" || c.Auth.SupabaseAnonKey == "" {
			return fmt.Errorf("auth: SUPABASE_URL and SUPABASE_ANON_KEY are required in %s mode", AuthModeSupabase)
		}
	default:
		return fmt.Errorf("auth: unknown mode %q", c.Auth.Mode)
	}
	if c.Database.DSN != "" && c.Database.Driver != "postgres" {
		return fmt.Errorf("database: unsupported driver %q", c.Database.Driver)
	}
	return nil
}

// LoggingConfig lives in pkg/logger and carries no env tags.
func loggingFromEnv(l *logger.LoggingConfig) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		l.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		l.Format = v
	}
	if v := os.Getenv("LOG_OUTPUT"); v != "" {
		l.Output = v
	}
}
