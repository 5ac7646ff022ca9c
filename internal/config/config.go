package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Hermes      HermesConfig      `yaml:"hermes"`
	Assessments AssessmentsConfig `yaml:"assessments"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port               int    `yaml:"port"`
	MetricsPort        int    `yaml:"metrics_port"`
	AdminToken         string `yaml:"admin_token"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

// DatabaseConfig selects PostgreSQL. An empty URL keeps records in memory.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig selects shared locks. An empty Addr uses in-process locks.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	LockTTLMs int    `yaml:"lock_ttl_ms"`
}

// HermesConfig points at NATS. An empty URL disables events.
type HermesConfig struct {
	URL string `yaml:"url"`
}

type AssessmentsConfig struct {
	// CatalogFile replaces the built-in assessment catalog when set.
	CatalogFile     string `yaml:"catalog_file"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLMs) * time.Millisecond
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8700,
			MetricsPort:        8701,
			RateLimitPerMinute: 120,
		},
		Redis: RedisConfig{
			LockTTLMs: 5000,
		},
		Assessments: AssessmentsConfig{
			DefaultPageSize: 10,
			MaxPageSize:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if any), then a .env file, then WELLSPRING_* environment variables. The
// .env file never overrides variables already set in the environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv() error {
	file := os.Getenv("WELLSPRING_ENV_FILE")
	if file == "" {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", file, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.MetricsPort <= 0 {
		return fmt.Errorf("invalid ports: server %d, metrics %d", c.Server.Port, c.Server.MetricsPort)
	}
	if c.Assessments.DefaultPageSize <= 0 || c.Assessments.MaxPageSize < c.Assessments.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default %d, max %d",
			c.Assessments.DefaultPageSize, c.Assessments.MaxPageSize)
	}
	if c.Redis.Addr != "" && c.Redis.LockTTLMs <= 0 {
		return fmt.Errorf("redis lock_ttl_ms must be positive, got %d", c.Redis.LockTTLMs)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WELLSPRING_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("WELLSPRING_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("WELLSPRING_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("WELLSPRING_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("WELLSPRING_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("WELLSPRING_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("WELLSPRING_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WELLSPRING_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("WELLSPRING_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("WELLSPRING_CATALOG_FILE"); v != "" {
		cfg.Assessments.CatalogFile = v
	}
	if v := os.Getenv("WELLSPRING_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WELLSPRING_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
