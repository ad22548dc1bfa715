// Package config loads service configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	LLM       LLMConfig       `yaml:"llm"`
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
}

// DatabaseConfig selects the storage backend. Driver is "postgres" or
// "memory"; memory is intended for development and tests.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LoggingConfig mirrors pkg/logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AuthConfig holds JWT verification settings.
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenExpiry time.Duration `yaml:"token_expiry"`
}

// LLMConfig selects the completion provider and its credentials.
type LLMConfig struct {
	Provider      string  `yaml:"provider"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	BaseURL       string  `yaml:"base_url"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float64 `yaml:"temperature"`
	ClassifyBatch int     `yaml:"classify_batch"`
}

// CrawlerConfig bounds crawl jobs.
type CrawlerConfig struct {
	UserAgent      string        `yaml:"user_agent"`
	MaxPages       int           `yaml:"max_pages"`
	MaxDepth       int           `yaml:"max_depth"`
	RequestDelay   time.Duration `yaml:"request_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Concurrency    int           `yaml:"concurrency"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

// SchedulerConfig drives the background pipelines.
type SchedulerConfig struct {
	ClassifyInterval time.Duration `yaml:"classify_interval"`
	SchemaInterval   time.Duration `yaml:"schema_interval"`
	RecrawlCron      string        `yaml:"recrawl_cron"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPS:    20,
			RateLimitBurst:  40,
		},
		Database: DatabaseConfig{
			Driver: "memory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Auth: AuthConfig{
			TokenExpiry: 24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:      "openai",
			MaxTokens:     1024,
			Temperature:   0.2,
			ClassifyBatch: 10,
		},
		Crawler: CrawlerConfig{
			UserAgent:      "clinicgraph-crawler/1.0",
			MaxPages:       500,
			MaxDepth:       5,
			RequestDelay:   500 * time.Millisecond,
			RequestTimeout: 20 * time.Second,
			Concurrency:    4,
			PollInterval:   15 * time.Second,
		},
		Scheduler: SchedulerConfig{
			ClassifyInterval: 30 * time.Second,
			SchemaInterval:   30 * time.Second,
			RecrawlCron:      "0 3 * * *",
		},
	}
}

// Load reads configuration from path, layering environment variables on top.
// A .env file is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads from path, falling back to defaults plus environment
// overrides when the file is missing.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = Default()
		cfg.applyEnv()
	}
	return cfg
}

func (c *Config) applyEnv() {
	envString("CLINICGRAPH_HOST", &c.Server.Host)
	envInt("CLINICGRAPH_PORT", &c.Server.Port)
	envString("DATABASE_DRIVER", &c.Database.Driver)
	envString("DATABASE_URL", &c.Database.DSN)
	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_FORMAT", &c.Logging.Format)
	envString("JWT_SECRET", &c.Auth.JWTSecret)
	envString("LLM_PROVIDER", &c.LLM.Provider)
	envString("LLM_API_KEY", &c.LLM.APIKey)
	envString("LLM_MODEL", &c.LLM.Model)
	envString("LLM_BASE_URL", &c.LLM.BaseURL)
	envString("CRAWLER_USER_AGENT", &c.Crawler.UserAgent)
	envInt("CRAWLER_MAX_PAGES", &c.Crawler.MaxPages)
	envInt("CRAWLER_MAX_DEPTH", &c.Crawler.MaxDepth)
}

// Validate checks cross-field requirements that defaults cannot guarantee.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("postgres driver requires a DSN")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic", "gemini", "":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler max_pages must be positive")
	}
	if c.Crawler.MaxDepth <= 0 {
		return fmt.Errorf("crawler max_depth must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
