// Package config loads assessd configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/assessd/internal/feedback"
	"github.com/abhisek/assessd/internal/llm"
	"github.com/abhisek/assessd/internal/quizgen"
	"github.com/abhisek/assessd/internal/store"
)

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig      `yaml:"http"`
	DB       DBConfig        `yaml:"db"`
	Redis    RedisConfig     `yaml:"redis"`
	Auth     AuthConfig      `yaml:"auth"`
	CORS     CORSConfig      `yaml:"cors"`
	Log      LogConfig       `yaml:"log"`
	LLM      llm.Config      `yaml:"llm"`
	QuizGen  quizgen.Config  `yaml:"quizgen"`
	Feedback feedback.Config `yaml:"feedback"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DBConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the directory cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config that runs locally against SQLite.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		DB:       DBConfig{Driver: store.DriverSQLite},
		Redis:    RedisConfig{TTL: 5 * time.Minute},
		Auth:     AuthConfig{TokenTTL: 8 * time.Hour},
		Log:      LogConfig{Level: "info"},
		LLM:      llm.DefaultConfig(),
		QuizGen:  quizgen.DefaultConfig(),
		Feedback: feedback.DefaultConfig(),
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	llm.ApplyEnv(&cfg.LLM)
	llm.Discover(&cfg.LLM)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.HTTP.Addr, "ASSESSD_HTTP_ADDR")
	setString(&cfg.DB.Driver, "ASSESSD_DB_DRIVER")
	setString(&cfg.DB.DSN, "ASSESSD_DB_DSN")
	setString(&cfg.Redis.Addr, "ASSESSD_REDIS_ADDR")
	setString(&cfg.Redis.Password, "ASSESSD_REDIS_PASSWORD")
	setString(&cfg.Auth.Secret, "ASSESSD_AUTH_SECRET")
	setString(&cfg.Log.Level, "ASSESSD_LOG_LEVEL")

	if v := os.Getenv("ASSESSD_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORS.Origins = origins
	}
}

// Validate checks the settings needed to serve traffic. Provider
// credentials are not required: without them generation reports
// unavailable.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case store.DriverSQLite:
	case store.DriverPostgres:
		if c.DB.DSN == "" {
			return errors.New("db.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		return fmt.Errorf("redis.ttl must be positive, got %s", c.Redis.TTL)
	}
	if c.HTTP.RequestTimeout < 0 {
		return fmt.Errorf("http.request_timeout must not be negative, got %s", c.HTTP.RequestTimeout)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log.level %q", s)
}

// NewLogger returns a JSON logger on stderr at the configured level.
func (c Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.Log.Level)
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
