package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ASSESSD_HTTP_ADDR", "ASSESSD_DB_DRIVER", "ASSESSD_DB_DSN", "ASSESSD_REDIS_ADDR",
		"ASSESSD_AUTH_SECRET", "ASSESSD_CORS_ORIGINS", "ASSESSD_LOG_LEVEL", "ASSESSD_LLM_PROVIDER",
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "assessd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9000"
db:
  driver: postgres
  dsn: postgres://localhost/assessd
auth:
  secret: from-file
redis:
  addr: localhost:6379
  ttl: 2m
llm:
  provider: mock
  timeout: 15s
quizgen:
  max_tokens: 2048
`), 0o600))

	t.Setenv("ASSESSD_AUTH_SECRET", "from-env")
	t.Setenv("ASSESSD_CORS_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, 2*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2048, cfg.QuizGen.MaxTokens)
	assert.Equal(t, 0.7, cfg.QuizGen.Temperature, "unset keys keep defaults")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.Origins)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DiscoversVendorKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Auth.Secret = "s"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no secret", func(c *Config) { c.Auth.Secret = "" }},
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.DB.Driver = "postgres"; c.DB.DSN = "" }},
		{"zero token ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"redis without ttl", func(c *Config) { c.Redis.Addr = "localhost:6379"; c.Redis.TTL = 0 }},
		{"zero llm timeout", func(c *Config) { c.LLM.Timeout = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
