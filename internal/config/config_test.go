package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port, got %q", cfg.HTTPPort)
	}
	if cfg.ChatHistoryWindow != 12 || cfg.ChatMaxMessageChars != 1500 {
		t.Fatalf("unexpected chat defaults: window=%d max=%d", cfg.ChatHistoryWindow, cfg.ChatMaxMessageChars)
	}
	if cfg.LLMMaxOutputTokens != 260 || cfg.LLMModel != "gpt-4.1-mini" {
		t.Fatalf("unexpected llm defaults: tokens=%d model=%q", cfg.LLMMaxOutputTokens, cfg.LLMModel)
	}
	if cfg.ChatRequestTimeout != 2*time.Minute {
		t.Fatalf("expected 2m request timeout, got %s", cfg.ChatRequestTimeout)
	}
	if cfg.ShutdownTimeout != 30*time.Second || cfg.DBMaxConns != 20 {
		t.Fatalf("unexpected server defaults: shutdown=%s pool=%d", cfg.ShutdownTimeout, cfg.DBMaxConns)
	}
	if !cfg.ChatStreamDefault {
		t.Fatalf("expected streaming on by default")
	}
}

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("STORE_DRIVER", "memory")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when LLM_API_KEY is missing")
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		return Config{
			StoreDriver:         DriverMemory,
			ChatHistoryWindow:   12,
			ChatMaxMessageChars: 1500,
			LLMMaxOutputTokens:  260,
			ChatRetentionTurns:  200,
			ShutdownTimeout:     30 * time.Second,
			DBMaxConns:          20,
		}
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "memory ok", mutate: func(*Config) {}},
		{name: "driver normalized", mutate: func(c *Config) { c.StoreDriver = " Memory " }},
		{name: "postgres needs url", mutate: func(c *Config) { c.StoreDriver = DriverPostgres }, wantErr: "DATABASE_URL"},
		{name: "postgres ok", mutate: func(c *Config) { c.StoreDriver = DriverPostgres; c.DatabaseURL = "postgres://localhost/chat" }},
		{name: "postgres pool positive", mutate: func(c *Config) {
			c.StoreDriver = DriverPostgres
			c.DatabaseURL = "postgres://localhost/chat"
			c.DBMaxConns = 0
		}, wantErr: "DATABASE_MAX_CONNS"},
		{name: "redis needs addr", mutate: func(c *Config) { c.StoreDriver = DriverRedis }, wantErr: "REDIS_ADDR"},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "mongo" }, wantErr: "unknown STORE_DRIVER"},
		{name: "window positive", mutate: func(c *Config) { c.ChatHistoryWindow = 0 }, wantErr: "CHAT_HISTORY_WINDOW"},
		{name: "retention below window", mutate: func(c *Config) { c.ChatRetentionTurns = 4 }, wantErr: "CHAT_RETENTION_TURNS"},
		{name: "retention disabled", mutate: func(c *Config) { c.ChatRetentionTurns = 0 }},
		{name: "rate limit negative", mutate: func(c *Config) { c.RateLimitMax = -1 }, wantErr: "CHAT_RATE_LIMIT_MAX"},
		{name: "shutdown timeout positive", mutate: func(c *Config) { c.ShutdownTimeout = 0 }, wantErr: "HTTP_SHUTDOWN_TIMEOUT"},
		{name: "rate limit disabled", mutate: func(c *Config) { c.RateLimitMax = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
