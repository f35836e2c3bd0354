package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Drivers de store soportados.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverBolt     = "bolt"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBMaxConns    int32  `env:"DATABASE_MAX_CONNS" envDefault:"20"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"data/chat.db"`
	BoltPath      string `env:"BOLT_PATH" envDefault:"data/chat.bolt"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LLMAPIKey          string        `env:"LLM_API_KEY,required,notEmpty"`
	LLMBaseURL         string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel           string        `env:"LLM_MODEL" envDefault:"gpt-4.1-mini"`
	LLMMaxOutputTokens int           `env:"LLM_MAX_OUTPUT_TOKENS" envDefault:"260"`
	LLMTemperature     float64       `env:"LLM_TEMPERATURE" envDefault:"0.55"`
	LLMTimeout         time.Duration `env:"LLM_TIMEOUT" envDefault:"90s"`

	ChatHistoryWindow   int           `env:"CHAT_HISTORY_WINDOW" envDefault:"12"`
	ChatMaxMessageChars int           `env:"CHAT_MAX_MESSAGE_CHARS" envDefault:"1500"`
	ChatRetentionTurns  int           `env:"CHAT_RETENTION_TURNS" envDefault:"200"`
	ChatRequestTimeout  time.Duration `env:"CHAT_REQUEST_TIMEOUT" envDefault:"2m"`
	ChatStreamDefault   bool          `env:"CHAT_STREAM_DEFAULT" envDefault:"true"`
	RateLimitWindow     time.Duration `env:"CHAT_RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitMax        int           `env:"CHAT_RATE_LIMIT_MAX" envDefault:"20"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que las tags de env no pueden expresar.
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))

	switch c.StoreDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
		if c.DBMaxConns <= 0 {
			return errors.New("DATABASE_MAX_CONNS must be positive")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case DriverBolt:
		if strings.TrimSpace(c.BoltPath) == "" {
			return errors.New("BOLT_PATH is required for the bolt store")
		}
	case DriverRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("REDIS_ADDR is required for the redis store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.ChatHistoryWindow <= 0 {
		return errors.New("CHAT_HISTORY_WINDOW must be positive")
	}
	if c.ChatMaxMessageChars <= 0 {
		return errors.New("CHAT_MAX_MESSAGE_CHARS must be positive")
	}
	if c.LLMMaxOutputTokens <= 0 {
		return errors.New("LLM_MAX_OUTPUT_TOKENS must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.RateLimitMax < 0 {
		return errors.New("CHAT_RATE_LIMIT_MAX must not be negative")
	}
	if c.ChatRetentionTurns < 0 {
		return errors.New("CHAT_RETENTION_TURNS must not be negative")
	}
	if c.ChatRetentionTurns > 0 && c.ChatRetentionTurns < c.ChatHistoryWindow {
		return errors.New("CHAT_RETENTION_TURNS must be 0 or at least CHAT_HISTORY_WINDOW")
	}
	return nil
}
