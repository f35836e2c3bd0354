package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"ricardoia-chat/internal/config"
)

// NewRedisClient crea el cliente y hace ping; devuelve el cliente aunque el ping falle
// para que el caller decida si es fatal.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client, client.Ping(ctxPing).Err()
}
