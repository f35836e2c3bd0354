package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ricardoia-chat/internal/config"
	"ricardoia-chat/internal/db"
	"ricardoia-chat/internal/repository"
)

// Store agrupa el repositorio de turnos elegido por STORE_DRIVER y las
// conexiones que lo respaldan.
type Store struct {
	Turns repository.TurnRepository
	// Redis queda en nil si REDIS_ADDR no esta configurado o no responde.
	Redis *redis.Client

	closers []func()
}

// Open conecta el driver configurado y prepara su esquema.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{}

	if cfg.RedisAddr != "" {
		client, err := db.NewRedisClient(ctx, cfg)
		switch {
		case err == nil:
			s.Redis = client
			s.closers = append(s.closers, func() { _ = client.Close() })
		case cfg.StoreDriver == config.DriverRedis:
			_ = client.Close()
			return nil, fmt.Errorf("redis connect: %w", err)
		default:
			logger.Warn("redis ping failed", zap.Error(err))
			_ = client.Close()
		}
	}

	if err := s.openTurns(ctx, cfg); err != nil {
		s.Close()
		return nil, err
	}
	logger.Info("turn store ready", zap.String("driver", cfg.StoreDriver))
	return s, nil
}

func (s *Store) openTurns(ctx context.Context, cfg *config.Config) error {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		s.Turns = repository.NewPgTurnRepository(pool)
	case config.DriverSQLite:
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		if err := db.InitSQLiteSchema(conn); err != nil {
			return err
		}
		s.Turns = repository.NewSqliteTurnRepository(conn)
	case config.DriverBolt:
		conn, err := db.OpenBolt(cfg.BoltPath)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		s.Turns = repository.NewBoltTurnRepository(conn)
	case config.DriverRedis:
		if s.Redis == nil {
			return fmt.Errorf("redis store requires REDIS_ADDR")
		}
		s.Turns = repository.NewRedisTurnRepository(s.Redis)
	case config.DriverMemory:
		s.Turns = repository.NewMemoryTurnRepository()
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return nil
}

// Close libera las conexiones en orden inverso a su apertura.
func (s *Store) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
