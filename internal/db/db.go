package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ricardoia-chat/internal/config"
)

// NewPool abre el pool de Postgres del turn store y verifica que la base responda.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

// poolConfig dimensiona el pool para el forwarder: cada request toma una
// conexion solo para FetchRecent, Append y Prune, nunca mientras se relaya la
// respuesta del LLM, asi que el tamaño acompaña a los requests concurrentes y
// no a los streams abiertos.
func poolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = min(2, cfg.DBMaxConns)
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 10 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	// El append del turno del asistente tiene 5s; conectar no puede comerse ese margen.
	poolCfg.ConnConfig.ConnectTimeout = 2 * time.Second
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "ricardoia-chat"

	return poolCfg, nil
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}
