package store

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"ricardoia-chat/internal/config"
	"ricardoia-chat/internal/domain"
)

func TestOpenDrivers(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		cfg  config.Config
	}{
		{"memory", config.Config{StoreDriver: config.DriverMemory}},
		{"sqlite", config.Config{StoreDriver: config.DriverSQLite, SQLitePath: filepath.Join(dir, "nested", "chat.db")}},
		{"bolt", config.Config{StoreDriver: config.DriverBolt, BoltPath: filepath.Join(dir, "chat.bolt")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s, err := Open(ctx, &tc.cfg, zap.NewNop())
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer s.Close()

			if s.Redis != nil {
				t.Fatalf("expected no redis client without REDIS_ADDR")
			}
			if err := s.Turns.Ping(ctx); err != nil {
				t.Fatalf("ping: %v", err)
			}
			if _, err := s.Turns.Append(ctx, "c1", domain.RoleUser, "oi"); err != nil {
				t.Fatalf("append: %v", err)
			}
			turns, err := s.Turns.FetchRecent(ctx, "c1", 12)
			if err != nil || len(turns) != 1 || turns[0].Content != "oi" {
				t.Fatalf("fetch: %v %+v", err, turns)
			}
		})
	}
}

func TestOpenRedisDriverWithoutAddr(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: config.DriverRedis}, zap.NewNop())
	if err == nil {
		t.Fatalf("expected error for redis driver without address")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "mongo"}, zap.NewNop())
	if err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestCloseReleasesSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{StoreDriver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "chat.db")}
	s, err := Open(ctx, &cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	turns := s.Turns
	s.Close()

	if err := turns.Ping(ctx); err == nil {
		t.Fatalf("expected ping to fail after close")
	}
	if _, err := turns.FetchRecent(ctx, "c1", 1); err == nil {
		t.Fatalf("expected fetch to fail after close")
	}
}
