package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"

	"ricardoia-chat/internal/domain"
)

// fakeRedisList emula listas de Redis con la semantica de indices negativos.
type fakeRedisList struct {
	mu    sync.Mutex
	lists map[string][]string
	err   error
}

func newFakeRedisList() *fakeRedisList {
	return &fakeRedisList{lists: make(map[string][]string)}
}

func (f *fakeRedisList) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	for _, v := range values {
		switch val := v.(type) {
		case []byte:
			f.lists[key] = append(f.lists[key], string(val))
		case string:
			f.lists[key] = append(f.lists[key], val)
		}
	}
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func (f *fakeRedisList) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringSliceCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	list := f.lists[key]
	from, to := redisRange(int64(len(list)), start, stop)
	out := []string{}
	if from <= to {
		out = append(out, list[from:to+1]...)
	}
	cmd.SetVal(out)
	return cmd
}

func (f *fakeRedisList) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStatusCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	list := f.lists[key]
	from, to := redisRange(int64(len(list)), start, stop)
	if from > to {
		delete(f.lists, key)
	} else {
		f.lists[key] = append([]string(nil), list[from:to+1]...)
	}
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedisList) LLen(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func (f *fakeRedisList) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

func redisRange(n, start, stop int64) (int64, int64) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	return start, stop
}

type fakeReplyError string

func (e fakeReplyError) Error() string { return string(e) }
func (fakeReplyError) RedisError()     {}

func TestRedisTurnRepositoryErrors(t *testing.T) {
	t.Run("network error is unavailable", func(t *testing.T) {
		fake := newFakeRedisList()
		fake.err = errors.New("dial tcp: connection refused")
		repo := newRedisTurnRepository(fake)

		if _, err := repo.FetchRecent(context.Background(), "c1", 12); !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
		if _, err := repo.Append(context.Background(), "c1", domain.RoleUser, "oi"); !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	})

	t.Run("server reply error is query or write", func(t *testing.T) {
		fake := newFakeRedisList()
		fake.err = fakeReplyError("WRONGTYPE Operation against a key holding the wrong kind of value")
		repo := newRedisTurnRepository(fake)

		if _, err := repo.FetchRecent(context.Background(), "c1", 12); !errors.Is(err, ErrStoreQuery) {
			t.Fatalf("expected ErrStoreQuery, got %v", err)
		}
		if _, err := repo.Append(context.Background(), "c1", domain.RoleUser, "oi"); !errors.Is(err, ErrStoreWrite) {
			t.Fatalf("expected ErrStoreWrite, got %v", err)
		}
	})

	t.Run("corrupt entry is a query error", func(t *testing.T) {
		fake := newFakeRedisList()
		fake.lists["chat:turns:c1"] = []string{"{not json"}
		repo := newRedisTurnRepository(fake)

		if _, err := repo.FetchRecent(context.Background(), "c1", 12); !errors.Is(err, ErrStoreQuery) {
			t.Fatalf("expected ErrStoreQuery, got %v", err)
		}
	})
}
