package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ricardoia-chat/internal/domain"
)

// redisListClient es el subconjunto de *redis.Client que usa el repositorio.
type redisListClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisTurnRepository guarda cada conversacion como una lista (RPUSH), la mas vieja a la izquierda.
type RedisTurnRepository struct {
	client redisListClient
	prefix string
	now    func() time.Time
}

func NewRedisTurnRepository(client *redis.Client) *RedisTurnRepository {
	return newRedisTurnRepository(client)
}

func newRedisTurnRepository(client redisListClient) *RedisTurnRepository {
	return &RedisTurnRepository{
		client: client,
		prefix: "chat:turns:",
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *RedisTurnRepository) FetchRecent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	turns := make([]domain.Turn, 0, max(limit, 0))
	if limit <= 0 {
		return turns, nil
	}

	raw, err := r.client.LRange(ctx, r.prefix+conversationID, int64(-limit), -1).Result()
	if err != nil {
		return nil, storeErr("fetch turns", classifyRedisError(err, ErrStoreQuery), err)
	}
	for _, item := range raw {
		var t domain.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, storeErr("decode turn", ErrStoreQuery, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *RedisTurnRepository) Append(ctx context.Context, conversationID string, role domain.Role, content string) (domain.Turn, error) {
	if err := checkRole(role); err != nil {
		return domain.Turn{}, err
	}

	turn := domain.Turn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      r.now(),
	}
	payload, err := json.Marshal(turn)
	if err != nil {
		return domain.Turn{}, storeErr("encode turn", ErrStoreWrite, err)
	}
	if err := r.client.RPush(ctx, r.prefix+conversationID, payload).Err(); err != nil {
		return domain.Turn{}, storeErr("append turn", classifyRedisError(err, ErrStoreWrite), err)
	}
	return turn, nil
}

func (r *RedisTurnRepository) Prune(ctx context.Context, conversationID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	key := r.prefix + conversationID

	n, err := r.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, storeErr("prune turns", classifyRedisError(err, ErrStoreWrite), err)
	}
	if n <= int64(keep) {
		return 0, nil
	}
	if err := r.client.LTrim(ctx, key, int64(-keep), -1).Err(); err != nil {
		return 0, storeErr("prune turns", classifyRedisError(err, ErrStoreWrite), err)
	}
	return n - int64(keep), nil
}

func (r *RedisTurnRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return storeErr("ping", ErrStoreUnavailable, err)
	}
	return nil
}

// Las respuestas de error del servidor (WRONGTYPE, NOPERM...) implementan redis.Error;
// todo lo demas es red o timeout.
func classifyRedisError(err error, fallback error) error {
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return fallback
	}
	return ErrStoreUnavailable
}
