package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"ricardoia-chat/internal/domain"
)

// MemoryTurnRepository guarda turnos en memoria; pensado para tests y desarrollo local.
type MemoryTurnRepository struct {
	mu    sync.Mutex
	seq   int64
	turns map[string][]domain.Turn
	now   func() time.Time
}

func NewMemoryTurnRepository() *MemoryTurnRepository {
	return &MemoryTurnRepository{
		turns: make(map[string][]domain.Turn),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryTurnRepository) FetchRecent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("fetch turns", ErrStoreUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.turns[conversationID]
	if limit <= 0 {
		return []domain.Turn{}, nil
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]domain.Turn, len(all))
	copy(out, all)
	return out, nil
}

func (r *MemoryTurnRepository) Append(ctx context.Context, conversationID string, role domain.Role, content string) (domain.Turn, error) {
	if err := checkRole(role); err != nil {
		return domain.Turn{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Turn{}, storeErr("append turn", ErrStoreUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	turn := domain.Turn{
		ID:             strconv.FormatInt(r.seq, 10),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      r.now(),
	}
	r.turns[conversationID] = append(r.turns[conversationID], turn)
	return turn, nil
}

func (r *MemoryTurnRepository) Prune(ctx context.Context, conversationID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.turns[conversationID]
	if len(all) <= keep {
		return 0, nil
	}
	removed := len(all) - keep
	kept := make([]domain.Turn, keep)
	copy(kept, all[removed:])
	r.turns[conversationID] = kept
	return int64(removed), nil
}

func (r *MemoryTurnRepository) Ping(context.Context) error { return nil }
