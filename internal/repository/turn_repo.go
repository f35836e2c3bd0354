package repository

import (
	"context"
	"errors"
	"fmt"

	"ricardoia-chat/internal/domain"
)

// Errores de store; las implementaciones los envuelven junto al error original.
var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrStoreQuery       = errors.New("store query error")
	ErrStoreWrite       = errors.New("store write error")
)

// TurnRepository lee y escribe los turnos recientes de una conversacion.
// Las implementaciones se construyen una vez por proceso y son seguras para uso concurrente.
type TurnRepository interface {
	// FetchRecent devuelve hasta limit turnos, del mas viejo al mas nuevo.
	FetchRecent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
	// Append inserta un turno con timestamp asignado por el store.
	Append(ctx context.Context, conversationID string, role domain.Role, content string) (domain.Turn, error)
	// Prune borra todo salvo los keep turnos mas nuevos y devuelve cuantos borro.
	Prune(ctx context.Context, conversationID string, keep int) (int64, error)
	Ping(ctx context.Context) error
}

func storeErr(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

func contextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func checkRole(role domain.Role) error {
	if !role.Valid() {
		return fmt.Errorf("append turn: %w: invalid role %q", ErrStoreWrite, role)
	}
	return nil
}

func reverseTurns(turns []domain.Turn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}
