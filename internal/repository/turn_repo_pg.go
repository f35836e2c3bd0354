package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ricardoia-chat/internal/domain"
)

type PgTurnRepository struct {
	pool *pgxpool.Pool
}

func NewPgTurnRepository(pool *pgxpool.Pool) *PgTurnRepository {
	return &PgTurnRepository{pool: pool}
}

func (r *PgTurnRepository) FetchRecent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	turns := make([]domain.Turn, 0, max(limit, 0))
	if limit <= 0 {
		return turns, nil
	}

	const query = `
		SELECT id, conversation_id, role, content, created_at
		FROM turns
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, storeErr("fetch turns", classifyPgError(err, ErrStoreQuery), err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t    domain.Turn
			id   int64
			role string
		)
		if err := rows.Scan(&id, &t.ConversationID, &role, &t.Content, &t.CreatedAt); err != nil {
			return nil, storeErr("scan turn", classifyPgError(err, ErrStoreQuery), err)
		}
		t.ID = strconv.FormatInt(id, 10)
		t.Role = domain.Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("fetch turns", classifyPgError(err, ErrStoreQuery), err)
	}

	reverseTurns(turns)
	return turns, nil
}

func (r *PgTurnRepository) Append(ctx context.Context, conversationID string, role domain.Role, content string) (domain.Turn, error) {
	if err := checkRole(role); err != nil {
		return domain.Turn{}, err
	}

	const query = `
		INSERT INTO turns (conversation_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	turn := domain.Turn{ConversationID: conversationID, Role: role, Content: content}
	var id int64
	if err := r.pool.QueryRow(ctx, query, conversationID, string(role), content).Scan(&id, &turn.CreatedAt); err != nil {
		return domain.Turn{}, storeErr("append turn", classifyPgError(err, ErrStoreWrite), err)
	}
	turn.ID = strconv.FormatInt(id, 10)
	return turn, nil
}

func (r *PgTurnRepository) Prune(ctx context.Context, conversationID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	const query = `
		DELETE FROM turns
		WHERE conversation_id = $1
		  AND id NOT IN (
			SELECT id FROM turns
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		  )
	`

	tag, err := r.pool.Exec(ctx, query, conversationID, keep)
	if err != nil {
		return 0, storeErr("prune turns", classifyPgError(err, ErrStoreWrite), err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgTurnRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return storeErr("ping", ErrStoreUnavailable, err)
	}
	return nil
}

// classifyPgError separa errores reportados por el servidor de fallas de conectividad.
// Clase 08 (connection exception) y 57P (shutdown) cuentan como no disponible.
func classifyPgError(err error, fallback error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P") {
			return ErrStoreUnavailable
		}
		return fallback
	}
	return ErrStoreUnavailable
}
