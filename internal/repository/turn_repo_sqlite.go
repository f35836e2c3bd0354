package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/mattn/go-sqlite3"

	"ricardoia-chat/internal/domain"
)

// SqliteTurnRepository persiste turnos en un archivo SQLite local.
type SqliteTurnRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSqliteTurnRepository(db *sql.DB) *SqliteTurnRepository {
	return &SqliteTurnRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *SqliteTurnRepository) FetchRecent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	turns := make([]domain.Turn, 0, max(limit, 0))
	if limit <= 0 {
		return turns, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM turns
		WHERE conversation_id = ?
		ORDER BY id DESC
		LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, storeErr("fetch turns", classifySQLiteError(err, ErrStoreQuery), err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t         domain.Turn
			id        int64
			role      string
			createdAt int64
		)
		if err := rows.Scan(&id, &t.ConversationID, &role, &t.Content, &createdAt); err != nil {
			return nil, storeErr("scan turn", classifySQLiteError(err, ErrStoreQuery), err)
		}
		t.ID = strconv.FormatInt(id, 10)
		t.Role = domain.Role(role)
		t.CreatedAt = time.Unix(0, createdAt).UTC()
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("fetch turns", classifySQLiteError(err, ErrStoreQuery), err)
	}

	reverseTurns(turns)
	return turns, nil
}

func (r *SqliteTurnRepository) Append(ctx context.Context, conversationID string, role domain.Role, content string) (domain.Turn, error) {
	if err := checkRole(role); err != nil {
		return domain.Turn{}, err
	}

	createdAt := r.now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO turns (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, string(role), content, createdAt.UnixNano(),
	)
	if err != nil {
		return domain.Turn{}, storeErr("append turn", classifySQLiteError(err, ErrStoreWrite), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Turn{}, storeErr("append turn", ErrStoreWrite, err)
	}

	return domain.Turn{
		ID:             strconv.FormatInt(id, 10),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      createdAt,
	}, nil
}

func (r *SqliteTurnRepository) Prune(ctx context.Context, conversationID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM turns
		WHERE conversation_id = ?
		  AND id NOT IN (
			SELECT id FROM turns WHERE conversation_id = ? ORDER BY id DESC LIMIT ?
		  )`, conversationID, conversationID, keep)
	if err != nil {
		return 0, storeErr("prune turns", classifySQLiteError(err, ErrStoreWrite), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("prune turns", ErrStoreWrite, err)
	}
	return n, nil
}

func (r *SqliteTurnRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storeErr("ping", ErrStoreUnavailable, err)
	}
	return nil
}

func classifySQLiteError(err error, fallback error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen:
			return ErrStoreUnavailable
		}
		return fallback
	}
	if errors.Is(err, sql.ErrConnDone) || contextDone(err) {
		return ErrStoreUnavailable
	}
	return fallback
}
