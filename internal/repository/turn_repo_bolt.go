package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"ricardoia-chat/internal/domain"
)

var turnsBucket = []byte("turns")

// BoltTurnRepository guarda cada conversacion en un sub-bucket de "turns",
// con claves de secuencia big-endian para que el cursor recorra en orden de insercion.
type BoltTurnRepository struct {
	db  *bolt.DB
	now func() time.Time
}

type boltTurn struct {
	Role      domain.Role `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewBoltTurnRepository(db *bolt.DB) *BoltTurnRepository {
	return &BoltTurnRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *BoltTurnRepository) FetchRecent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	turns := make([]domain.Turn, 0, max(limit, 0))
	if limit <= 0 {
		return turns, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, storeErr("fetch turns", ErrStoreUnavailable, err)
	}

	err := r.db.View(func(tx *bolt.Tx) error {
		b := conversationBucket(tx, conversationID)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(turns) < limit; k, v = c.Prev() {
			var stored boltTurn
			if err := json.Unmarshal(v, &stored); err != nil {
				return err
			}
			turns = append(turns, domain.Turn{
				ID:             strconv.FormatUint(binary.BigEndian.Uint64(k), 10),
				ConversationID: conversationID,
				Role:           stored.Role,
				Content:        stored.Content,
				CreatedAt:      stored.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("fetch turns", classifyBoltError(err, ErrStoreQuery), err)
	}

	reverseTurns(turns)
	return turns, nil
}

func (r *BoltTurnRepository) Append(ctx context.Context, conversationID string, role domain.Role, content string) (domain.Turn, error) {
	if err := checkRole(role); err != nil {
		return domain.Turn{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Turn{}, storeErr("append turn", ErrStoreUnavailable, err)
	}

	turn := domain.Turn{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      r.now(),
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(turnsBucket)
		if err != nil {
			return err
		}
		b, err := root.CreateBucketIfNotExists([]byte(conversationID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		payload, err := json.Marshal(boltTurn{Role: role, Content: content, CreatedAt: turn.CreatedAt})
		if err != nil {
			return err
		}
		turn.ID = strconv.FormatUint(seq, 10)
		return b.Put(seqKey(seq), payload)
	})
	if err != nil {
		return domain.Turn{}, storeErr("append turn", classifyBoltError(err, ErrStoreWrite), err)
	}
	return turn, nil
}

func (r *BoltTurnRepository) Prune(ctx context.Context, conversationID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, storeErr("prune turns", ErrStoreUnavailable, err)
	}

	var removed int64
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := conversationBucket(tx, conversationID)
		if b == nil {
			return nil
		}
		var stale [][]byte
		seen := 0
		c := b.Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			seen++
			if seen > keep {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, storeErr("prune turns", classifyBoltError(err, ErrStoreWrite), err)
	}
	return removed, nil
}

func (r *BoltTurnRepository) Ping(context.Context) error {
	err := r.db.View(func(*bolt.Tx) error { return nil })
	if err != nil {
		return storeErr("ping", ErrStoreUnavailable, err)
	}
	return nil
}

func conversationBucket(tx *bolt.Tx, conversationID string) *bolt.Bucket {
	root := tx.Bucket(turnsBucket)
	if root == nil {
		return nil
	}
	return root.Bucket([]byte(conversationID))
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func classifyBoltError(err error, fallback error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) || errors.Is(err, bolt.ErrTimeout) || contextDone(err) {
		return ErrStoreUnavailable
	}
	return fallback
}
