package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ayusman/darshan/internal/clips"
)

// DefaultSlot is the settings key holding the serialized clip list.
const DefaultSlot = "recordedVideos"

// SlotRepository keeps the whole clip list as one JSON value in a single
// settings slot. A missing slot is an empty list; so is a slot whose value
// does not parse.
type SlotRepository struct {
	db  *sql.DB
	key string
	log *slog.Logger
}

// Slot returns a slot repository using key, or DefaultSlot when key is empty.
func (s *Store) Slot(key string) *SlotRepository {
	return NewSlotRepository(s.db, key, s.log)
}

// NewSlotRepository wraps an already migrated database.
func NewSlotRepository(db *sql.DB, key string, log *slog.Logger) *SlotRepository {
	if key == "" {
		key = DefaultSlot
	}
	if log == nil {
		log = slog.Default()
	}
	return &SlotRepository{db: db, key: key, log: log.With("slot", key)}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SlotRepository) load(ctx context.Context, q queryer) ([]clips.Clip, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, r.key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []clips.Clip{}, nil
		}
		return nil, fmt.Errorf("read slot: %w", err)
	}

	var list []clips.Clip
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		r.log.Warn("malformed clip list, treating as empty", "err", err)
		return []clips.Clip{}, nil
	}
	if list == nil {
		list = []clips.Clip{}
	}
	return list, nil
}

// Append adds c to the end of the list.
func (r *SlotRepository) Append(ctx context.Context, c clips.Clip) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	list, err := r.load(ctx, tx)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing.ID == c.ID {
			return clips.ErrDuplicateID
		}
	}
	list = append(list, c)

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode slot: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		r.key, string(data),
	)
	if err != nil {
		return fmt.Errorf("write slot: %w", err)
	}

	return tx.Commit()
}

// List returns the stored clips in insertion order.
func (r *SlotRepository) List(ctx context.Context) ([]clips.Clip, error) {
	return r.load(ctx, r.db)
}

// Clear removes the slot entirely.
func (r *SlotRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, r.key); err != nil {
		return fmt.Errorf("clear slot: %w", err)
	}
	return nil
}
