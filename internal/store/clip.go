package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ayusman/darshan/internal/clips"
)

// ClipRepository stores one row per clip in the clips table.
type ClipRepository struct {
	db *sql.DB
}

// Clips returns the table-backed clip repository for this store.
func (s *Store) Clips() *ClipRepository {
	return NewClipRepository(s.db)
}

// NewClipRepository wraps an already migrated database.
func NewClipRepository(db *sql.DB) *ClipRepository {
	return &ClipRepository{db: db}
}

// Append inserts c, rejecting an ID that is already stored.
func (r *ClipRepository) Append(ctx context.Context, c clips.Clip) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM clips WHERE id = ?`, c.ID).Scan(&n); err != nil {
		return fmt.Errorf("check clip id: %w", err)
	}
	if n > 0 {
		return clips.ErrDuplicateID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO clips (id, media_ref, name, size, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.MediaRef, c.Name, c.Size, c.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert clip: %w", err)
	}

	return tx.Commit()
}

// List returns all clips in insertion order.
func (r *ClipRepository) List(ctx context.Context) ([]clips.Clip, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, media_ref, name, size, created_at FROM clips ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	out := []clips.Clip{}
	for rows.Next() {
		var c clips.Clip
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.MediaRef, &c.Name, &c.Size, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Clear deletes every clip row.
func (r *ClipRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM clips`); err != nil {
		return fmt.Errorf("clear clips: %w", err)
	}
	return nil
}
