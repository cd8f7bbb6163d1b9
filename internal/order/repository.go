package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Repository persists the whole store as one keyed record.
type Repository interface {
	// Load returns ErrSnapshotNotFound when nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

type repository struct {
	db  *sql.DB
	key string
}

// NewRepository stores the snapshot in the order_storage table under key.
func NewRepository(db *sql.DB, key string) Repository {
	return &repository{db: db, key: key}
}

func (r *repository) Load(ctx context.Context) (*Snapshot, error) {
	query := `
		SELECT value
		FROM order_storage
		WHERE key = $1
	`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, r.key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", r.key, err)
	}
	return &snap, nil
}

func (r *repository) Save(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO order_storage (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`, r.key, string(raw))
	return err
}
