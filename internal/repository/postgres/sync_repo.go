package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// SyncRepo implements SyncRepository over sync_snapshots.
type SyncRepo struct{ db *DB }

// NewSyncRepo constructs a sync repository.
func NewSyncRepo(db *DB) *SyncRepo { return &SyncRepo{db: db} }

// Save overwrites the user's last pushed snapshot.
func (r *SyncRepo) Save(ctx context.Context, userID uuid.UUID, payload []byte) (time.Time, error) {
	const q = `
INSERT INTO sync_snapshots (user_id, payload, synced_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE SET payload = EXCLUDED.payload, synced_at = EXCLUDED.synced_at
RETURNING synced_at`
	var at time.Time
	if err := r.db.Pool.QueryRow(ctx, q, userID, payload).Scan(&at); err != nil {
		return time.Time{}, err
	}
	return at.UTC(), nil
}
