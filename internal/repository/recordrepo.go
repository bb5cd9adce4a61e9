package repository

import (
	"context"
	"time"

	"github.com/and161185/snapshare/internal/model"
	"github.com/gofrs/uuid/v5"
)

// RecordRepository stores entity bodies per table with ownership and scope columns.
type RecordRepository interface {
	// List returns one page ordered by created_at DESC. userID resolves owner and member scopes.
	List(ctx context.Context, table model.Table, scope model.Scope, userID uuid.UUID, limit, offset int) ([]model.Record, error)
	// Get loads a single record.
	Get(ctx context.Context, table model.Table, id uuid.UUID) (model.Record, error)
	// Insert stores a new record; timestamps are taken from rec.
	Insert(ctx context.Context, rec model.Record) error
	// Update merges patch into the body of a record owned by ownerID.
	Update(ctx context.Context, table model.Table, id, ownerID uuid.UUID, patch []byte) (model.Record, error)
	// Delete removes a record owned by ownerID and returns what was removed.
	Delete(ctx context.Context, table model.Table, id, ownerID uuid.UUID) (model.Record, error)
}

// GroupRepository maintains group membership.
type GroupRepository interface {
	// AddMember enrols userID in groupID; repeated calls are no-ops.
	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
	// IsMember reports whether userID belongs to groupID.
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	// JoinByCode enrols userID in the group whose invite code matches and returns the group id.
	JoinByCode(ctx context.Context, code string, userID uuid.UUID) (uuid.UUID, error)
}

// SyncRepository keeps the last full snapshot pushed by each user.
type SyncRepository interface {
	// Save overwrites the user's snapshot and returns the server timestamp.
	Save(ctx context.Context, userID uuid.UUID, payload []byte) (time.Time, error)
}
