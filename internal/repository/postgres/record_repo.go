package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// RecordRepo implements RecordRepository over the records table.
type RecordRepo struct{ db *DB }

// NewRecordRepo constructs a record repository.
func NewRecordRepo(db *DB) *RecordRepo { return &RecordRepo{db: db} }

const recordCols = `id, kind, owner_id, scope_id, body, created_at, updated_at`

func scanRecord(row pgx.Row) (model.Record, error) {
	var rec model.Record
	var kind string
	var body []byte
	if err := row.Scan(&rec.ID, &kind, &rec.OwnerID, &rec.ScopeID, &body, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return model.Record{}, err
	}
	rec.Kind = model.Table(kind)
	rec.Body = body
	return rec, nil
}

// List returns one page of records, newest first.
func (r *RecordRepo) List(
	ctx context.Context, table model.Table, scope model.Scope, userID uuid.UUID, limit, offset int,
) ([]model.Record, error) {
	const byOwner = `
SELECT ` + recordCols + `
FROM records WHERE kind=$1 AND owner_id=$2
ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`
	const byParent = `
SELECT ` + recordCols + `
FROM records WHERE kind=$1 AND scope_id=$2
ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`
	const byMember = `
SELECT r.id, r.kind, r.owner_id, r.scope_id, r.body, r.created_at, r.updated_at
FROM records r JOIN group_members m ON m.group_id = r.id
WHERE r.kind=$1 AND m.user_id=$2
ORDER BY r.created_at DESC, r.id DESC LIMIT $3 OFFSET $4`

	var q string
	var arg uuid.UUID
	switch scope.Kind {
	case model.ScopeOwner:
		q, arg = byOwner, userID
	case model.ScopeParent:
		q, arg = byParent, scope.ID
	case model.ScopeMember:
		q, arg = byMember, userID
	default:
		return nil, fmt.Errorf("%w: scope %q", errs.ErrValidation, scope.Kind)
	}

	rows, err := r.db.Pool.Query(ctx, q, string(table), arg, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get loads one record by id.
func (r *RecordRepo) Get(ctx context.Context, table model.Table, id uuid.UUID) (model.Record, error) {
	const q = `SELECT ` + recordCols + ` FROM records WHERE kind=$1 AND id=$2`
	rec, err := scanRecord(r.db.Pool.QueryRow(ctx, q, string(table), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Record{}, errs.ErrNotFound
	}
	return rec, err
}

// Insert stores a new record.
func (r *RecordRepo) Insert(ctx context.Context, rec model.Record) error {
	const q = `
INSERT INTO records (id, kind, owner_id, scope_id, body, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q,
		rec.ID, string(rec.Kind), rec.OwnerID, rec.ScopeID, []byte(rec.Body), rec.CreatedAt, rec.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Update merges patch (a JSON object) into the body and bumps updated_at.
func (r *RecordRepo) Update(
	ctx context.Context, table model.Table, id, ownerID uuid.UUID, patch []byte,
) (model.Record, error) {
	const q = `
UPDATE records SET body = body || $4::jsonb, updated_at = now()
WHERE kind=$1 AND id=$2 AND owner_id=$3
RETURNING ` + recordCols
	rec, err := scanRecord(r.db.Pool.QueryRow(ctx, q, string(table), id, ownerID, patch))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Record{}, errs.ErrNotFound
	}
	return rec, err
}

// Delete removes an owned record.
func (r *RecordRepo) Delete(ctx context.Context, table model.Table, id, ownerID uuid.UUID) (model.Record, error) {
	const q = `
DELETE FROM records WHERE kind=$1 AND id=$2 AND owner_id=$3
RETURNING ` + recordCols
	rec, err := scanRecord(r.db.Pool.QueryRow(ctx, q, string(table), id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Record{}, errs.ErrNotFound
	}
	return rec, err
}
