package postgres

import (
	"context"
	"errors"

	"github.com/and161185/snapshare/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// GroupRepo implements GroupRepository over group_members and group records.
type GroupRepo struct{ db *DB }

// NewGroupRepo constructs a group repository.
func NewGroupRepo(db *DB) *GroupRepo { return &GroupRepo{db: db} }

const addMemberSQL = `
INSERT INTO group_members (group_id, user_id)
VALUES ($1, $2)
ON CONFLICT (group_id, user_id) DO NOTHING`

// AddMember enrols userID in groupID.
func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, addMemberSQL, groupID, userID)
	return err
}

// IsMember reports group membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`
	var ok bool
	err := r.db.Pool.QueryRow(ctx, q, groupID, userID).Scan(&ok)
	return ok, err
}

// JoinByCode resolves the invite code, enrols userID and appends it to the group's members list.
func (r *GroupRepo) JoinByCode(ctx context.Context, code string, userID uuid.UUID) (groupID uuid.UUID, err error) {
	const sel = `
SELECT id FROM records
WHERE kind='groups' AND body->>'inviteCode' = $1
FOR UPDATE`
	const upd = `
UPDATE records
SET body = jsonb_set(body, '{members}', COALESCE(body->'members', '[]'::jsonb) || to_jsonb($2::text), true),
    updated_at = now()
WHERE id=$1 AND NOT (COALESCE(body->'members', '[]'::jsonb) ? $2::text)`

	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, sel, code).Scan(&groupID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrInvalidInviteCode
			}
			return err
		}
		if _, err := tx.Exec(ctx, addMemberSQL, groupID, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, upd, groupID, userID.String())
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return groupID, nil
}
