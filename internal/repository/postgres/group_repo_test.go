package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/snapshare/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestGroupRepo_JoinByCode_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewGroupRepo(db)
	ctx := context.Background()
	group, user := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM records WHERE kind='groups' AND body->>'inviteCode' = \$1 FOR UPDATE`).
		WithArgs("ABCD2345").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(group))
	mock.ExpectExec(`INSERT INTO group_members \(group_id, user_id\) VALUES \(\$1, \$2\) ON CONFLICT`).
		WithArgs(group, user).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE records SET body = jsonb_set`).
		WithArgs(group, user.String()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	got, err := r.JoinByCode(ctx, "ABCD2345", user)
	require.NoError(t, err)
	require.Equal(t, group, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepo_JoinByCode_Unknown(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewGroupRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM records`).
		WithArgs("NOPE2345").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.JoinByCode(context.Background(), "NOPE2345", uuid.Must(uuid.NewV7()))
	require.ErrorIs(t, err, errs.ErrInvalidInviteCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepo_JoinByCode_ExecError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewGroupRepo(db)
	group, user := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM records`).
		WithArgs("ABCD2345").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(group))
	mock.ExpectExec(`INSERT INTO group_members`).
		WithArgs(group, user).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := r.JoinByCode(context.Background(), "ABCD2345", user)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepo_AddMemberAndIsMember(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewGroupRepo(db)
	ctx := context.Background()
	group, user := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())

	mock.ExpectExec(`INSERT INTO group_members`).
		WithArgs(group, user).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.AddMember(ctx, group, user))

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM group_members WHERE group_id=\$1 AND user_id=\$2\)`).
		WithArgs(group, user).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := r.IsMember(ctx, group, user)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSyncRepo_Save(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSyncRepo(db)
	user := uuid.Must(uuid.NewV7())
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	payload := []byte(`{"albums":[]}`)

	mock.ExpectQuery(`INSERT INTO sync_snapshots \(user_id, payload, synced_at\) VALUES \(\$1, \$2, now\(\)\) ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(user, payload).
		WillReturnRows(pgxmock.NewRows([]string{"synced_at"}).AddRow(at))
	got, err := r.Save(context.Background(), user, payload)
	require.NoError(t, err)
	require.Equal(t, at, got)
}
