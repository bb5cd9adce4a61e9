package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func newRecordSvc() (*RecordServiceImpl, *fakeRecords, *fakeGroups) {
	recs, groups := newFakeRecords(), newFakeGroups()
	return NewRecordService(recs, groups), recs, groups
}

// seed stores a record directly, bypassing the service rules.
func seed(t *testing.T, recs *fakeRecords, table model.Table, owner uuid.UUID, scope *uuid.UUID, body any) uuid.UUID {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	id := model.NewID()
	now := time.Now().UTC()
	require.NoError(t, recs.Insert(context.Background(), model.Record{
		ID: id, Kind: table, OwnerID: owner, ScopeID: scope, Body: raw, CreatedAt: now, UpdatedAt: now,
	}))
	return id
}

func TestRecords_List_Validation(t *testing.T) {
	t.Parallel()
	s, recs, _ := newRecordSvc()
	ctx := context.Background()
	user := model.NewID()
	owner := model.Scope{Kind: model.ScopeOwner}

	_, err := s.List(ctx, uuid.Nil, model.TableAlbums, owner, 20, 0)
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = s.List(ctx, user, model.TableAlbums, owner, 0, 0)
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = s.List(ctx, user, model.TableAlbums, owner, MaxPageSize+1, 0)
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = s.List(ctx, user, model.TableAlbums, owner, 20, -1)
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = s.List(ctx, user, "items", owner, 20, 0)
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = s.List(ctx, user, model.TablePhotos, owner, 20, 0)
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = s.List(ctx, user, model.TableAlbums, model.Scope{Kind: model.ScopeMember}, 20, 0)
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Zero(t, recs.listCalls)

	got, err := s.List(ctx, user, model.TableAlbums, owner, MaxPageSize, 0)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, 1, recs.listCalls)
}

func TestRecords_Insert_StampsServerFields(t *testing.T) {
	t.Parallel()
	s, recs, _ := newRecordSvc()
	ctx := context.Background()
	user := model.NewID()

	clientID := model.NewID()
	rec, err := s.Insert(ctx, user, model.TableAlbums, model.Scope{Kind: model.ScopeOwner},
		json.RawMessage(`{"id":"`+clientID.String()+`","name":"Beach","createdAt":"1999-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	require.Equal(t, clientID, rec.ID)
	require.Equal(t, user, rec.OwnerID)
	require.Nil(t, rec.ScopeID)

	var a model.Album
	require.NoError(t, json.Unmarshal(rec.Body, &a))
	require.Equal(t, "Beach", a.Name)
	require.True(t, a.CreatedAt.After(time.Now().Add(-time.Minute)))
	require.Contains(t, recs.rows, clientID)

	_, err = s.Insert(ctx, user, model.TableAlbums, model.Scope{Kind: model.ScopeOwner}, json.RawMessage(`[1]`))
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = s.Insert(ctx, user, model.TableAlbums, model.Scope{Kind: model.ScopeOwner}, json.RawMessage(`null`))
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestRecords_Insert_GroupEnrolsOwner(t *testing.T) {
	t.Parallel()
	s, _, groups := newRecordSvc()
	ctx := context.Background()
	user := model.NewID()

	rec, err := s.Insert(ctx, user, model.TableGroups, model.Scope{Kind: model.ScopeOwner},
		json.RawMessage(`{"name":"Trip","inviteCode":" abcd2345 "}`))
	require.NoError(t, err)

	var g model.Group
	require.NoError(t, json.Unmarshal(rec.Body, &g))
	require.Equal(t, user, g.Owner)
	require.Equal(t, []uuid.UUID{user}, g.Members)
	require.Equal(t, "ABCD2345", g.InviteCode)
	require.Equal(t, []uuid.UUID{user}, groups.members[rec.ID])

	rec, err = s.Insert(ctx, user, model.TableGroups, model.Scope{Kind: model.ScopeOwner}, json.RawMessage(`{"name":"x"}`))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(rec.Body, &g))
	require.Len(t, g.InviteCode, 8)
}

func TestRecords_Insert_CommentScopedToParent(t *testing.T) {
	t.Parallel()
	s, recs, _ := newRecordSvc()
	ctx := context.Background()
	user := model.NewID()
	album := seed(t, recs, model.TableAlbums, user, nil, model.Album{Name: "a"})
	photo := seed(t, recs, model.TablePhotos, user, &album, model.Photo{URI: "file:///1.jpg"})

	_, err := s.Insert(ctx, user, model.TableComments, model.Scope{Kind: model.ScopeOwner}, json.RawMessage(`{"text":"hi"}`))
	require.ErrorIs(t, err, errs.ErrValidation)

	rec, err := s.Insert(ctx, user, model.TableComments, model.Scope{Kind: model.ScopeParent, ID: photo},
		json.RawMessage(`{"text":"hi","photoId":"`+photo.String()+`","author":"`+model.NewID().String()+`"}`))
	require.NoError(t, err)
	require.Equal(t, photo, *rec.ScopeID)

	var c model.Comment
	require.NoError(t, json.Unmarshal(rec.Body, &c))
	require.Equal(t, user, c.Author)

	_, err = s.Insert(ctx, user, model.TableComments, model.Scope{Kind: model.ScopeParent, ID: model.NewID()},
		json.RawMessage(`{"text":"lost"}`))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRecords_ParentAccess(t *testing.T) {
	t.Parallel()
	s, recs, groups := newRecordSvc()
	ctx := context.Background()
	owner, stranger, member := model.NewID(), model.NewID(), model.NewID()
	group := model.NewID()
	require.NoError(t, groups.AddMember(ctx, group, member))

	private := seed(t, recs, model.TableAlbums, owner, nil, model.Album{Name: "private", GroupID: &group})
	public := seed(t, recs, model.TableAlbums, owner, nil, model.Album{Name: "public", IsPublic: true})
	photo := seed(t, recs, model.TablePhotos, owner, &private, model.Photo{URI: "http://x/secret.jpg"})
	inPrivate := model.Scope{Kind: model.ScopeParent, ID: private}
	onPhoto := model.Scope{Kind: model.ScopeParent, ID: photo}

	tests := []struct {
		name  string
		user  uuid.UUID
		table model.Table
		scope model.Scope
		want  error
	}{
		{"owner lists photos", owner, model.TablePhotos, inPrivate, nil},
		{"member lists photos", member, model.TablePhotos, inPrivate, nil},
		{"stranger lists photos", stranger, model.TablePhotos, inPrivate, errs.ErrForbidden},
		{"stranger lists comments on photo", stranger, model.TableComments, onPhoto, errs.ErrForbidden},
		{"stranger lists likes on album", stranger, model.TableLikes, inPrivate, errs.ErrForbidden},
		{"stranger lists public photos", stranger, model.TablePhotos, model.Scope{Kind: model.ScopeParent, ID: public}, nil},
		{"photos need an album parent", owner, model.TablePhotos, onPhoto, errs.ErrNotFound},
		{"unknown parent", owner, model.TableLikes, model.Scope{Kind: model.ScopeParent, ID: model.NewID()}, errs.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.List(ctx, tt.user, tt.table, tt.scope, 20, 0)
			if tt.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.want)
			}
		})
	}

	before := len(recs.rows)
	_, err := s.Insert(ctx, stranger, model.TablePhotos, inPrivate, json.RawMessage(`{"uri":"http://x/evil.jpg"}`))
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = s.Insert(ctx, stranger, model.TableComments, onPhoto, json.RawMessage(`{"text":"hi"}`))
	require.ErrorIs(t, err, errs.ErrForbidden)
	require.Len(t, recs.rows, before)

	_, err = s.Insert(ctx, member, model.TablePhotos, inPrivate, json.RawMessage(`{"uri":"http://x/ok.jpg"}`))
	require.NoError(t, err)
	_, err = s.Insert(ctx, stranger, model.TableLikes, onPhoto, json.RawMessage(`{}`))
	require.ErrorIs(t, err, errs.ErrForbidden)

	got, err := s.List(ctx, member, model.TablePhotos, inPrivate, 20, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestRecords_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	s, _, _ := newRecordSvc()
	ctx := context.Background()
	user, other := model.NewID(), model.NewID()

	rec, err := s.Insert(ctx, user, model.TableAlbums, model.Scope{Kind: model.ScopeOwner}, json.RawMessage(`{"name":"a"}`))
	require.NoError(t, err)

	upd, err := s.Update(ctx, user, model.TableAlbums, rec.ID, model.Patch{"name": "b", "id": model.NewID().String()})
	require.NoError(t, err)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(upd.Body, &body))
	require.Equal(t, "b", body["name"])
	require.Equal(t, rec.ID.String(), body["id"])
	require.Contains(t, body, "updatedAt")

	_, err = s.Update(ctx, other, model.TableAlbums, rec.ID, model.Patch{"name": "c"})
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = s.Delete(ctx, other, model.TableAlbums, rec.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = s.Delete(ctx, user, model.TableAlbums, rec.ID)
	require.NoError(t, err)
	_, err = s.Delete(ctx, user, model.TableAlbums, uuid.Nil)
	require.ErrorIs(t, err, errs.ErrValidation)
}
