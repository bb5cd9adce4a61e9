package remote

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/snapshare/internal/api"
	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/model"
)

// Actions implements appstate.Remote.
type Actions struct {
	cl *api.Client
}

// NewActions wraps a client.
func NewActions(cl *api.Client) *Actions { return &Actions{cl: cl} }

func (a *Actions) CreatePhoto(ctx context.Context, p model.Photo) error {
	_, err := a.cl.CreatePhoto(ctx, &api.CreatePhotoRequest{Photo: p})
	return fromStatus(err)
}

func (a *Actions) UpdateAlbumCover(ctx context.Context, albumID uuid.UUID, uri string) error {
	_, err := a.cl.UpdateAlbumCover(ctx, &api.UpdateAlbumCoverRequest{AlbumID: albumID, URI: uri})
	return fromStatus(err)
}

func (a *Actions) ExportAlbum(ctx context.Context, albumID uuid.UUID) (string, error) {
	resp, err := a.cl.ExportAlbum(ctx, &api.ExportAlbumRequest{AlbumID: albumID})
	if err != nil {
		return "", fromStatus(err)
	}
	return resp.URL, nil
}

// JoinGroup reports an unknown code as errs.ErrInvalidInviteCode.
func (a *Actions) JoinGroup(ctx context.Context, inviteCode string) (uuid.UUID, error) {
	resp, err := a.cl.JoinGroup(ctx, &api.JoinGroupRequest{InviteCode: inviteCode})
	if err != nil {
		err = fromStatus(err)
		if errors.Is(err, errs.ErrNotFound) {
			return uuid.Nil, errs.ErrInvalidInviteCode
		}
		return uuid.Nil, err
	}
	return resp.GroupID, nil
}

func (a *Actions) Sync(ctx context.Context, payload model.SyncPayload) (time.Time, error) {
	resp, err := a.cl.Sync(ctx, &api.SyncRequest{Payload: payload})
	if err != nil {
		return time.Time{}, fromStatus(err)
	}
	return resp.SyncedAt, nil
}
