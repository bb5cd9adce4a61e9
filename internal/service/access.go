package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/model"
	"github.com/and161185/snapshare/internal/repository"
)

// albumGate decides who may read or write under an album:
// its owner, members of its group, or anyone when it is public.
type albumGate struct {
	records repository.RecordRepository
	groups  repository.GroupRepository
}

// album loads albumID and checks userID against it.
func (g albumGate) album(ctx context.Context, userID, albumID uuid.UUID) (model.Record, model.Album, error) {
	rec, err := g.records.Get(ctx, model.TableAlbums, albumID)
	if err != nil {
		return model.Record{}, model.Album{}, err
	}
	var a model.Album
	if err := json.Unmarshal(rec.Body, &a); err != nil {
		return model.Record{}, model.Album{}, fmt.Errorf("album %s: %w", albumID, err)
	}
	if rec.OwnerID == userID || a.IsPublic {
		return rec, a, nil
	}
	if a.GroupID != nil {
		ok, err := g.groups.IsMember(ctx, *a.GroupID, userID)
		if err != nil {
			return model.Record{}, model.Album{}, err
		}
		if ok {
			return rec, a, nil
		}
	}
	return model.Record{}, model.Album{}, errs.ErrForbidden
}

// parent checks access to the parent of a photo, comment or like.
// The parent is an album, or a photo whose album is then checked.
func (g albumGate) parent(ctx context.Context, userID, parentID uuid.UUID) error {
	_, _, err := g.album(ctx, userID, parentID)
	if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	photo, err := g.records.Get(ctx, model.TablePhotos, parentID)
	if err != nil {
		return err
	}
	if photo.ScopeID == nil {
		return fmt.Errorf("photo %s has no album: %w", parentID, errs.ErrNotFound)
	}
	_, _, err = g.album(ctx, userID, *photo.ScopeID)
	return err
}
