package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/and161185/snapshare/internal/crypto"
	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/limiter"
	"github.com/and161185/snapshare/internal/model"
	"github.com/and161185/snapshare/internal/objstore"
	"github.com/and161185/snapshare/internal/repository"
)

// ExportTTL is how long an export download link stays valid.
const ExportTTL = 24 * time.Hour

// ActionService covers the named remote calls the local store echoes to.
type ActionService interface {
	// CreatePhoto registers a photo in an album the user can write to.
	CreatePhoto(ctx context.Context, userID uuid.UUID, p model.Photo) (model.Record, error)
	// UpdateAlbumCover sets the cover of an owned album.
	UpdateAlbumCover(ctx context.Context, userID, albumID uuid.UUID, uri string) (model.Record, error)
	// ExportAlbum writes an album manifest to object storage and returns a download link.
	ExportAlbum(ctx context.Context, userID, albumID uuid.UUID) (string, error)
	// JoinGroup enrols the user in the group matching the invite code.
	JoinGroup(ctx context.Context, userID uuid.UUID, code, ip string) (uuid.UUID, error)
	// Sync stores the user's full snapshot and returns the server timestamp.
	Sync(ctx context.Context, userID uuid.UUID, payload model.SyncPayload) (time.Time, error)
}

type ActionServiceImpl struct {
	records repository.RecordRepository
	groups  repository.GroupRepository
	syncs   repository.SyncRepository
	store   objstore.Store
	lim     limiter.Limiter
	gate    albumGate
	now     func() time.Time
}

// NewActionService constructs ActionService. store may be nil, which disables exports.
func NewActionService(
	records repository.RecordRepository,
	groups repository.GroupRepository,
	syncs repository.SyncRepository,
	store objstore.Store,
	lim limiter.Limiter,
) *ActionServiceImpl {
	return &ActionServiceImpl{
		records: records, groups: groups, syncs: syncs, store: store, lim: lim,
		gate: albumGate{records: records, groups: groups},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreatePhoto stores the photo scoped to its album.
func (s *ActionServiceImpl) CreatePhoto(ctx context.Context, userID uuid.UUID, p model.Photo) (model.Record, error) {
	if userID == uuid.Nil || p.AlbumID == uuid.Nil || strings.TrimSpace(p.URI) == "" {
		return model.Record{}, fmt.Errorf("%w: photo needs album and uri", errs.ErrValidation)
	}
	if _, _, err := s.gate.album(ctx, userID, p.AlbumID); err != nil {
		return model.Record{}, err
	}
	if p.ID == uuid.Nil {
		p.ID = model.NewID()
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.Likes == nil {
		p.Likes = []uuid.UUID{}
	}
	body, err := json.Marshal(p)
	if err != nil {
		return model.Record{}, err
	}
	album := p.AlbumID
	rec := model.Record{
		ID: p.ID, Kind: model.TablePhotos, OwnerID: userID, ScopeID: &album,
		Body: body, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.records.Insert(ctx, rec); err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

// UpdateAlbumCover patches coverImage of an owned album.
func (s *ActionServiceImpl) UpdateAlbumCover(ctx context.Context, userID, albumID uuid.UUID, uri string) (model.Record, error) {
	if userID == uuid.Nil || albumID == uuid.Nil {
		return model.Record{}, fmt.Errorf("%w: empty userID/albumID", errs.ErrValidation)
	}
	patch, err := json.Marshal(model.Patch{"coverImage": uri, "updatedAt": s.now()})
	if err != nil {
		return model.Record{}, err
	}
	return s.records.Update(ctx, model.TableAlbums, albumID, userID, patch)
}

type exportManifest struct {
	Album      json.RawMessage   `json:"album"`
	Photos     []json.RawMessage `json:"photos"`
	ExportedAt time.Time         `json:"exportedAt"`
	ExportedBy uuid.UUID         `json:"exportedBy"`
}

// ExportAlbum collects the album and all its photos into a JSON manifest.
func (s *ActionServiceImpl) ExportAlbum(ctx context.Context, userID, albumID uuid.UUID) (string, error) {
	if s.store == nil {
		return "", errors.New("export storage is not configured")
	}
	rec, _, err := s.gate.album(ctx, userID, albumID)
	if err != nil {
		return "", err
	}

	now := s.now()
	m := exportManifest{Album: rec.Body, Photos: []json.RawMessage{}, ExportedAt: now, ExportedBy: userID}
	scope := model.Scope{Kind: model.ScopeParent, ID: albumID}
	for offset := 0; ; offset += MaxPageSize {
		page, err := s.records.List(ctx, model.TablePhotos, scope, userID, MaxPageSize, offset)
		if err != nil {
			return "", fmt.Errorf("list photos: %w", err)
		}
		for _, p := range page {
			m.Photos = append(m.Photos, p.Body)
		}
		if len(page) < MaxPageSize {
			break
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("exports/%s/%s-%d.json", userID, albumID, now.Unix())
	if err := s.store.Put(ctx, name, data, "application/json"); err != nil {
		return "", fmt.Errorf("put export: %w", err)
	}
	return s.store.PresignGet(ctx, name, ExportTTL)
}

// JoinGroup resolves an invite code under the join limiter.
func (s *ActionServiceImpl) JoinGroup(ctx context.Context, userID uuid.UUID, code, ip string) (uuid.UUID, error) {
	code = pkgcrypto.NormalizeInviteCode(code)
	if userID == uuid.Nil || code == "" {
		return uuid.Nil, fmt.Errorf("%w: empty userID/code", errs.ErrValidation)
	}
	key := limiter.Key{Action: limiter.ActionJoin, Subject: userID.String(), IPHash: limiter.HashIP(ip)}

	allowed, _, err := s.lim.Allow(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}
	if !allowed {
		return uuid.Nil, errs.ErrRateLimited
	}

	groupID, err := s.groups.JoinByCode(ctx, code, userID)
	if errors.Is(err, errs.ErrInvalidInviteCode) {
		if blocked, _, ferr := s.lim.Failure(ctx, key); ferr == nil && blocked {
			return uuid.Nil, errs.ErrRateLimited
		}
		return uuid.Nil, err
	}
	if err != nil {
		return uuid.Nil, err
	}
	_ = s.lim.Success(ctx, key)
	return groupID, nil
}

// Sync overwrites the stored snapshot.
func (s *ActionServiceImpl) Sync(ctx context.Context, userID uuid.UUID, payload model.SyncPayload) (time.Time, error) {
	if userID == uuid.Nil {
		return time.Time{}, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return time.Time{}, err
	}
	return s.syncs.Save(ctx, userID, raw)
}
