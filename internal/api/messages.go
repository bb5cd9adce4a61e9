package api

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/snapshare/internal/model"
)

// Empty is returned by calls without a result.
type Empty struct{}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID uuid.UUID `json:"userId"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	UserID      uuid.UUID `json:"userId"`
}

// ListRequest reads one page of a table, newest first.
type ListRequest struct {
	Table  model.Table `json:"table"`
	Scope  model.Scope `json:"scope"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type ListResponse struct {
	Records []model.Record `json:"records"`
}

// InsertRequest creates a record. Body is the entity JSON; a zero "id" is assigned by the server.
type InsertRequest struct {
	Table model.Table     `json:"table"`
	Scope model.Scope     `json:"scope"`
	Body  json.RawMessage `json:"body"`
}

type RecordResponse struct {
	Record model.Record `json:"record"`
}

type UpdateRequest struct {
	Table model.Table `json:"table"`
	ID    uuid.UUID   `json:"id"`
	Patch model.Patch `json:"patch"`
}

type DeleteRequest struct {
	Table model.Table `json:"table"`
	ID    uuid.UUID   `json:"id"`
}

type CreatePhotoRequest struct {
	Photo model.Photo `json:"photo"`
}

type UpdateAlbumCoverRequest struct {
	AlbumID uuid.UUID `json:"albumId"`
	URI     string    `json:"uri"`
}

type ExportAlbumRequest struct {
	AlbumID uuid.UUID `json:"albumId"`
}

type ExportAlbumResponse struct {
	URL string `json:"url"`
}

type JoinGroupRequest struct {
	InviteCode string `json:"inviteCode"`
}

type JoinGroupResponse struct {
	GroupID uuid.UUID `json:"groupId"`
}

type SyncRequest struct {
	Payload model.SyncPayload `json:"payload"`
}

type SyncResponse struct {
	SyncedAt time.Time `json:"syncedAt"`
}

// WatchRequest subscribes to change events of a table within a scope.
type WatchRequest struct {
	Table   model.Table `json:"table"`
	ScopeID uuid.UUID   `json:"scopeId"`
}
