package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Table names a remote entity family.
type Table string

const (
	TableAlbums   Table = "albums"
	TablePhotos   Table = "photos"
	TableGroups   Table = "groups"
	TableComments Table = "comments"
	TableLikes    Table = "likes"
)

// ParseTable validates a table name.
func ParseTable(s string) (Table, error) {
	switch t := Table(s); t {
	case TableAlbums, TablePhotos, TableGroups, TableComments, TableLikes:
		return t, nil
	}
	return "", fmt.Errorf("unknown table %q", s)
}

// ScopeKind selects which rows of a table a paginated read returns.
type ScopeKind string

const (
	ScopeOwner  ScopeKind = "owner"  // rows owned by the caller
	ScopeParent ScopeKind = "parent" // rows whose scope_id equals Scope.ID (album photos, target comments/likes)
	ScopeMember ScopeKind = "member" // groups the caller is a member of
)

// Scope is the filter half of a paginated read.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   uuid.UUID `json:"id,omitempty"`
}

// String renders the scope for cache keys and logs.
func (s Scope) String() string {
	if s.ID == uuid.Nil {
		return string(s.Kind)
	}
	return string(s.Kind) + ":" + s.ID.String()
}

// Validate checks kind/id consistency.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeOwner, ScopeMember:
		return nil
	case ScopeParent:
		if s.ID == uuid.Nil {
			return fmt.Errorf("scope %s requires id", s.Kind)
		}
		return nil
	}
	return fmt.Errorf("unknown scope kind %q", s.Kind)
}

// Record is a server-side row: entity JSON plus ownership and scoping columns.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	Kind      Table           `json:"kind"`
	OwnerID   uuid.UUID       `json:"ownerId"`
	ScopeID   *uuid.UUID      `json:"scopeId,omitempty"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Patch is a partial update merged into a record body.
type Patch map[string]any

// ChangeOp is the kind of remote mutation.
type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent notifies subscribers that a scoped table changed.
type ChangeEvent struct {
	Table   Table     `json:"table"`
	ScopeID uuid.UUID `json:"scopeId"`
	Op      ChangeOp  `json:"op"`
	ID      uuid.UUID `json:"id"`
	At      time.Time `json:"at"`
}
