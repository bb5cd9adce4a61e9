// Package pagecache implements paginated, cached access to remote entity collections.
//
// A Pager serves one entity family in one scope. Pages are memoised in a bounded LRU keyed
// by (user, scope, limit, offset); create/update/delete helpers keep the in-memory list in
// step with the remote and invalidate the cache. Watch turns remote change notifications
// into full refetches.
package pagecache

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/snapshare/internal/model"
)

// Entity is anything a Pager can hold.
type Entity interface {
	EntityID() uuid.UUID
}

// Query is a paginated read. Results are ordered by creation time, newest first.
type Query struct {
	Scope  model.Scope
	Limit  int
	Offset int
}

// Source is the remote query/mutation endpoint for one entity family.
type Source[T Entity] interface {
	// List returns at most q.Limit records starting at q.Offset.
	List(ctx context.Context, q Query) ([]T, error)
	// Insert creates item owned by the caller inside scope and returns the stored record.
	Insert(ctx context.Context, scope model.Scope, item T) (T, error)
	// Update merges patch into the record and returns the stored record.
	Update(ctx context.Context, id uuid.UUID, patch model.Patch) (T, error)
	// Delete removes the record.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Subscriber opens a change-notification channel for a table scoped by id.
// The channel is closed when ctx ends or the subscription breaks.
type Subscriber interface {
	Subscribe(ctx context.Context, table model.Table, scopeID uuid.UUID) (<-chan model.ChangeEvent, error)
}
