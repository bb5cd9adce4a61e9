// Package offline keeps the secondary offline snapshot of remote collections.
// The paged caches write it after successful reads and read it back when the
// remote is unreachable.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/kv"
)

// Storage keys. Kept stable for devices that already hold a snapshot.
const (
	KeyAlbums   = "supabase_albums"
	KeyPhotos   = "supabase_photos"
	KeyGroups   = "supabase_groups"
	KeyLastSync = "supabase_last_sync"
)

// Cache reads and writes offline collections in a kv.Storage.
type Cache struct{ kv kv.Storage }

// New wraps storage.
func New(storage kv.Storage) *Cache { return &Cache{kv: storage} }

// Save stores items under key as a JSON array.
func Save[T any](ctx context.Context, c *Cache, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.kv.Set(ctx, key, string(b))
}

// Load returns the items stored under key. ok is false when nothing was saved.
func Load[T any](ctx context.Context, c *Cache, key string) (items []T, ok bool, err error) {
	raw, err := c.kv.Get(ctx, key)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return items, true, nil
}

// MarkSynced records the last successful sync time.
func (c *Cache) MarkSynced(ctx context.Context, t time.Time) error {
	return c.kv.Set(ctx, KeyLastSync, t.UTC().Format(time.RFC3339Nano))
}

// LastSync returns the last recorded sync time, zero if none.
func (c *Cache) LastSync(ctx context.Context) (time.Time, error) {
	raw, err := c.kv.Get(ctx, KeyLastSync)
	if errors.Is(err, errs.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, raw)
}
