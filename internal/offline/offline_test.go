package offline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/snapshare/internal/kv"
	"github.com/and161185/snapshare/internal/model"
)

func TestSaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := New(kv.NewMemory())

	_, ok, err := Load[model.Album](ctx, c, KeyAlbums)
	require.NoError(t, err)
	require.False(t, ok)

	albums := []model.Album{
		{ID: model.NewID(), Name: "b", Photos: []string{"u2", "u1"}},
		{ID: model.NewID(), Name: "a", Photos: []string{}},
	}
	require.NoError(t, Save(ctx, c, KeyAlbums, albums))

	got, ok, err := Load[model.Album](ctx, c, KeyAlbums)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	require.Equal(t, albums[0].ID, got[0].ID)
	require.Equal(t, []string{"u2", "u1"}, got[0].Photos)
}

func TestSave_NilIsEmptyList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := kv.NewMemory()
	c := New(mem)

	require.NoError(t, Save[model.Photo](ctx, c, KeyPhotos, nil))
	raw, err := mem.Get(ctx, KeyPhotos)
	require.NoError(t, err)
	require.Equal(t, "[]", raw)
}

func TestLoad_Corrupt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, KeyGroups, "{not json"))

	_, _, err := Load[model.Group](ctx, New(mem), KeyGroups)
	require.Error(t, err)
}

func TestLastSync(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := New(kv.NewMemory())

	ts, err := c.LastSync(ctx)
	require.NoError(t, err)
	require.True(t, ts.IsZero())

	now := time.Date(2026, 10, 1, 12, 30, 0, 5, time.UTC)
	require.NoError(t, c.MarkSynced(ctx, now))
	ts, err = c.LastSync(ctx)
	require.NoError(t, err)
	require.True(t, now.Equal(ts))
}
