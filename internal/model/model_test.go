package model

import (
	"encoding/json"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func TestToggleID(t *testing.T) {
	a, b := NewID(), NewID()
	set, in := ToggleID(nil, a)
	require.True(t, in)
	set, in = ToggleID(set, b)
	require.True(t, in)
	require.Equal(t, []uuid.UUID{a, b}, set)

	set, in = ToggleID(set, a)
	require.False(t, in)
	require.Equal(t, []uuid.UUID{b}, set)
	require.False(t, ContainsID(set, a))

	_, added := AddID(set, b)
	require.False(t, added)
}

func TestCommentTarget(t *testing.T) {
	require.False(t, CommentTarget{}.Valid())

	id := NewID()
	pt := OnPhoto(id)
	require.True(t, pt.Valid())
	require.False(t, pt.IsAlbum())
	p, a := pt.Refs()
	require.Equal(t, id, *p)
	require.Nil(t, a)

	at := OnAlbum(id)
	p, a = at.Refs()
	require.Nil(t, p)
	require.Equal(t, id, *a)
	require.NotEqual(t, pt, at)

	c := Comment{AlbumID: a}
	require.Equal(t, at, c.Target())
	require.False(t, Comment{}.Target().Valid())
}

func TestScopeValidate(t *testing.T) {
	require.NoError(t, Scope{Kind: ScopeOwner}.Validate())
	require.NoError(t, Scope{Kind: ScopeMember}.Validate())
	require.Error(t, Scope{Kind: ScopeParent}.Validate())
	require.NoError(t, Scope{Kind: ScopeParent, ID: NewID()}.Validate())
	require.Error(t, Scope{Kind: "other"}.Validate())

	id := NewID()
	require.Equal(t, "owner", Scope{Kind: ScopeOwner}.String())
	require.Equal(t, "parent:"+id.String(), Scope{Kind: ScopeParent, ID: id}.String())
}

func TestParseTable(t *testing.T) {
	tb, err := ParseTable("photos")
	require.NoError(t, err)
	require.Equal(t, TablePhotos, tb)
	_, err = ParseTable("items")
	require.Error(t, err)
}

func TestAlbumClone_Independent(t *testing.T) {
	g := NewID()
	a := Album{ID: NewID(), Photos: []string{"a"}, Likes: []uuid.UUID{NewID()}, GroupID: &g}
	c := a.Clone()
	c.Photos[0] = "b"
	*c.GroupID = NewID()
	require.Equal(t, "a", a.Photos[0])
	require.Equal(t, g, *a.GroupID)
}

func TestPhoto_JSONShape(t *testing.T) {
	p := NewPhoto(NewID(), "file:///1.jpg", &PhotoMetadata{Location: &Location{Lat: 1, Lng: 2}})
	require.True(t, p.HasLocation())
	b, err := json.Marshal(p)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Contains(t, m, "albumId")
	require.Contains(t, m, "createdAt")
	require.Equal(t, "file:///1.jpg", m["uri"])
}
