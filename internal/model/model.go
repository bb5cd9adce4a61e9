// Package model defines domain entities shared by the client store, the page cache and the server.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// NewID returns a time-ordered identifier (UUIDv7).
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Album is an ordered collection of photo URIs.
type Album struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	CoverImage string      `json:"coverImage,omitempty"`
	Photos     []string    `json:"photos"` // display order
	CreatedAt  time.Time   `json:"createdAt"`
	GroupID    *uuid.UUID  `json:"groupId,omitempty"`
	IsPublic   bool        `json:"isPublic"`
	Likes      []uuid.UUID `json:"likes"`
}

// EntityID implements pagecache.Entity.
func (a Album) EntityID() uuid.UUID { return a.ID }

// Clone returns a deep copy.
func (a Album) Clone() Album {
	a.Photos = cloneSlice(a.Photos)
	a.Likes = cloneSlice(a.Likes)
	if a.GroupID != nil {
		g := *a.GroupID
		a.GroupID = &g
	}
	return a
}

// Group is a set of members sharing albums. InviteCode is the only join credential.
type Group struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	CoverImage  string      `json:"coverImage,omitempty"`
	Members     []uuid.UUID `json:"members"`
	Albums      []uuid.UUID `json:"albums"`
	CreatedAt   time.Time   `json:"createdAt"`
	Owner       uuid.UUID   `json:"owner"`
	InviteCode  string      `json:"inviteCode,omitempty"`
}

// EntityID implements pagecache.Entity.
func (g Group) EntityID() uuid.UUID { return g.ID }

// Clone returns a deep copy.
func (g Group) Clone() Group {
	g.Members = cloneSlice(g.Members)
	g.Albums = cloneSlice(g.Albums)
	return g
}

// Location is where a photo was taken.
type Location struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name,omitempty"`
}

// PhotoMetadata is capture information attached to a photo.
type PhotoMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Location  *Location `json:"location,omitempty"`
	Device    string    `json:"device,omitempty"`
}

// Photo is the canonical photo record. Bare URIs are normalised into it with NewPhoto.
type Photo struct {
	ID        uuid.UUID      `json:"id"`
	URI       string         `json:"uri"`
	AlbumID   uuid.UUID      `json:"albumId"`
	Likes     []uuid.UUID    `json:"likes"`
	CreatedAt time.Time      `json:"createdAt"`
	Metadata  *PhotoMetadata `json:"metadata,omitempty"`
}

// NewPhoto builds a Photo for uri inside albumID.
func NewPhoto(albumID uuid.UUID, uri string, meta *PhotoMetadata) Photo {
	return Photo{
		ID:        NewID(),
		URI:       uri,
		AlbumID:   albumID,
		Likes:     []uuid.UUID{},
		CreatedAt: time.Now().UTC(),
		Metadata:  meta,
	}
}

// EntityID implements pagecache.Entity.
func (p Photo) EntityID() uuid.UUID { return p.ID }

// HasLocation reports whether the photo carries location metadata.
func (p Photo) HasLocation() bool {
	return p.Metadata != nil && p.Metadata.Location != nil
}

// Clone returns a deep copy.
func (p Photo) Clone() Photo {
	p.Likes = cloneSlice(p.Likes)
	if p.Metadata != nil {
		m := *p.Metadata
		if m.Location != nil {
			l := *m.Location
			m.Location = &l
		}
		p.Metadata = &m
	}
	return p
}

// Comment targets exactly one of a photo or an album.
type Comment struct {
	ID        uuid.UUID  `json:"id"`
	Text      string     `json:"text"`
	Author    uuid.UUID  `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
	PhotoID   *uuid.UUID `json:"photoId,omitempty"`
	AlbumID   *uuid.UUID `json:"albumId,omitempty"`
}

// EntityID implements pagecache.Entity.
func (c Comment) EntityID() uuid.UUID { return c.ID }

// Target returns the commented entity.
func (c Comment) Target() CommentTarget {
	switch {
	case c.PhotoID != nil:
		return OnPhoto(*c.PhotoID)
	case c.AlbumID != nil:
		return OnAlbum(*c.AlbumID)
	default:
		return CommentTarget{}
	}
}

// CommentTarget identifies what a comment or like is attached to.
// Only OnPhoto and OnAlbum produce a valid target.
type CommentTarget struct {
	id      uuid.UUID
	isAlbum bool
}

// OnPhoto targets a photo.
func OnPhoto(id uuid.UUID) CommentTarget { return CommentTarget{id: id} }

// OnAlbum targets an album.
func OnAlbum(id uuid.UUID) CommentTarget { return CommentTarget{id: id, isAlbum: true} }

// Valid reports whether the target was built with OnPhoto/OnAlbum.
func (t CommentTarget) Valid() bool { return t.id != uuid.Nil }

// ID returns the target entity id.
func (t CommentTarget) ID() uuid.UUID { return t.id }

// IsAlbum reports whether the target is an album.
func (t CommentTarget) IsAlbum() bool { return t.isAlbum }

// Refs returns the (photoID, albumID) pair with exactly one side set.
func (t CommentTarget) Refs() (photoID, albumID *uuid.UUID) {
	id := t.id
	if t.isAlbum {
		return nil, &id
	}
	return &id, nil
}

// Like is a remote like row scoped to a photo or an album.
type Like struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	PhotoID   *uuid.UUID `json:"photoId,omitempty"`
	AlbumID   *uuid.UUID `json:"albumId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// EntityID implements pagecache.Entity.
func (l Like) EntityID() uuid.UUID { return l.ID }

// NotificationType classifies notifications.
type NotificationType string

const (
	NotifyComment     NotificationType = "comment"
	NotifyLike        NotificationType = "like"
	NotifyPhotoAdded  NotificationType = "photo_added"
	NotifyGroupInvite NotificationType = "group_invite"
)

// Notification is a session-only message shown to the user.
type Notification struct {
	ID        uuid.UUID         `json:"id"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
	Data      map[string]string `json:"data,omitempty"`
}

// Snapshot is the durable LocalStateStore blob.
type Snapshot struct {
	OnboardingComplete bool        `json:"onboardingComplete"`
	DisplayName        string      `json:"displayName"`
	Points             int         `json:"points"`
	Albums             []Album     `json:"albums"`
	Groups             []Group     `json:"groups"`
	Comments           []Comment   `json:"comments"`
	Photos             []Photo     `json:"photos"`
	Favorites          []uuid.UUID `json:"favorites"`
}

// SyncPayload is pushed to the remote sync endpoint as a full overwrite.
type SyncPayload struct {
	Photos   []Photo   `json:"photos"`
	Comments []Comment `json:"comments"`
	Albums   []Album   `json:"albums"`
	Groups   []Group   `json:"groups"`
	LastSync time.Time `json:"lastSync"`
}

// SmartAlbums are derived, non-persisted album views.
type SmartAlbums struct {
	ByDate     []Album
	ByLocation []Album
	Favorites  []Album
}

// User represents an account stored on the server.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte
	CreatedAt time.Time
}

// Tokens collects an issued access token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}

// AddID appends id to set unless present and reports whether it was added.
func AddID(set []uuid.UUID, id uuid.UUID) ([]uuid.UUID, bool) {
	for _, v := range set {
		if v == id {
			return set, false
		}
	}
	return append(set, id), true
}

// RemoveID drops id from set.
func RemoveID(set []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := set[:0]
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ToggleID adds id when absent, removes it otherwise; reports membership after the call.
func ToggleID(set []uuid.UUID, id uuid.UUID) ([]uuid.UUID, bool) {
	if out, added := AddID(set, id); added {
		return out, true
	}
	return RemoveID(set, id), false
}

// ContainsID reports whether id is in set.
func ContainsID(set []uuid.UUID, id uuid.UUID) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
