package appstate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/model"
)

// recentWindow is how far back the "by date" smart album reaches.
const recentWindow = 7 * 24 * time.Hour

func albumIndex(st *state, id uuid.UUID) int {
	for i := range st.Albums {
		if st.Albums[i].ID == id {
			return i
		}
	}
	return -1
}

func photoIndex(st *state, id uuid.UUID) int {
	for i := range st.Photos {
		if st.Photos[i].ID == id {
			return i
		}
	}
	return -1
}

// removeURI drops the first occurrence of uri and repairs the cover.
func removeURI(a *model.Album, uri string) {
	for i, u := range a.Photos {
		if u == uri {
			a.Photos = append(a.Photos[:i:i], a.Photos[i+1:]...)
			break
		}
	}
	if a.CoverImage == uri && !containsString(a.Photos, uri) {
		a.CoverImage = ""
		if len(a.Photos) > 0 {
			a.CoverImage = a.Photos[0]
		}
	}
}

// appendURI adds uri in display order; the first photo becomes the cover.
func appendURI(a *model.Album, uri string) {
	a.Photos = append(a.Photos, uri)
	if a.CoverImage == "" {
		a.CoverImage = uri
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// CreateAlbum creates a private, empty album. With groupID the album is also listed in that group.
// Album creation is local only.
func (s *Store) CreateAlbum(ctx context.Context, name string, groupID *uuid.UUID) model.Album {
	a := model.Album{
		ID:        model.NewID(),
		Name:      strings.TrimSpace(name),
		Photos:    []string{},
		CreatedAt: s.now(),
		Likes:     []uuid.UUID{},
	}
	if groupID != nil {
		g := *groupID
		a.GroupID = &g
	}
	s.mutate(ctx, "create_album", func(st *state) bool {
		st.Albums = append(st.Albums, a)
		if a.GroupID != nil {
			if gi := groupIndex(st, *a.GroupID); gi >= 0 {
				st.Groups[gi].Albums, _ = model.AddID(st.Groups[gi].Albums, a.ID)
			}
		}
		return true
	})
	return a.Clone()
}

// DeleteAlbum removes the album with its photos, the comments on both, group references
// and the favorite flag.
func (s *Store) DeleteAlbum(ctx context.Context, id uuid.UUID) error {
	found := s.mutate(ctx, "delete_album", func(st *state) bool {
		i := albumIndex(st, id)
		if i < 0 {
			return false
		}
		st.Albums = append(st.Albums[:i:i], st.Albums[i+1:]...)

		gone := map[uuid.UUID]bool{}
		photos := st.Photos[:0:0]
		for _, p := range st.Photos {
			if p.AlbumID == id {
				gone[p.ID] = true
				continue
			}
			photos = append(photos, p)
		}
		st.Photos = photos

		comments := st.Comments[:0:0]
		for _, c := range st.Comments {
			if (c.AlbumID != nil && *c.AlbumID == id) || (c.PhotoID != nil && gone[*c.PhotoID]) {
				continue
			}
			comments = append(comments, c)
		}
		st.Comments = comments

		for gi := range st.Groups {
			st.Groups[gi].Albums = model.RemoveID(st.Groups[gi].Albums, id)
		}
		st.Favorites = model.RemoveID(st.Favorites, id)
		st.selection = filterSelection(st.selection, gone)
		return true
	})
	if !found {
		return fmt.Errorf("album %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// AddPhotoToAlbum appends uri to the album (first photo becomes the cover), records the
// photo and then registers it remotely. A remote failure is logged and the local change kept.
func (s *Store) AddPhotoToAlbum(ctx context.Context, albumID uuid.UUID, uri string, meta *model.PhotoMetadata) (model.Photo, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return model.Photo{}, fmt.Errorf("%w: empty photo uri", errs.ErrValidation)
	}
	photo := model.NewPhoto(albumID, uri, meta)
	photo.CreatedAt = s.now()

	var found bool
	s.optimistic(ctx, "add_photo", func(st *state) bool {
		i := albumIndex(st, albumID)
		if i < 0 {
			return false
		}
		found = true
		appendURI(&st.Albums[i], uri)
		st.Photos = append(st.Photos, photo)
		s.notify(st, model.NotifyPhotoAdded, "Photo added",
			fmt.Sprintf("A new photo was added to %s", st.Albums[i].Name),
			map[string]string{"albumId": albumID.String(), "photoId": photo.ID.String()})
		return true
	}, func(ctx context.Context) error {
		return s.remote.CreatePhoto(ctx, photo)
	})
	if !found {
		return model.Photo{}, fmt.Errorf("album %s: %w", albumID, errs.ErrNotFound)
	}
	return photo.Clone(), nil
}

// UpdateAlbumCover sets the cover locally and echoes it remotely.
func (s *Store) UpdateAlbumCover(ctx context.Context, albumID uuid.UUID, uri string) error {
	var found bool
	s.optimistic(ctx, "update_album_cover", func(st *state) bool {
		i := albumIndex(st, albumID)
		if i < 0 {
			return false
		}
		found = true
		st.Albums[i].CoverImage = uri
		return true
	}, func(ctx context.Context) error {
		return s.remote.UpdateAlbumCover(ctx, albumID, uri)
	})
	if !found {
		return fmt.Errorf("album %s: %w", albumID, errs.ErrNotFound)
	}
	return nil
}

// SetAlbumPublic toggles album visibility.
func (s *Store) SetAlbumPublic(ctx context.Context, albumID uuid.UUID, public bool) error {
	found := s.mutate(ctx, "album_visibility", func(st *state) bool {
		i := albumIndex(st, albumID)
		if i < 0 {
			return false
		}
		st.Albums[i].IsPublic = public
		return true
	})
	if !found {
		return fmt.Errorf("album %s: %w", albumID, errs.ErrNotFound)
	}
	return nil
}

// ToggleAlbumLike flips the current user's like and reports whether the album is now liked.
func (s *Store) ToggleAlbumLike(ctx context.Context, albumID uuid.UUID) (bool, error) {
	var liked bool
	found := s.mutate(ctx, "like_album", func(st *state) bool {
		i := albumIndex(st, albumID)
		if i < 0 {
			return false
		}
		st.Albums[i].Likes, liked = model.ToggleID(st.Albums[i].Likes, s.user)
		return true
	})
	if !found {
		return false, fmt.Errorf("album %s: %w", albumID, errs.ErrNotFound)
	}
	return liked, nil
}

// TogglePhotoLike flips the current user's like and reports whether the photo is now liked.
func (s *Store) TogglePhotoLike(ctx context.Context, photoID uuid.UUID) (bool, error) {
	var liked bool
	found := s.mutate(ctx, "like_photo", func(st *state) bool {
		i := photoIndex(st, photoID)
		if i < 0 {
			return false
		}
		st.Photos[i].Likes, liked = model.ToggleID(st.Photos[i].Likes, s.user)
		return true
	})
	if !found {
		return false, fmt.Errorf("photo %s: %w", photoID, errs.ErrNotFound)
	}
	return liked, nil
}

// ToggleFavoriteAlbum flips the favorite flag and reports whether the album is now a favorite.
func (s *Store) ToggleFavoriteAlbum(ctx context.Context, albumID uuid.UUID) (bool, error) {
	var fav bool
	found := s.mutate(ctx, "favorite_album", func(st *state) bool {
		if albumIndex(st, albumID) < 0 {
			return false
		}
		st.Favorites, fav = model.ToggleID(st.Favorites, albumID)
		return true
	})
	if !found {
		return false, fmt.Errorf("album %s: %w", albumID, errs.ErrNotFound)
	}
	return fav, nil
}

// IsFavorite reports whether albumID is a favorite.
func (s *Store) IsFavorite(albumID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.ContainsID(s.st.Favorites, albumID)
}

// Albums returns all albums in creation order.
func (s *Store) Albums() []model.Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Album, len(s.st.Albums))
	for i, a := range s.st.Albums {
		out[i] = a.Clone()
	}
	return out
}

// Album returns one album.
func (s *Store) Album(id uuid.UUID) (model.Album, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := albumIndex(&s.st, id); i >= 0 {
		return s.st.Albums[i].Clone(), true
	}
	return model.Album{}, false
}

// Photos returns all photo records.
func (s *Store) Photos() []model.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Photo, len(s.st.Photos))
	for i, p := range s.st.Photos {
		out[i] = p.Clone()
	}
	return out
}

// AlbumPhotos returns the photo records of an album in display order.
func (s *Store) AlbumPhotos(albumID uuid.UUID) []model.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := albumIndex(&s.st, albumID)
	if i < 0 {
		return nil
	}
	byURI := map[string][]model.Photo{}
	for _, p := range s.st.Photos {
		if p.AlbumID == albumID {
			byURI[p.URI] = append(byURI[p.URI], p)
		}
	}
	out := make([]model.Photo, 0, len(s.st.Albums[i].Photos))
	for _, uri := range s.st.Albums[i].Photos {
		if ps := byURI[uri]; len(ps) > 0 {
			out = append(out, ps[0].Clone())
			byURI[uri] = ps[1:]
		}
	}
	return out
}

// ExportAlbum asks the backend for a downloadable export. There is no local fallback.
func (s *Store) ExportAlbum(ctx context.Context, albumID uuid.UUID) (string, error) {
	a, ok := s.Album(albumID)
	if !ok {
		return "", fmt.Errorf("album %s: %w", albumID, errs.ErrNotFound)
	}
	if s.remote == nil {
		return "", fmt.Errorf("export album: no remote configured")
	}
	ref, err := s.remote.ExportAlbum(ctx, albumID)
	if err != nil {
		return "", fmt.Errorf("export album: %w", err)
	}
	s.mu.Lock()
	s.notify(&s.st, model.NotifyPhotoAdded, "Album exported",
		fmt.Sprintf("%s is ready to download", a.Name),
		map[string]string{"albumId": albumID.String(), "url": ref})
	s.mu.Unlock()
	return ref, nil
}

// GetSmartAlbums computes the derived album views on demand.
func (s *Store) GetSmartAlbums() model.SmartAlbums {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-recentWindow)
	located := map[uuid.UUID]bool{}
	for _, p := range s.st.Photos {
		if p.HasLocation() {
			located[p.AlbumID] = true
		}
	}

	out := model.SmartAlbums{
		ByDate:     []model.Album{},
		ByLocation: []model.Album{},
		Favorites:  []model.Album{},
	}
	for _, a := range s.st.Albums {
		if a.CreatedAt.After(cutoff) {
			out.ByDate = append(out.ByDate, a.Clone())
		}
		if located[a.ID] {
			out.ByLocation = append(out.ByLocation, a.Clone())
		}
		if model.ContainsID(s.st.Favorites, a.ID) {
			out.Favorites = append(out.Favorites, a.Clone())
		}
	}
	sort.SliceStable(out.ByDate, func(i, j int) bool {
		return out.ByDate[i].CreatedAt.After(out.ByDate[j].CreatedAt)
	})
	return out
}
