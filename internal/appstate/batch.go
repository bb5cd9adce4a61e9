package appstate

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/model"
)

// ToggleSelectPhoto adds or removes a photo from the session selection and reports
// whether it is now selected. Selection is not persisted.
func (s *Store) ToggleSelectPhoto(photoID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var selected bool
	s.st.selection, selected = model.ToggleID(s.st.selection, photoID)
	return selected
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.selection = nil
}

// Selection returns the selected photo ids in selection order.
func (s *Store) Selection() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID{}, s.st.selection...)
}

func filterSelection(sel []uuid.UUID, gone map[uuid.UUID]bool) []uuid.UUID {
	out := sel[:0:0]
	for _, id := range sel {
		if !gone[id] {
			out = append(out, id)
		}
	}
	return out
}

// BatchDeletePhotos removes the photo records and, scanning every album, the URIs that
// belonged to them. Comments on removed photos are dropped and the selection is cleared.
// It returns the number of photos removed.
func (s *Store) BatchDeletePhotos(ctx context.Context, photoIDs []uuid.UUID) int {
	want := make(map[uuid.UUID]bool, len(photoIDs))
	for _, id := range photoIDs {
		want[id] = true
	}
	var removed int
	s.mutate(ctx, "batch_delete_photos", func(st *state) bool {
		type ref struct {
			album uuid.UUID
			uri   string
		}
		gone := map[uuid.UUID]bool{}
		goneURIs := map[string]bool{}
		survivors := map[ref]int{}
		kept := st.Photos[:0:0]
		for _, p := range st.Photos {
			if want[p.ID] {
				gone[p.ID] = true
				goneURIs[p.URI] = true
				continue
			}
			survivors[ref{p.AlbumID, p.URI}]++
			kept = append(kept, p)
		}
		st.selection = nil
		removed = len(gone)
		if removed == 0 {
			return false
		}
		st.Photos = kept

		// every album drops URIs of deleted photos, except as many as surviving records still claim
		for i := range st.Albums {
			a := &st.Albums[i]
			seen := map[string]int{}
			for _, uri := range append([]string(nil), a.Photos...) {
				if !goneURIs[uri] {
					continue
				}
				seen[uri]++
				if seen[uri] > survivors[ref{a.ID, uri}] {
					removeURI(a, uri)
				}
			}
		}

		comments := st.Comments[:0:0]
		for _, c := range st.Comments {
			if c.PhotoID != nil && gone[*c.PhotoID] {
				continue
			}
			comments = append(comments, c)
		}
		st.Comments = comments
		return true
	})
	return removed
}

// BatchMovePhotos moves photos into targetAlbumID, keeping their display order, and clears
// the selection. It returns the number of photos moved.
func (s *Store) BatchMovePhotos(ctx context.Context, photoIDs []uuid.UUID, targetAlbumID uuid.UUID) (int, error) {
	var moved int
	found := true
	s.mutate(ctx, "batch_move_photos", func(st *state) bool {
		ti := albumIndex(st, targetAlbumID)
		if ti < 0 {
			found = false
			return false
		}
		st.selection = nil
		for _, id := range photoIDs {
			pi := photoIndex(st, id)
			if pi < 0 || st.Photos[pi].AlbumID == targetAlbumID {
				continue
			}
			p := &st.Photos[pi]
			if si := albumIndex(st, p.AlbumID); si >= 0 {
				removeURI(&st.Albums[si], p.URI)
			}
			appendURI(&st.Albums[ti], p.URI)
			p.AlbumID = targetAlbumID
			moved++
		}
		return moved > 0
	})
	if !found {
		return 0, fmt.Errorf("album %s: %w", targetAlbumID, errs.ErrNotFound)
	}
	return moved, nil
}
