package appstate

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/model"
)

// AddComment attaches a comment by the current user to exactly one photo or album.
func (s *Store) AddComment(ctx context.Context, target model.CommentTarget, text string) (model.Comment, error) {
	if !target.Valid() {
		return model.Comment{}, errs.ErrInvalidTarget
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Comment{}, fmt.Errorf("%w: empty comment", errs.ErrValidation)
	}
	c := model.Comment{
		ID:        model.NewID(),
		Text:      text,
		Author:    s.user,
		CreatedAt: s.now(),
	}
	c.PhotoID, c.AlbumID = target.Refs()

	s.mutate(ctx, "add_comment", func(st *state) bool {
		st.Comments = append(st.Comments, c)
		return true
	})
	return c, nil
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, id uuid.UUID) error {
	found := s.mutate(ctx, "delete_comment", func(st *state) bool {
		for i := range st.Comments {
			if st.Comments[i].ID == id {
				st.Comments = append(st.Comments[:i:i], st.Comments[i+1:]...)
				return true
			}
		}
		return false
	})
	if !found {
		return fmt.Errorf("comment %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// Comments returns the comments on target, oldest first.
func (s *Store) Comments(target model.CommentTarget) []model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Comment{}
	for _, c := range s.st.Comments {
		if c.Target() == target {
			out = append(out, c)
		}
	}
	return out
}
