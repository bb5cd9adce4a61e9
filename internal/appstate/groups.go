package appstate

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/snapshare/internal/crypto"
	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/model"
)

func groupIndex(st *state, id uuid.UUID) int {
	for i := range st.Groups {
		if st.Groups[i].ID == id {
			return i
		}
	}
	return -1
}

func groupByCode(st *state, code string) int {
	for i := range st.Groups {
		if st.Groups[i].InviteCode != "" && st.Groups[i].InviteCode == code {
			return i
		}
	}
	return -1
}

// CreateGroup creates a group owned by the current user, who becomes its first member.
// The invite code is unique among local groups.
func (s *Store) CreateGroup(ctx context.Context, name, description string) (model.Group, error) {
	g := model.Group{
		ID:          model.NewID(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Members:     []uuid.UUID{s.user},
		Albums:      []uuid.UUID{},
		CreatedAt:   s.now(),
		Owner:       s.user,
	}
	var err error
	s.mutate(ctx, "create_group", func(st *state) bool {
		for {
			if g.InviteCode, err = crypto.NewInviteCode(); err != nil {
				return false
			}
			if groupByCode(st, g.InviteCode) < 0 {
				break
			}
		}
		st.Groups = append(st.Groups, g)
		return true
	})
	if err != nil {
		return model.Group{}, err
	}
	return g.Clone(), nil
}

// DeleteGroup removes the group and detaches its albums.
func (s *Store) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	found := s.mutate(ctx, "delete_group", func(st *state) bool {
		i := groupIndex(st, id)
		if i < 0 {
			return false
		}
		st.Groups = append(st.Groups[:i:i], st.Groups[i+1:]...)
		for ai := range st.Albums {
			if st.Albums[ai].GroupID != nil && *st.Albums[ai].GroupID == id {
				st.Albums[ai].GroupID = nil
			}
		}
		return true
	})
	if !found {
		return fmt.Errorf("group %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// UpdateGroupCover sets the group cover image.
func (s *Store) UpdateGroupCover(ctx context.Context, id uuid.UUID, uri string) error {
	found := s.mutate(ctx, "update_group_cover", func(st *state) bool {
		i := groupIndex(st, id)
		if i < 0 {
			return false
		}
		st.Groups[i].CoverImage = uri
		return true
	})
	if !found {
		return fmt.Errorf("group %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// JoinGroupByCode joins a group through the backend. On success the current user is added
// to the matching local group (if any) and a group_invite notification is emitted.
// Any remote failure yields false; nothing is changed locally in that case.
func (s *Store) JoinGroupByCode(ctx context.Context, inviteCode string) bool {
	code := crypto.NormalizeInviteCode(inviteCode)
	if code == "" || s.remote == nil {
		return false
	}
	groupID, err := s.remote.JoinGroup(ctx, code)
	if err != nil {
		s.log.Warn("join group failed", zap.String("op", "join_group"), zap.Error(err))
		return false
	}
	s.mutate(ctx, "join_group", func(st *state) bool {
		i := groupByCode(st, code)
		if i < 0 && groupID != uuid.Nil {
			i = groupIndex(st, groupID)
		}
		name := "a group"
		changed := false
		if i >= 0 {
			name = st.Groups[i].Name
			st.Groups[i].Members, changed = model.AddID(st.Groups[i].Members, s.user)
		}
		s.notify(st, model.NotifyGroupInvite, "Joined group",
			fmt.Sprintf("You joined %s", name),
			map[string]string{"groupId": groupID.String()})
		return changed
	})
	return true
}

// Groups returns all groups.
func (s *Store) Groups() []model.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Group, len(s.st.Groups))
	for i, g := range s.st.Groups {
		out[i] = g.Clone()
	}
	return out
}

// Group returns one group.
func (s *Store) Group(id uuid.UUID) (model.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := groupIndex(&s.st, id); i >= 0 {
		return s.st.Groups[i].Clone(), true
	}
	return model.Group{}, false
}
