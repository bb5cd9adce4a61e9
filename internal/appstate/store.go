// Package appstate is the local-first application store: albums, groups, comments, photos,
// favorites, selection and notifications. Every mutation is applied in memory, persisted as a
// full snapshot, and (for remote-backed operations) echoed to the backend on a best-effort basis.
package appstate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/kv"
	"github.com/and161185/snapshare/internal/model"
	"github.com/and161185/snapshare/internal/offline"
)

// StateKey is the durable storage key of the snapshot.
const StateKey = "app_state"

// maxNotifications caps the session notification list.
const maxNotifications = 100

// Remote is the narrow RPC surface the store echoes to.
type Remote interface {
	CreatePhoto(ctx context.Context, p model.Photo) error
	UpdateAlbumCover(ctx context.Context, albumID uuid.UUID, uri string) error
	ExportAlbum(ctx context.Context, albumID uuid.UUID) (string, error)
	JoinGroup(ctx context.Context, inviteCode string) (uuid.UUID, error)
	Sync(ctx context.Context, payload model.SyncPayload) (time.Time, error)
}

// state is everything guarded by Store.mu.
type state struct {
	model.Snapshot

	selection     []uuid.UUID
	notifications []model.Notification
	online        bool
	lastSync      time.Time
}

// Store is the single write path for local data. Construct it once and share the pointer.
type Store struct {
	kv      kv.Storage
	remote  Remote
	user    uuid.UUID
	log     *zap.Logger
	now     func() time.Time
	offline *offline.Cache

	mu  sync.Mutex
	st  state
	seq uint64 // snapshot sequence, bumped under mu

	writeMu sync.Mutex
	written uint64 // last persisted sequence, guarded by writeMu
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New constructs a Store for user. Call Load to restore persisted state.
func New(storage kv.Storage, remote Remote, user uuid.UUID, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		kv:     storage,
		remote: remote,
		user:   user,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
		st:     state{Snapshot: emptySnapshot(), online: true},
	}
	for _, fn := range opts {
		fn(s)
	}
	return s
}

func emptySnapshot() model.Snapshot {
	return model.Snapshot{
		Albums:    []model.Album{},
		Groups:    []model.Group{},
		Comments:  []model.Comment{},
		Photos:    []model.Photo{},
		Favorites: []uuid.UUID{},
	}
}

// User returns the identity the store acts as.
func (s *Store) User() uuid.UUID { return s.user }

// Load restores the persisted snapshot. A missing snapshot leaves the store empty;
// an unreadable one is logged and ignored.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.kv.Get(ctx, StateKey)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	snap := emptySnapshot()
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.log.Error("discarding unreadable snapshot", zap.Error(err))
		return nil
	}
	normalize(&snap)

	s.mu.Lock()
	s.st.Snapshot = snap
	s.mu.Unlock()
	return nil
}

// normalize replaces nil collections so snapshots round-trip as empty lists.
func normalize(snap *model.Snapshot) {
	if snap.Albums == nil {
		snap.Albums = []model.Album{}
	}
	if snap.Groups == nil {
		snap.Groups = []model.Group{}
	}
	if snap.Comments == nil {
		snap.Comments = []model.Comment{}
	}
	if snap.Photos == nil {
		snap.Photos = []model.Photo{}
	}
	if snap.Favorites == nil {
		snap.Favorites = []uuid.UUID{}
	}
	for i := range snap.Albums {
		if snap.Albums[i].Photos == nil {
			snap.Albums[i].Photos = []string{}
		}
		if snap.Albums[i].Likes == nil {
			snap.Albums[i].Likes = []uuid.UUID{}
		}
	}
}

// mutate applies fn under the state lock and persists the resulting snapshot.
// It reports whether fn changed anything.
func (s *Store) mutate(ctx context.Context, op string, fn func(st *state) bool) bool {
	s.mu.Lock()
	if !fn(&s.st) {
		s.mu.Unlock()
		return false
	}
	s.seq++
	seq := s.seq
	blob, err := json.Marshal(s.st.Snapshot)
	s.mu.Unlock()

	if err != nil {
		s.log.Error("snapshot marshal failed", zap.String("op", op), zap.Error(err))
		return true
	}
	s.persist(ctx, op, seq, blob)
	return true
}

// persist writes blob unless a newer snapshot was already written.
func (s *Store) persist(ctx context.Context, op string, seq uint64, blob []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if seq <= s.written {
		return
	}
	if err := s.kv.Set(context.WithoutCancel(ctx), StateKey, string(blob)); err != nil {
		s.log.Error("snapshot write failed", zap.String("op", op), zap.Error(err))
		return
	}
	s.written = seq
}

// optimistic applies a local mutation, then echoes it to the remote. Echo failures
// are logged and never undo the local change.
func (s *Store) optimistic(ctx context.Context, op string, apply func(st *state) bool, echo func(ctx context.Context) error) {
	if !s.mutate(ctx, op, apply) {
		return
	}
	if s.remote == nil {
		return
	}
	if err := echo(ctx); err != nil {
		s.log.Warn("remote echo failed; keeping local change", zap.String("op", op), zap.Error(err))
	}
}

func (s *Store) notify(st *state, typ model.NotificationType, title, msg string, data map[string]string) {
	n := model.Notification{
		ID:        model.NewID(),
		Type:      typ,
		Title:     title,
		Message:   msg,
		CreatedAt: s.now(),
		Data:      data,
	}
	st.notifications = append([]model.Notification{n}, st.notifications...)
	if len(st.notifications) > maxNotifications {
		st.notifications = st.notifications[:maxNotifications]
	}
}

// Snapshot returns a deep copy of the persisted part of the state.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.st.Snapshot)
}

func cloneSnapshot(in model.Snapshot) model.Snapshot {
	out := in
	out.Albums = make([]model.Album, len(in.Albums))
	for i, a := range in.Albums {
		out.Albums[i] = a.Clone()
	}
	out.Groups = make([]model.Group, len(in.Groups))
	for i, g := range in.Groups {
		out.Groups[i] = g.Clone()
	}
	out.Photos = make([]model.Photo, len(in.Photos))
	for i, p := range in.Photos {
		out.Photos[i] = p.Clone()
	}
	out.Comments = append([]model.Comment{}, in.Comments...)
	out.Favorites = append([]uuid.UUID{}, in.Favorites...)
	return out
}

// SetOnboardingComplete records that onboarding finished.
func (s *Store) SetOnboardingComplete(ctx context.Context) {
	s.mutate(ctx, "onboarding", func(st *state) bool {
		if st.OnboardingComplete {
			return false
		}
		st.OnboardingComplete = true
		return true
	})
}

// SetDisplayName updates the profile name.
func (s *Store) SetDisplayName(ctx context.Context, name string) {
	s.mutate(ctx, "display_name", func(st *state) bool {
		st.DisplayName = name
		return true
	})
}

// AddPoints adds (or with a negative delta removes) reward points.
func (s *Store) AddPoints(ctx context.Context, delta int) int {
	var total int
	s.mutate(ctx, "points", func(st *state) bool {
		st.Points += delta
		total = st.Points
		return true
	})
	return total
}
