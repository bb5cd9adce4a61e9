package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/limiter"
	"github.com/and161185/snapshare/internal/model"
	"github.com/and161185/snapshare/internal/objstore"
	"github.com/and161185/snapshare/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type fakeUsers struct {
	byName map[string]*model.User

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byName == nil {
		f.byName = map[string]*model.User{}
	}
	if _, exists := f.byName[u.Username]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byName[u.Username] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
	lastKey      limiter.Key
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, k limiter.Key) (bool, time.Duration, error) {
	l.allowCalls++
	l.lastKey = k
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(_ context.Context, k limiter.Key) error {
	l.successCalls++
	l.lastKey = k
	return l.successErr
}
func (l *fakeLimiter) Failure(_ context.Context, k limiter.Key) (bool, time.Duration, error) {
	l.failureCalls++
	l.lastKey = k
	return l.failBlocked, 0, l.failErr
}

// fakeRecords keeps records in memory and merges patches like jsonb ||.
type fakeRecords struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Record

	insertErr error
	listCalls int
}

var _ repository.RecordRepository = (*fakeRecords)(nil)

func newFakeRecords() *fakeRecords { return &fakeRecords{rows: map[uuid.UUID]model.Record{}} }

func (f *fakeRecords) List(_ context.Context, table model.Table, scope model.Scope, userID uuid.UUID, limit, offset int) ([]model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var all []model.Record
	for _, r := range f.rows {
		if r.Kind != table {
			continue
		}
		switch scope.Kind {
		case model.ScopeOwner:
			if r.OwnerID != userID {
				continue
			}
		case model.ScopeParent:
			if r.ScopeID == nil || *r.ScopeID != scope.ID {
				continue
			}
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})
	if offset >= len(all) {
		return []model.Record{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeRecords) Get(_ context.Context, table model.Table, id uuid.UUID) (model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Kind != table {
		return model.Record{}, errs.ErrNotFound
	}
	return r, nil
}

func (f *fakeRecords) Insert(_ context.Context, rec model.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.rows[rec.ID]; ok {
		return errs.ErrAlreadyExists
	}
	f.rows[rec.ID] = rec
	return nil
}

func (f *fakeRecords) Update(_ context.Context, table model.Table, id, ownerID uuid.UUID, patch []byte) (model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Kind != table || r.OwnerID != ownerID {
		return model.Record{}, errs.ErrNotFound
	}
	body := map[string]any{}
	_ = json.Unmarshal(r.Body, &body)
	p := map[string]any{}
	if err := json.Unmarshal(patch, &p); err != nil {
		return model.Record{}, err
	}
	for k, v := range p {
		body[k] = v
	}
	r.Body, _ = json.Marshal(body)
	r.UpdatedAt = time.Now().UTC()
	f.rows[id] = r
	return r, nil
}

func (f *fakeRecords) Delete(_ context.Context, table model.Table, id, ownerID uuid.UUID) (model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Kind != table || r.OwnerID != ownerID {
		return model.Record{}, errs.ErrNotFound
	}
	delete(f.rows, id)
	return r, nil
}

type fakeGroups struct {
	members map[uuid.UUID][]uuid.UUID
	codes   map[string]uuid.UUID
	joinErr error
}

var _ repository.GroupRepository = (*fakeGroups)(nil)

func newFakeGroups() *fakeGroups {
	return &fakeGroups{members: map[uuid.UUID][]uuid.UUID{}, codes: map[string]uuid.UUID{}}
}

func (f *fakeGroups) AddMember(_ context.Context, groupID, userID uuid.UUID) error {
	f.members[groupID], _ = model.AddID(f.members[groupID], userID)
	return nil
}

func (f *fakeGroups) IsMember(_ context.Context, groupID, userID uuid.UUID) (bool, error) {
	return model.ContainsID(f.members[groupID], userID), nil
}

func (f *fakeGroups) JoinByCode(ctx context.Context, code string, userID uuid.UUID) (uuid.UUID, error) {
	if f.joinErr != nil {
		return uuid.Nil, f.joinErr
	}
	id, ok := f.codes[code]
	if !ok {
		return uuid.Nil, errs.ErrInvalidInviteCode
	}
	return id, f.AddMember(ctx, id, userID)
}

type fakeSyncs struct {
	saved map[uuid.UUID][]byte
	at    time.Time
}

var _ repository.SyncRepository = (*fakeSyncs)(nil)

func (f *fakeSyncs) Save(_ context.Context, userID uuid.UUID, payload []byte) (time.Time, error) {
	if f.saved == nil {
		f.saved = map[uuid.UUID][]byte{}
	}
	f.saved[userID] = payload
	return f.at, nil
}

type fakeStore struct {
	objects map[string][]byte
	putErr  error
}

var _ objstore.Store = (*fakeStore)(nil)

func (f *fakeStore) Put(_ context.Context, name string, data []byte, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[name] = data
	return nil
}

func (f *fakeStore) PresignGet(_ context.Context, name string, ttl time.Duration) (string, error) {
	return "https://objects.test/" + name + "?ttl=" + ttl.String(), nil
}
