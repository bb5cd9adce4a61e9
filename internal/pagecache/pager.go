package pagecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/and161185/snapshare/internal/model"
	"github.com/and161185/snapshare/internal/offline"
)

// Defaults for New.
const (
	DefaultLimit     = 20
	DefaultCacheSize = 64
)

// Status is the pager state machine: idle -> loading -> {loaded, error}.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Page is a point-in-time view of a pager. Items must be treated as read-only.
type Page[T Entity] struct {
	Items   []T
	Status  Status
	Err     error
	HasMore bool
	// Stale is set when Items come from the offline snapshot after a failed fetch.
	Stale bool
}

type options struct {
	limit      int
	cacheSize  int
	timeout    time.Duration
	log        *zap.Logger
	offline    *offline.Cache
	offlineKey string
}

// Option configures a Pager.
type Option func(*options)

// WithLimit sets the page size.
func WithLimit(n int) Option { return func(o *options) { o.limit = n } }

// WithCacheSize bounds the number of cached pages.
func WithCacheSize(n int) Option { return func(o *options) { o.cacheSize = n } }

// WithTimeout bounds every remote list call.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithOffline mirrors fresh first pages into the offline snapshot under key and serves
// that snapshot when the remote is unreachable.
func WithOffline(c *offline.Cache, key string) Option {
	return func(o *options) { o.offline, o.offlineKey = c, key }
}

// Pager fetches, caches and mutates one scoped entity collection.
type Pager[T Entity] struct {
	src   Source[T]
	user  uuid.UUID
	table model.Table
	scope model.Scope
	opts  options
	log   *zap.Logger
	cache *lru.Cache[string, []T]

	mu      sync.Mutex
	items   []T
	status  Status
	err     error
	hasMore bool
	stale   bool
	loading bool
	gen     uint64 // bumped by every remote fetch and cache restore; stale completions are dropped
}

// New constructs a Pager for table rows visible to user in scope.
func New[T Entity](src Source[T], user uuid.UUID, table model.Table, scope model.Scope, opts ...Option) (*Pager[T], error) {
	o := options{limit: DefaultLimit, cacheSize: DefaultCacheSize}
	for _, fn := range opts {
		fn(&o)
	}
	if o.limit <= 0 {
		return nil, fmt.Errorf("pagecache: limit must be positive, got %d", o.limit)
	}
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("pagecache: %w", err)
	}
	cache, err := lru.New[string, []T](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("pagecache: %w", err)
	}
	log := o.log
	if log == nil {
		log = zap.NewNop()
	}
	return &Pager[T]{
		src:   src,
		user:  user,
		table: table,
		scope: scope,
		opts:  o,
		log:   log.With(zap.String("table", string(table)), zap.Stringer("scope", scope)),
		cache: cache,
	}, nil
}

func (p *Pager[T]) key(offset int) string {
	return fmt.Sprintf("%s:%s:%s:%d:%d", p.user, p.table, p.scope, p.opts.limit, offset)
}

// View returns the current state.
func (p *Pager[T]) View() Page[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Page[T]{
		Items:   append([]T(nil), p.items...),
		Status:  p.status,
		Err:     p.err,
		HasMore: p.hasMore,
		Stale:   p.stale,
	}
}

// Fetch loads the first page (loadMore=false) or the page after the current items.
// A fresh fetch whose key is cached is served without a remote call. Remote errors
// move the pager to StatusError and are returned.
func (p *Pager[T]) Fetch(ctx context.Context, loadMore bool) error {
	p.mu.Lock()
	if loadMore && (p.loading || !p.hasMore) {
		p.mu.Unlock()
		return nil
	}
	offset := 0
	if loadMore {
		offset = len(p.items)
	}
	key := p.key(offset)

	if !loadMore {
		if cached, ok := p.cache.Get(key); ok {
			p.gen++
			p.items = append([]T(nil), cached...)
			p.hasMore = len(cached) == p.opts.limit
			p.status, p.err, p.stale, p.loading = StatusLoaded, nil, false, false
			p.mu.Unlock()
			p.log.Debug("page served from cache", zap.Int("offset", offset))
			return nil
		}
	}

	p.gen++
	gen := p.gen
	p.loading = true
	p.status = StatusLoading
	p.mu.Unlock()

	page, err := p.list(ctx, offset)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		p.log.Debug("dropping superseded page", zap.Int("offset", offset))
		return nil
	}
	p.loading = false
	if err != nil {
		p.status, p.err = StatusError, err
		p.mu.Unlock()
		p.log.Warn("fetch failed", zap.Int("offset", offset), zap.Error(err))
		if !loadMore {
			p.serveOffline(ctx, gen)
		}
		return err
	}

	if loadMore {
		p.items = append(p.items, page...)
	} else {
		p.items = append([]T(nil), page...)
	}
	p.hasMore = len(page) == p.opts.limit
	p.status, p.err, p.stale = StatusLoaded, nil, false
	snapshot := append([]T(nil), p.items...)
	p.cache.Add(key, snapshot)
	p.mu.Unlock()

	if !loadMore && p.opts.offline != nil {
		if err := offline.Save(ctx, p.opts.offline, p.opts.offlineKey, snapshot); err != nil {
			p.log.Warn("offline snapshot write failed", zap.Error(err))
		}
	}
	return nil
}

// LoadMore fetches the next page unless a fetch is in flight or the last page was short.
func (p *Pager[T]) LoadMore(ctx context.Context) error {
	return p.Fetch(ctx, true)
}

// ClearCache drops every cached page of this pager.
func (p *Pager[T]) ClearCache() {
	p.cache.Purge()
}

// Create inserts item remotely and prepends the stored record.
func (p *Pager[T]) Create(ctx context.Context, item T) (T, error) {
	created, err := p.src.Insert(ctx, p.scope, item)
	if err != nil {
		var zero T
		return zero, err
	}
	p.mu.Lock()
	p.items = append([]T{created}, p.items...)
	p.mu.Unlock()
	p.cache.Purge()
	return created, nil
}

// Update stamps updatedAt, applies patch remotely and replaces the matching item.
func (p *Pager[T]) Update(ctx context.Context, id uuid.UUID, patch model.Patch) (T, error) {
	stamped := make(model.Patch, len(patch)+1)
	for k, v := range patch {
		stamped[k] = v
	}
	stamped["updatedAt"] = time.Now().UTC()

	updated, err := p.src.Update(ctx, id, stamped)
	if err != nil {
		var zero T
		return zero, err
	}
	p.mu.Lock()
	for i := range p.items {
		if p.items[i].EntityID() == id {
			p.items[i] = updated
			break
		}
	}
	p.mu.Unlock()
	p.cache.Purge()
	return updated, nil
}

// Delete removes the record remotely and from the in-memory list.
func (p *Pager[T]) Delete(ctx context.Context, id uuid.UUID) error {
	if err := p.src.Delete(ctx, id); err != nil {
		return err
	}
	p.mu.Lock()
	out := make([]T, 0, len(p.items))
	for _, it := range p.items {
		if it.EntityID() != id {
			out = append(out, it)
		}
	}
	p.items = out
	p.mu.Unlock()
	p.cache.Purge()
	return nil
}

// Watch refetches the first page on every change notification for this pager's scope.
// It blocks until ctx ends or the subscription closes.
func (p *Pager[T]) Watch(ctx context.Context, sub Subscriber) error {
	scopeID := p.scope.ID
	if scopeID == uuid.Nil {
		scopeID = p.user
	}
	events, err := sub.Subscribe(ctx, p.table, scopeID)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", p.table, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.log.Debug("change notification", zap.String("op", string(ev.Op)), zap.Stringer("id", ev.ID))
			p.ClearCache()
			if err := p.Fetch(ctx, false); err != nil && !errors.Is(err, context.Canceled) {
				p.log.Warn("refetch after change failed", zap.Error(err))
			}
		}
	}
}

func (p *Pager[T]) list(ctx context.Context, offset int) ([]T, error) {
	if p.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.timeout)
		defer cancel()
	}
	return p.src.List(ctx, Query{Scope: p.scope, Limit: p.opts.limit, Offset: offset})
}

func (p *Pager[T]) serveOffline(ctx context.Context, gen uint64) {
	if p.opts.offline == nil {
		return
	}
	items, ok, err := offline.Load[T](ctx, p.opts.offline, p.opts.offlineKey)
	if err != nil {
		p.log.Warn("offline snapshot read failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	p.items = items
	p.hasMore = false
	p.stale = true
}
