package remote

import (
	"context"
	"encoding/json"
	"net"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/and161185/snapshare/internal/api"
	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/model"
	"github.com/and161185/snapshare/internal/pagecache"
)

// fakeServer is an in-memory SnapShare backend.
type fakeServer struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]model.Record
	photos  []model.Photo
	covers  map[uuid.UUID]string
	events  chan model.ChangeEvent
	lastTok string
}

var _ api.SnapShareServer = (*fakeServer)(nil)

func newFakeServer() *fakeServer {
	return &fakeServer{
		rows:   map[uuid.UUID]model.Record{},
		covers: map[uuid.UUID]string{},
		events: make(chan model.ChangeEvent, 8),
	}
}

func (f *fakeServer) authorize(ctx context.Context) error {
	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get("authorization"); len(v) > 0 {
		f.mu.Lock()
		f.lastTok = v[0]
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeServer) Register(context.Context, *api.RegisterRequest) (*api.RegisterResponse, error) {
	return &api.RegisterResponse{}, nil
}

func (f *fakeServer) Login(context.Context, *api.LoginRequest) (*api.LoginResponse, error) {
	return nil, status.Error(codes.Unauthenticated, "bad credentials")
}

func (f *fakeServer) List(ctx context.Context, req *api.ListRequest) (*api.ListResponse, error) {
	_ = f.authorize(ctx)
	if req.Limit > 100 {
		return nil, status.Error(codes.InvalidArgument, "limit")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Record
	for _, r := range f.rows {
		if r.Kind == req.Table {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() > all[j].ID.String() })
	out := []model.Record{}
	for i := req.Offset; i < len(all) && len(out) < req.Limit; i++ {
		out = append(out, all[i])
	}
	return &api.ListResponse{Records: out}, nil
}

func (f *fakeServer) Insert(_ context.Context, req *api.InsertRequest) (*api.RecordResponse, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(req.Body, &fields); err != nil {
		return nil, status.Error(codes.InvalidArgument, "body")
	}
	id := uuid.Must(uuid.NewV7())
	fields["id"] = id
	body, _ := json.Marshal(fields)
	rec := model.Record{ID: id, Kind: req.Table, Body: body}
	f.mu.Lock()
	f.rows[id] = rec
	f.mu.Unlock()
	return &api.RecordResponse{Record: rec}, nil
}

func (f *fakeServer) Update(_ context.Context, req *api.UpdateRequest) (*api.RecordResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[req.ID]
	if !ok {
		return nil, status.Error(codes.NotFound, "not found")
	}
	fields := map[string]any{}
	_ = json.Unmarshal(rec.Body, &fields)
	for k, v := range req.Patch {
		fields[k] = v
	}
	rec.Body, _ = json.Marshal(fields)
	f.rows[req.ID] = rec
	return &api.RecordResponse{Record: rec}, nil
}

func (f *fakeServer) Delete(_ context.Context, req *api.DeleteRequest) (*api.Empty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[req.ID]; !ok {
		return nil, status.Error(codes.NotFound, "not found")
	}
	delete(f.rows, req.ID)
	return &api.Empty{}, nil
}

func (f *fakeServer) CreatePhoto(_ context.Context, req *api.CreatePhotoRequest) (*api.RecordResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, req.Photo)
	return &api.RecordResponse{}, nil
}

func (f *fakeServer) UpdateAlbumCover(_ context.Context, req *api.UpdateAlbumCoverRequest) (*api.Empty, error) {
	if req.URI == "" {
		return nil, status.Error(codes.PermissionDenied, "forbidden")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.covers[req.AlbumID] = req.URI
	return &api.Empty{}, nil
}

func (f *fakeServer) ExportAlbum(_ context.Context, req *api.ExportAlbumRequest) (*api.ExportAlbumResponse, error) {
	return &api.ExportAlbumResponse{URL: "https://objects.test/" + req.AlbumID.String()}, nil
}

func (f *fakeServer) JoinGroup(_ context.Context, req *api.JoinGroupRequest) (*api.JoinGroupResponse, error) {
	switch req.InviteCode {
	case "ABCD2345":
		return &api.JoinGroupResponse{GroupID: uuid.FromStringOrNil("0190f4c6-0000-7000-8000-000000000001")}, nil
	case "SLOWDOWN":
		return nil, status.Error(codes.ResourceExhausted, "rate limited")
	}
	return nil, status.Error(codes.NotFound, "invalid invite code")
}

func (f *fakeServer) Sync(_ context.Context, req *api.SyncRequest) (*api.SyncResponse, error) {
	return &api.SyncResponse{SyncedAt: req.Payload.LastSync.Add(time.Second)}, nil
}

func (f *fakeServer) Watch(req *api.WatchRequest, stream api.WatchServer) error {
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev := <-f.events:
			if ev.ScopeID != req.ScopeID {
				continue
			}
			if err := stream.Send(&ev); err != nil {
				return err
			}
		}
	}
}

func startServer(t *testing.T, token string) (*fakeServer, *api.Client) {
	t.Helper()
	fs := newFakeServer()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	api.RegisterSnapShareServer(gs, fs)
	go func() { _ = gs.Serve(lis) }()

	cc, err := Dial(DialOptions{Addr: "passthrough:///bufnet", Plaintext: true, Token: token},
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() })
	return fs, api.NewClient(cc)
}

func TestTable_CRUDAndPaging(t *testing.T) {
	t.Parallel()
	fs, cl := startServer(t, "tok")
	ctx := context.Background()
	albums := NewTable[model.Album](cl, model.TableAlbums)
	var _ pagecache.Source[model.Album] = albums

	created, err := albums.Insert(ctx, model.Scope{Kind: model.ScopeOwner}, model.Album{Name: "Beach", Photos: []string{}})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, "Beach", created.Name)
	require.Equal(t, "Bearer tok", fs.lastTok)

	for i := 0; i < 4; i++ {
		_, err := albums.Insert(ctx, model.Scope{Kind: model.ScopeOwner}, model.Album{Name: "x"})
		require.NoError(t, err)
	}
	page, err := albums.List(ctx, pagecache.Query{Scope: model.Scope{Kind: model.ScopeOwner}, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	page, err = albums.List(ctx, pagecache.Query{Scope: model.Scope{Kind: model.ScopeOwner}, Limit: 3, Offset: 3})
	require.NoError(t, err)
	require.Len(t, page, 2)

	_, err = albums.List(ctx, pagecache.Query{Limit: 1000})
	require.ErrorIs(t, err, errs.ErrValidation)

	upd, err := albums.Update(ctx, created.ID, model.Patch{"name": "Sea"})
	require.NoError(t, err)
	require.Equal(t, "Sea", upd.Name)

	require.NoError(t, albums.Delete(ctx, created.ID))
	require.ErrorIs(t, albums.Delete(ctx, created.ID), errs.ErrNotFound)
	_, err = albums.Update(ctx, created.ID, model.Patch{"name": "x"})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestActions(t *testing.T) {
	t.Parallel()
	fs, cl := startServer(t, "")
	ctx := context.Background()
	a := NewActions(cl)
	album := uuid.Must(uuid.NewV7())

	require.NoError(t, a.CreatePhoto(ctx, model.NewPhoto(album, "file:///1.jpg", nil)))
	require.Len(t, fs.photos, 1)

	require.NoError(t, a.UpdateAlbumCover(ctx, album, "c.jpg"))
	require.Equal(t, "c.jpg", fs.covers[album])
	require.ErrorIs(t, a.UpdateAlbumCover(ctx, album, ""), errs.ErrForbidden)

	link, err := a.ExportAlbum(ctx, album)
	require.NoError(t, err)
	require.Equal(t, "https://objects.test/"+album.String(), link)

	g, err := a.JoinGroup(ctx, "ABCD2345")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, g)
	_, err = a.JoinGroup(ctx, "ZZZZZZZZ")
	require.ErrorIs(t, err, errs.ErrInvalidInviteCode)
	_, err = a.JoinGroup(ctx, "SLOWDOWN")
	require.ErrorIs(t, err, errs.ErrRateLimited)

	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at, err := a.Sync(ctx, model.SyncPayload{LastSync: last})
	require.NoError(t, err)
	require.True(t, at.Equal(last.Add(time.Second)))
}

func TestWatcher_ForwardsScopedEvents(t *testing.T) {
	t.Parallel()
	fs, cl := startServer(t, "")
	w := NewWatcher(cl, zaptest.NewLogger(t))
	scope := uuid.Must(uuid.NewV7())

	ctx, cancel := context.WithCancel(context.Background())
	events, err := w.Subscribe(ctx, model.TablePhotos, scope)
	require.NoError(t, err)

	fs.events <- model.ChangeEvent{Table: model.TablePhotos, ScopeID: uuid.Must(uuid.NewV7()), Op: model.OpInsert}
	want := model.ChangeEvent{Table: model.TablePhotos, ScopeID: scope, Op: model.OpDelete, ID: uuid.Must(uuid.NewV7())}
	fs.events <- want

	select {
	case got := <-events:
		require.Equal(t, want.ID, got.ID)
		require.Equal(t, model.OpDelete, got.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("event not forwarded")
	}

	cancel()
	select {
	case _, ok := <-events:
		for ok {
			_, ok = <-events
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestFromStatus(t *testing.T) {
	t.Parallel()
	require.NoError(t, fromStatus(nil))
	require.ErrorIs(t, fromStatus(status.Error(codes.Unauthenticated, "x")), errs.ErrUnauthorized)
	require.ErrorIs(t, fromStatus(status.Error(codes.AlreadyExists, "x")), errs.ErrAlreadyExists)
	require.ErrorIs(t, fromStatus(status.Error(codes.DeadlineExceeded, "x")), context.DeadlineExceeded)
	raw := status.Error(codes.Internal, "boom")
	require.Equal(t, raw, fromStatus(raw))
}
