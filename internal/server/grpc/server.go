// Package grpcserver exposes the SnapShare gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/snapshare/internal/api"
	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/model"
	"github.com/and161185/snapshare/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	auth    service.AuthService
	records service.RecordService
	actions service.ActionService
	hub     *Hub
	signKey []byte
	log     *zap.Logger
}

var _ api.SnapShareServer = (*Server)(nil)

// New constructs a gRPC server with injected services. hub may be nil, which disables Watch.
func New(
	auth service.AuthService,
	records service.RecordService,
	actions service.ActionService,
	hub *Hub,
	signKey []byte,
	log *zap.Logger,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, records: records, actions: actions, hub: hub, signKey: signKey, log: log}
}

// statusErr maps domain sentinels to gRPC codes.
func statusErr(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrInvalidTarget):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrInvalidInviteCode):
		return status.Error(codes.NotFound, "invalid invite code")
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "bad credentials")
	case errors.Is(err, errs.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	return status.Errorf(codes.Internal, "%s: %v", op, err)
}

// publish notifies watchers of the record's parent scope, its owner and, for groups, the group itself.
func (s *Server) publish(op model.ChangeOp, rec model.Record) {
	if s.hub == nil {
		return
	}
	scopes := []uuid.UUID{rec.OwnerID}
	if rec.ScopeID != nil {
		scopes = append(scopes, *rec.ScopeID)
	}
	if rec.Kind == model.TableGroups {
		scopes = append(scopes, rec.ID)
	}
	at := time.Now().UTC()
	for _, scope := range scopes {
		n := s.hub.Publish(model.ChangeEvent{Table: rec.Kind, ScopeID: scope, Op: op, ID: rec.ID, At: at})
		if n > 0 {
			s.log.Debug("change published",
				zap.String("table", string(rec.Kind)),
				zap.String("op", string(op)),
				zap.Stringer("scope", scope),
				zap.Int("subscribers", n),
			)
		}
	}
}

// --- Auth ---

// Register creates a new user account.
func (s *Server) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "empty username/password")
	}
	userID, err := s.auth.Register(ctx, req.Username, req.Password)
	if err != nil {
		return nil, statusErr("register", err)
	}
	return &api.RegisterResponse{UserID: userID}, nil
}

// Login authenticates a user and returns an access token.
func (s *Server) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	tok, u, err := s.auth.LoginWithIP(ctx, req.Username, req.Password, peerAddr(ctx))
	if err != nil {
		return nil, statusErr("login", err)
	}
	return &api.LoginResponse{AccessToken: tok.AccessToken, ExpiresAt: tok.ExpiresAt, UserID: u.ID}, nil
}

// --- Records ---

// List returns one page of a table.
func (s *Server) List(ctx context.Context, req *api.ListRequest) (*api.ListResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := s.records.List(ctx, userID, req.Table, req.Scope, req.Limit, req.Offset)
	if err != nil {
		return nil, statusErr("list", err)
	}
	if recs == nil {
		recs = []model.Record{}
	}
	return &api.ListResponse{Records: recs}, nil
}

// Insert creates a record.
func (s *Server) Insert(ctx context.Context, req *api.InsertRequest) (*api.RecordResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.Insert(ctx, userID, req.Table, req.Scope, req.Body)
	if err != nil {
		return nil, statusErr("insert", err)
	}
	s.publish(model.OpInsert, rec)
	return &api.RecordResponse{Record: rec}, nil
}

// Update merges a patch into an owned record.
func (s *Server) Update(ctx context.Context, req *api.UpdateRequest) (*api.RecordResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.Update(ctx, userID, req.Table, req.ID, req.Patch)
	if err != nil {
		return nil, statusErr("update", err)
	}
	s.publish(model.OpUpdate, rec)
	return &api.RecordResponse{Record: rec}, nil
}

// Delete removes an owned record.
func (s *Server) Delete(ctx context.Context, req *api.DeleteRequest) (*api.Empty, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.Delete(ctx, userID, req.Table, req.ID)
	if err != nil {
		return nil, statusErr("delete", err)
	}
	s.publish(model.OpDelete, rec)
	return &api.Empty{}, nil
}

// --- Actions ---

// CreatePhoto stores a photo in an accessible album.
func (s *Server) CreatePhoto(ctx context.Context, req *api.CreatePhotoRequest) (*api.RecordResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.actions.CreatePhoto(ctx, userID, req.Photo)
	if err != nil {
		return nil, statusErr("create photo", err)
	}
	s.publish(model.OpInsert, rec)
	return &api.RecordResponse{Record: rec}, nil
}

// UpdateAlbumCover sets an album cover.
func (s *Server) UpdateAlbumCover(ctx context.Context, req *api.UpdateAlbumCoverRequest) (*api.Empty, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.actions.UpdateAlbumCover(ctx, userID, req.AlbumID, req.URI)
	if err != nil {
		return nil, statusErr("update cover", err)
	}
	s.publish(model.OpUpdate, rec)
	return &api.Empty{}, nil
}

// ExportAlbum returns a download link for an album manifest.
func (s *Server) ExportAlbum(ctx context.Context, req *api.ExportAlbumRequest) (*api.ExportAlbumResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	link, err := s.actions.ExportAlbum(ctx, userID, req.AlbumID)
	if err != nil {
		return nil, statusErr("export", err)
	}
	return &api.ExportAlbumResponse{URL: link}, nil
}

// JoinGroup enrols the caller by invite code.
func (s *Server) JoinGroup(ctx context.Context, req *api.JoinGroupRequest) (*api.JoinGroupResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.InviteCode) == "" {
		return nil, status.Error(codes.InvalidArgument, "empty invite code")
	}
	groupID, err := s.actions.JoinGroup(ctx, userID, req.InviteCode, peerAddr(ctx))
	if err != nil {
		return nil, statusErr("join group", err)
	}
	if s.hub != nil {
		s.hub.Publish(model.ChangeEvent{
			Table: model.TableGroups, ScopeID: groupID, Op: model.OpUpdate, ID: groupID, At: time.Now().UTC(),
		})
	}
	return &api.JoinGroupResponse{GroupID: groupID}, nil
}

// Sync stores the caller's full snapshot.
func (s *Server) Sync(ctx context.Context, req *api.SyncRequest) (*api.SyncResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	at, err := s.actions.Sync(ctx, userID, req.Payload)
	if err != nil {
		return nil, statusErr("sync", err)
	}
	return &api.SyncResponse{SyncedAt: at}, nil
}

// --- Realtime ---

// Watch streams change events for a scope until the client goes away.
// A nil scope id watches records owned by the caller.
func (s *Server) Watch(req *api.WatchRequest, stream api.WatchServer) error {
	ctx := stream.Context()
	userID, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if s.hub == nil {
		return status.Error(codes.Unimplemented, "watch disabled")
	}
	if req.Table != "" {
		if _, err := model.ParseTable(string(req.Table)); err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
	}
	scope := req.ScopeID
	if scope == uuid.Nil {
		scope = userID
	}

	events, cancel := s.hub.Subscribe(scope)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if req.Table != "" && ev.Table != req.Table {
				continue
			}
			if err := stream.Send(&ev); err != nil {
				return err
			}
		}
	}
}
