package api

import (
	"context"

	"google.golang.org/grpc"

	"github.com/and161185/snapshare/internal/model"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "snapshare.v1.SnapShare"

// SnapShareServer is implemented by the backend.
type SnapShareServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	Insert(context.Context, *InsertRequest) (*RecordResponse, error)
	Update(context.Context, *UpdateRequest) (*RecordResponse, error)
	Delete(context.Context, *DeleteRequest) (*Empty, error)
	CreatePhoto(context.Context, *CreatePhotoRequest) (*RecordResponse, error)
	UpdateAlbumCover(context.Context, *UpdateAlbumCoverRequest) (*Empty, error)
	ExportAlbum(context.Context, *ExportAlbumRequest) (*ExportAlbumResponse, error)
	JoinGroup(context.Context, *JoinGroupRequest) (*JoinGroupResponse, error)
	Sync(context.Context, *SyncRequest) (*SyncResponse, error)
	Watch(*WatchRequest, WatchServer) error
}

// WatchServer is the server side of the Watch stream.
type WatchServer interface {
	Send(*model.ChangeEvent) error
	grpc.ServerStream
}

// RegisterSnapShareServer registers srv on s.
func RegisterSnapShareServer(s grpc.ServiceRegistrar, srv SnapShareServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// unary builds a MethodDesc that decodes Req and dispatches through the interceptor chain.
func unary[Req, Resp any](name string, call func(SnapShareServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if ic == nil {
				return call(srv.(SnapShareServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SnapShareServer), ctx, req.(*Req))
			}
			return ic(ctx, in, info, handler)
		},
	}
}

type watchServer struct{ grpc.ServerStream }

func (w *watchServer) Send(ev *model.ChangeEvent) error { return w.ServerStream.SendMsg(ev) }

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SnapShareServer).Watch(in, &watchServer{stream})
}

// ServiceDesc describes the SnapShare service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SnapShareServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", SnapShareServer.Register),
		unary("Login", SnapShareServer.Login),
		unary("List", SnapShareServer.List),
		unary("Insert", SnapShareServer.Insert),
		unary("Update", SnapShareServer.Update),
		unary("Delete", SnapShareServer.Delete),
		unary("CreatePhoto", SnapShareServer.CreatePhoto),
		unary("UpdateAlbumCover", SnapShareServer.UpdateAlbumCover),
		unary("ExportAlbum", SnapShareServer.ExportAlbum),
		unary("JoinGroup", SnapShareServer.JoinGroup),
		unary("Sync", SnapShareServer.Sync),
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "snapshare/v1/snapshare.json",
}
