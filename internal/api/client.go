package api

import (
	"context"

	"google.golang.org/grpc"

	"github.com/and161185/snapshare/internal/model"
)

// Client is a typed SnapShare client. Every call uses the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c, "Register", in, opts)
}

func (c *Client) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c, "Login", in, opts)
}

func (c *Client) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c, "List", in, opts)
}

func (c *Client) Insert(ctx context.Context, in *InsertRequest, opts ...grpc.CallOption) (*RecordResponse, error) {
	return invoke[RecordResponse](ctx, c, "Insert", in, opts)
}

func (c *Client) Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*RecordResponse, error) {
	return invoke[RecordResponse](ctx, c, "Update", in, opts)
}

func (c *Client) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, "Delete", in, opts)
}

func (c *Client) CreatePhoto(ctx context.Context, in *CreatePhotoRequest, opts ...grpc.CallOption) (*RecordResponse, error) {
	return invoke[RecordResponse](ctx, c, "CreatePhoto", in, opts)
}

func (c *Client) UpdateAlbumCover(ctx context.Context, in *UpdateAlbumCoverRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, "UpdateAlbumCover", in, opts)
}

func (c *Client) ExportAlbum(ctx context.Context, in *ExportAlbumRequest, opts ...grpc.CallOption) (*ExportAlbumResponse, error) {
	return invoke[ExportAlbumResponse](ctx, c, "ExportAlbum", in, opts)
}

func (c *Client) JoinGroup(ctx context.Context, in *JoinGroupRequest, opts ...grpc.CallOption) (*JoinGroupResponse, error) {
	return invoke[JoinGroupResponse](ctx, c, "JoinGroup", in, opts)
}

func (c *Client) Sync(ctx context.Context, in *SyncRequest, opts ...grpc.CallOption) (*SyncResponse, error) {
	return invoke[SyncResponse](ctx, c, "Sync", in, opts)
}

// WatchClient receives change events until the stream ends.
type WatchClient interface {
	Recv() (*model.ChangeEvent, error)
	grpc.ClientStream
}

type watchClient struct{ grpc.ClientStream }

func (w *watchClient) Recv() (*model.ChangeEvent, error) {
	ev := new(model.ChangeEvent)
	if err := w.ClientStream.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Watch opens a server stream of change events.
func (c *Client) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (WatchClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("Watch"), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &watchClient{stream}, nil
}
