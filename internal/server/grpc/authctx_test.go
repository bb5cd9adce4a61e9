package grpcserver

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/and161185/snapshare/internal/api"
)

func makeJWT(t *testing.T, sub string, key []byte, method jwt.SigningMethod, iat time.Time, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(iat),
		NotBefore: jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
	}
	token := jwt.NewWithClaims(method, claims)
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func ctxWithAuth(token string) context.Context {
	md := metadata.New(map[string]string{
		"authorization": "Bearer " + token,
	})
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestWithUserID_And_UserIDFromCtx(t *testing.T) {
	t.Parallel()

	if id, ok := UserIDFromCtx(context.Background()); ok || id != uuid.Nil {
		t.Fatalf("expected no user id in empty ctx")
	}

	want := uuid.Must(uuid.NewV7())
	ctx := WithUserID(context.Background(), want)

	got, ok := UserIDFromCtx(ctx)
	if !ok {
		t.Fatalf("expected user id in ctx")
	}
	if got != want {
		t.Fatalf("mismatch: got %s, want %s", got, want)
	}

	bad := context.WithValue(context.Background(), userIDKey, "not-uuid")
	if id, ok := UserIDFromCtx(bad); ok || id != uuid.Nil {
		t.Fatalf("expected miss on wrong typed value")
	}
}

func Test_bearerTokenFromMD_OkAndErrors(t *testing.T) {
	t.Parallel()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc.def.ghi"))
	got, err := bearerTokenFromMD(ctx)
	if err != nil || got != "abc.def.ghi" {
		t.Fatalf("ok: got=%q err=%v", got, err)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic foo"))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on non-bearer")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer   "))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on empty token")
	}

	if _, err := bearerTokenFromMD(context.Background()); err == nil {
		t.Fatalf("want error on no metadata")
	}
}

func Test_userIDFromCtx(t *testing.T) {
	t.Parallel()

	s := &Server{signKey: []byte("secret")}
	sub := uuid.Must(uuid.NewV7()).String()
	now := time.Now().UTC()

	cases := []struct {
		name    string
		ctx     context.Context
		wantErr bool
	}{
		{"valid", ctxWithAuth(makeJWT(t, sub, s.signKey, jwt.SigningMethodHS256, now.Add(-time.Minute), 10*time.Minute)), false},
		{"no metadata", context.Background(), true},
		{"expired", ctxWithAuth(makeJWT(t, sub, s.signKey, jwt.SigningMethodHS256, now.Add(-2*time.Hour), -time.Hour)), true},
		{"bad subject", ctxWithAuth(makeJWT(t, "not-a-uuid", s.signKey, jwt.SigningMethodHS256, now, time.Hour)), true},
		{"wrong alg", ctxWithAuth(makeJWT(t, sub, s.signKey, jwt.SigningMethodHS384, now, time.Hour)), true},
		{"wrong key", ctxWithAuth(makeJWT(t, sub, []byte("other"), jwt.SigningMethodHS256, now, time.Hour)), true},
		{"garbage", ctxWithAuth("this-is-not-a-jwt"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := s.userIDFromCtx(tc.ctx)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("userIDFromCtx: %v", err)
			}
			if id.String() != sub {
				t.Fatalf("uuid mismatch: %s vs %s", id, sub)
			}
		})
	}
}

func TestAuthUnary(t *testing.T) {
	t.Parallel()

	s := &Server{signKey: []byte("secret")}
	ic := s.AuthUnary()
	user := uuid.Must(uuid.NewV7())

	var seen uuid.UUID
	h := func(ctx context.Context, _ any) (any, error) {
		seen, _ = UserIDFromCtx(ctx)
		return "ok", nil
	}

	login := &grpc.UnaryServerInfo{FullMethod: "/" + api.ServiceName + "/Login"}
	if _, err := ic(context.Background(), nil, login, h); err != nil {
		t.Fatalf("public method must pass without token: %v", err)
	}

	list := &grpc.UnaryServerInfo{FullMethod: "/" + api.ServiceName + "/List"}
	_, err := ic(context.Background(), nil, list, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", err)
	}

	ctx := ctxWithAuth(makeJWT(t, user.String(), s.signKey, jwt.SigningMethodHS256, time.Now().UTC(), time.Hour))
	if _, err := ic(ctx, nil, list, h); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if seen != user {
		t.Fatalf("handler saw %s, want %s", seen, user)
	}
}

type ctxStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (c *ctxStream) Context() context.Context { return c.ctx }

func TestAuthStream(t *testing.T) {
	t.Parallel()

	s := &Server{signKey: []byte("secret")}
	ic := s.AuthStream()
	info := &grpc.StreamServerInfo{FullMethod: "/" + api.ServiceName + "/Watch", IsServerStream: true}
	user := uuid.Must(uuid.NewV7())

	var seen uuid.UUID
	h := func(_ any, ss grpc.ServerStream) error {
		seen, _ = UserIDFromCtx(ss.Context())
		return nil
	}

	err := ic(nil, &ctxStream{ctx: context.Background()}, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", err)
	}

	ctx := ctxWithAuth(makeJWT(t, user.String(), s.signKey, jwt.SigningMethodHS256, time.Now().UTC(), time.Hour))
	if err := ic(nil, &ctxStream{ctx: ctx}, info, h); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if seen != user {
		t.Fatalf("handler saw %s, want %s", seen, user)
	}
}
