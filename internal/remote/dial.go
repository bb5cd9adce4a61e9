// Package remote adapts the SnapShare gRPC API to the client-side interfaces of
// appstate (named remote actions) and pagecache (table sources and change feeds).
package remote

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/and161185/snapshare/internal/errs"
)

// DialOptions selects transport security and the caller's access token.
type DialOptions struct {
	Addr     string
	CACert   string // PEM file; empty uses system roots
	Insecure bool   // skip certificate verification
	// Plaintext disables TLS entirely. Local development only: the bearer token still
	// goes out with every call, in cleartext.
	Plaintext bool
	Token     string
}

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

// tokenCreds attaches the access token to every call. Over TLS grpc refuses to send it
// on an insecure channel; with Plaintext the requirement is lifted.
func tokenCreds(o DialOptions) credentials.PerRPCCredentials {
	if o.Token == "" {
		return nil
	}
	return bearerCreds{token: o.Token, secure: !o.Plaintext}
}

func loadTLS(caPath string, skipVerify bool) (credentials.TransportCredentials, error) {
	if skipVerify {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

// Dial opens a client connection. Extra options are appended, e.g. a bufconn dialer in tests.
func Dial(o DialOptions, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	var opts []grpc.DialOption
	if o.Plaintext {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		creds, err := loadTLS(o.CACert, o.Insecure)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.WithTransportCredentials(creds))
	}
	if creds := tokenCreds(o); creds != nil {
		opts = append(opts, grpc.WithPerRPCCredentials(creds))
	}
	opts = append(opts, extra...)
	cc, err := grpc.NewClient(o.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", o.Addr, err)
	}
	return cc, nil
}

// fromStatus maps gRPC status codes back to domain sentinels; other errors pass through.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.InvalidArgument:
		sentinel = errs.ErrValidation
	case codes.NotFound:
		sentinel = errs.ErrNotFound
	case codes.Unauthenticated:
		sentinel = errs.ErrUnauthorized
	case codes.PermissionDenied:
		sentinel = errs.ErrForbidden
	case codes.ResourceExhausted:
		sentinel = errs.ErrRateLimited
	case codes.AlreadyExists:
		sentinel = errs.ErrAlreadyExists
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		return err
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}
