package objstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeS3 answers the bucket existence check and records uploads.
func fakeS3(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var puts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			puts = append(puts, r.URL.Path)
			w.Header().Set("ETag", `"abc"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			// bucket location lookup used by presigning
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &puts
}

func TestMinio_PutAndPresign(t *testing.T) {
	srv, puts := fakeS3(t)
	ctx := context.Background()

	m, err := NewMinio(ctx, Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "k",
		SecretKey: "s",
		Bucket:    "exports",
		Region:    "us-east-1",
	})
	require.NoError(t, err)

	require.NoError(t, m.Put(ctx, "u/a.json", []byte(`{}`), "application/json"))
	require.Equal(t, []string{"/exports/u/a.json"}, *puts)

	link, err := m.PresignGet(ctx, "u/a.json", time.Hour)
	require.NoError(t, err)
	require.Contains(t, link, "/exports/u/a.json")
	require.Contains(t, link, "X-Amz-Expires=3600")
}
