// Package objstore stores export artefacts in S3-compatible object storage.
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store puts objects and hands out time-limited download links.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	PresignGet(ctx context.Context, name string, ttl time.Duration) (string, error)
}

// Config locates a bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string // empty = discovered from the server
	UseSSL    bool
}

// Minio implements Store on minio-go.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio connects and creates the bucket when it does not exist yet.
func NewMinio(ctx context.Context, cfg Config) (*Minio, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := cl.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket exists: %w", err)
	}
	if !exists {
		if err := cl.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket: %w", err)
		}
	}
	return &Minio{client: cl, bucket: cfg.Bucket}, nil
}

// Put uploads data under name.
func (m *Minio) Put(ctx context.Context, name string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

// PresignGet returns a download URL valid for ttl.
func (m *Minio) PresignGet(ctx context.Context, name string, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, name, ttl, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
