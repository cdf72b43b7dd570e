package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/set-night/turbostart/internal/config"
)

// Minio stores objects in any S3-compatible bucket, Cloudflare R2 included.
type Minio struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinio(cfg config.ObjectStorage) (*Minio, error) {
	endpoint := cfg.ResolvedEndpoint()
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.Secure,
		Region: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	baseURL := strings.TrimRight(cfg.PublicURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.Secure {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Bucket)
	}

	slog.Info("object storage configured", "endpoint", endpoint, "bucket", cfg.Bucket)
	return &Minio{client: client, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

// New returns a Minio store when credentials are configured and Disabled
// otherwise.
func New(cfg config.ObjectStorage) (ObjectStore, error) {
	if !cfg.Enabled() {
		return Disabled{}, nil
	}
	return NewMinio(cfg)
}

func (m *Minio) URL(key string) string {
	return m.baseURL + "/" + strings.TrimLeft(key, "/")
}

func (m *Minio) Put(ctx context.Context, key string, data []byte, contentType string) (string, bool) {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		slog.Error("upload object", "error", err, "bucket", m.bucket, "key", key)
		return "", false
	}
	return m.URL(key), true
}

func (m *Minio) Exists(ctx context.Context, key string) bool {
	_, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		slog.Warn("stat object", "error", err, "bucket", m.bucket, "key", key)
	}
	return false
}
