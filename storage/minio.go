package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/picvault/picvault-service/config"
)

// Minio implements ColdStore against an S3-compatible backend. It is safe for
// concurrent use by multiple goroutines.
type Minio struct {
	client *minio.Client
	bucket string
}

var _ ColdStore = (*Minio)(nil)

// NewMinio validates connectivity and ensures the bucket exists, creating it
// when missing.
func NewMinio(cfg *config.EnvConfig) (*Minio, error) {
	if cfg.Minio.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.Minio.AccessKey == "" || cfg.Minio.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}

	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	m := &Minio{client: client, bucket: cfg.Minio.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Minio.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Minio.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return m, nil
}

func (m *Minio) Write(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

func (m *Minio) Read(ctx context.Context, path string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classify(err)
	}
	return data, nil
}

func (m *Minio) Exists(ctx context.Context, path string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, classify(err)
	}
	return true, nil
}

func (m *Minio) Remove(ctx context.Context, path string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps backend errors onto the cold-tier taxonomy so callers can
// decide between retry, surface, and not-found without knowing the SDK.
func classify(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Code)
	case "QuotaExceeded", "XMinioAdminBucketQuotaExceeded", "EntityTooLarge":
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, resp.Code)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
