package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"reelforge/internal/config"
	"reelforge/internal/domain/ports/adapter"
)

var (
	_ adapter.ObjectStorage = (*MinioStorage)(nil)

	tracer = otel.Tracer("storage")
)

// bucketClient is the part of *minio.Client the storage uses.
type bucketClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioStorage uploads rendered videos to an S3-compatible bucket.
type MinioStorage struct {
	client   bucketClient
	endpoint string
	bucket   string
	secure   bool

	mu      sync.Mutex
	ensured bool
}

func NewMinioStorage(cfg config.StorageConfig) (*MinioStorage, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStorage{client: client, endpoint: cfg.Endpoint, bucket: cfg.Bucket, secure: cfg.UseSSL}, nil
}

// EnsureBucket creates the bucket if it doesn't exist. Only success is
// remembered; a failed check runs again on the next call.
func (s *MinioStorage) EnsureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	s.ensured = true
	return nil
}

func (s *MinioStorage) ensureBucket(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "minio_ensure_bucket")
	defer span.End()
	span.SetAttributes(attribute.String("minio.bucket", s.bucket))

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// UploadFile streams the file at path to key and returns its object URL.
func (s *MinioStorage) UploadFile(ctx context.Context, key, path, contentType string) (string, error) {
	ctx, span := tracer.Start(ctx, "minio_upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("minio.bucket", s.bucket),
		attribute.String("minio.key", key),
	)

	if err := s.EnsureBucket(ctx); err != nil {
		span.RecordError(err)
		return "", err
	}

	info, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	span.SetAttributes(attribute.Int64("minio.size", info.Size))
	return ObjectURL(s.endpoint, s.bucket, key, s.secure), nil
}

func ObjectURL(endpoint, bucket, key string, secure bool) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, bucket, strings.TrimLeft(key, "/"))
}
