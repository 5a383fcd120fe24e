package minio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"fnolguard/internal/config"
	"fnolguard/internal/domain"
	"fnolguard/internal/port"
	"fnolguard/internal/storage"
)

type minioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore creates a MinIO-backed BlobStore and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg *config.StorageConfig) (port.BlobStore, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &minioStore{client: cli, bucket: cfg.Bucket}, nil
}

func (s *minioStore) Put(ctx context.Context, input port.PutInput) (*port.PutOutput, error) {
	loc := storage.Location{Bucket: s.bucket, Key: input.Key}
	size := input.Size
	if size <= 0 {
		size = -1
	}
	info, err := s.client.PutObject(ctx, s.bucket, input.Key, input.Body, size, minio.PutObjectOptions{
		ContentType: input.ContentType,
	})
	if err != nil {
		return nil, &domain.StorageError{Op: "put", Location: loc.String(), Err: err}
	}
	return &port.PutOutput{Location: loc.String(), ETag: info.ETag}, nil
}

func (s *minioStore) Get(ctx context.Context, location string) ([]byte, error) {
	loc, err := storage.ParseLocation(location)
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Location: location, Err: err}
	}
	obj, err := s.client.GetObject(ctx, loc.Bucket, loc.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Location: location, Err: err}
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Location: location, Err: err}
	}
	return data, nil
}

func (s *minioStore) PresignedURL(ctx context.Context, location string, expiry time.Duration) (string, error) {
	loc, err := storage.ParseLocation(location)
	if err != nil {
		return "", &domain.StorageError{Op: "presign", Location: location, Err: err}
	}
	u, err := s.client.PresignedGetObject(ctx, loc.Bucket, loc.Key, expiry, nil)
	if err != nil {
		return "", &domain.StorageError{Op: "presign", Location: location, Err: err}
	}
	return u.String(), nil
}

func (s *minioStore) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return &domain.StorageError{Op: "ping", Location: s.bucket, Err: err}
	}
	if !ok {
		return &domain.StorageError{Op: "ping", Location: s.bucket, Err: fmt.Errorf("bucket does not exist")}
	}
	return nil
}
