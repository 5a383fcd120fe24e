package s3_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnolguard/internal/config"
	"fnolguard/internal/domain"
	"fnolguard/internal/port"
	s3storage "fnolguard/internal/storage/s3"
)

func newTestStore(t *testing.T) port.BlobStore {
	t.Helper()
	store, err := s3storage.NewS3Client(&config.StorageConfig{
		Region:    "us-east-1",
		Bucket:    "claims",
		Endpoint:  "http://localhost:9000",
		AccessKey: "test-access",
		SecretKey: "test-secret",
	})
	require.NoError(t, err)
	return store
}

func TestS3Client_PresignedURL(t *testing.T) {
	store := newTestStore(t)

	u, err := store.PresignedURL(context.Background(), "s3://claims/fnol_uploads/abc_photo.jpg", 10*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "http://localhost:9000/claims/fnol_uploads/abc_photo.jpg")
	assert.Contains(t, u, "X-Amz-Expires=600")
	assert.Contains(t, u, "X-Amz-Credential=test-access")
}

func TestS3Client_InvalidLocation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.PresignedURL(context.Background(), "claims/photo.jpg", time.Minute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))
	assert.True(t, errors.Is(err, domain.ErrInvalidLocation))

	_, err = store.Get(context.Background(), "s3://claims")
	require.Error(t, err)
	var storageErr *domain.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "get", storageErr.Op)
}
