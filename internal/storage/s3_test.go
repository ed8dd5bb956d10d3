package storage

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Storage_Name(t *testing.T) {
	s3, err := NewS3Storage(S3Config{Endpoint: "localhost:9000", Region: "us-east-1"})
	require.NoError(t, err)

	assert.Equal(t, "s3", s3.Name())
}

func TestS3Storage_ObjectKey(t *testing.T) {
	testCases := []struct {
		name     string
		prefix   string
		key      string
		expected string
	}{
		{"no prefix", "", "manifest.json", "manifest.json"},
		{"prefix", "builds/web", "manifest.json", "builds/web/manifest.json"},
		{"prefix with slashes", "/builds/", "assets/manifest.json", "builds/assets/manifest.json"},
		{"key escaping prefix", "builds", "../manifest.json", "builds/manifest.json"},
		{"leading slash key", "", "/manifest.json", "manifest.json"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s3, err := NewS3Storage(S3Config{Endpoint: "localhost:9000", Prefix: tc.prefix})
			require.NoError(t, err)

			assert.Equal(t, tc.expected, s3.objectKey(tc.key))
		})
	}
}

// setupS3Storage connects to the S3-compatible endpoint named by
// ASSETMANIFEST_TEST_S3_ENDPOINT, e.g. a local MinIO started with
// docker run -p 9000:9000 minio/minio server /data
func setupS3Storage(t *testing.T) (*S3Storage, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping S3 tests in short mode")
	}
	endpoint := os.Getenv("ASSETMANIFEST_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("Skipping S3 tests: ASSETMANIFEST_TEST_S3_ENDPOINT not set")
	}

	s3, err := NewS3Storage(S3Config{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Region:    "us-east-1",
		Prefix:    "test",
	})
	require.NoError(t, err)

	ctx := context.Background()
	if err := s3.Health(ctx); err != nil {
		t.Skipf("Skipping S3 tests: %v", err)
	}

	bucket := "assetmanifest-test"
	exists, err := s3.client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, s3.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: "us-east-1"}))
	}

	return s3, bucket
}

func TestS3Storage_UploadDownloadDelete(t *testing.T) {
	s3, bucket := setupS3Storage(t)
	ctx := context.Background()

	content := `{"main.js": "/main.js"}`
	_, err := s3.Upload(ctx, bucket, "manifest.json", strings.NewReader(content), int64(len(content)), &UploadOptions{
		ContentType: "application/json",
	})
	require.NoError(t, err)

	exists, err := s3.Exists(ctx, bucket, "manifest.json")
	require.NoError(t, err)
	assert.True(t, exists)

	reader, obj, err := s3.Download(ctx, bucket, "manifest.json")
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.Equal(t, "application/json", obj.ContentType)

	require.NoError(t, s3.Delete(ctx, bucket, "manifest.json"))

	exists, err = s3.Exists(ctx, bucket, "manifest.json")
	require.NoError(t, err)
	assert.False(t, exists)
}
