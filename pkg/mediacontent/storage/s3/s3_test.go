package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_Configuration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("StaticCredentials", func(t *testing.T) {
		dir, err := New(Config{
			Bucket:          "media",
			Prefix:          "/pub/media/",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			Endpoint:        "http://localhost:9000",
			UsePathStyle:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "s3://media/pub/media", dir.AbsolutePath())
	})
}

func TestDirectory_RelativePath(t *testing.T) {
	dir := NewWithClient(nil, "media", "pub/media")

	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"s3://media/pub/media/wysiwyg/a.png", "wysiwyg/a.png", false},
		{"s3://media/pub/media", "", false},
		{"s3://media/pub/media/", "", false},
		{"s3://media/pub/mediafiles/a.png", "", true},
		{"s3://other/pub/media/a.png", "", true},
		{"s3://media/pub/media/../secret.png", "", true},
		{"/pub/media/a.png", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := dir.RelativePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	root := NewWithClient(nil, "media", "")
	assert.Equal(t, "s3://media", root.AbsolutePath())
	assert.Equal(t, "a.png", root.key("a.png"))
	assert.Equal(t, "pub/media/a.png", dir.key("a.png"))
	assert.Equal(t, "s3://media/pub/media/a.png", dir.pathForKey("pub/media/a.png"))
}

func TestDirectory_InvalidOpenPath(t *testing.T) {
	dir := NewWithClient(nil, "media", "")
	_, err := dir.Open(context.Background(), "../a.png")
	assert.Error(t, err)
	err = dir.Upload(context.Background(), "/abs.png", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(fmt.Errorf("wrapped: %w", &smithy.GenericAPIError{Code: "NotFound"})))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
}

// TestDirectory_Integration requires a running MinIO instance or S3 credentials
func TestDirectory_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	endpoint := os.Getenv("AWS_S3_ENDPOINT")
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	bucket := os.Getenv("AWS_S3_BUCKET")
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		t.Skip("Skipping integration test: S3/MinIO environment variables not set")
	}

	prefix := fmt.Sprintf("test/media/%d", time.Now().UnixNano())
	dir, err := New(Config{
		Bucket:                 bucket,
		Prefix:                 prefix,
		AccessKeyID:            accessKey,
		SecretAccessKey:        secretKey,
		Endpoint:               endpoint,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, dir.Upload(ctx, "wysiwyg/a.png", bytes.NewReader([]byte("a"))))
	require.NoError(t, dir.Upload(ctx, "b.gif", bytes.NewReader([]byte("bb"))))

	var rels []string
	for entry, err := range dir.Walk(ctx, dir.AbsolutePath()) {
		require.NoError(t, err)
		rel, err := dir.RelativePath(entry.Path)
		require.NoError(t, err)
		rels = append(rels, rel)
	}
	assert.ElementsMatch(t, []string{"wysiwyg/a.png", "b.gif"}, rels)

	rc, err := dir.Open(ctx, "b.gif")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "bb", string(data))

	_, err = dir.Open(ctx, "missing.png")
	assert.ErrorIs(t, err, iofs.ErrNotExist)
}
