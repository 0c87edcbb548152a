package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lychee-technology/kindgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileArtifactStore_PutCreatesAndOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "models")
	store := NewFileArtifactStore(dir)
	assert.Equal(t, dir, store.Location())

	location, err := store.Put(context.Background(), "test_model.go", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test_model.go"), location)

	_, err = store.Put(context.Background(), "test_model.go", []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestFileArtifactStore_RejectsNestedNames(t *testing.T) {
	store := NewFileArtifactStore(t.TempDir())
	for _, name := range []string{"", "..", "../escape.go", "sub/file.go"} {
		_, err := store.Put(context.Background(), name, []byte("x"))
		assert.True(t, kindgen.IsInputError(err), name)
	}
}

func TestFileArtifactStore_HonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileArtifactStore(t.TempDir()).Put(ctx, "a.go", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri    string
		bucket string
		prefix string
		ok     bool
	}{
		{uri: "s3://artifacts/models/", bucket: "artifacts", prefix: "models", ok: true},
		{uri: "s3://artifacts", bucket: "artifacts", prefix: "", ok: true},
		{uri: "s3://artifacts/a/b", bucket: "artifacts", prefix: "a/b", ok: true},
		{uri: "s3:///models", ok: false},
		{uri: "rest/models", ok: false},
	}
	for _, tt := range tests {
		bucket, prefix, ok := ParseS3URI(tt.uri)
		assert.Equal(t, tt.ok, ok, tt.uri)
		assert.Equal(t, tt.bucket, bucket, tt.uri)
		assert.Equal(t, tt.prefix, prefix, tt.uri)
	}
}
