package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lychee-technology/kindgen"
)

// S3URIPrefix marks an output location that is published to S3 instead of disk.
const S3URIPrefix = "s3://"

// ParseS3URI splits s3://bucket/prefix into its bucket and key prefix.
func ParseS3URI(uri string) (bucket, prefix string, ok bool) {
	if !strings.HasPrefix(uri, S3URIPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(uri, S3URIPrefix)
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, strings.Trim(prefix, "/"), true
}

type fileArtifactStore struct {
	dir string
}

// NewFileArtifactStore writes artifacts under dir, creating it on first write.
func NewFileArtifactStore(dir string) kindgen.ArtifactStore {
	return &fileArtifactStore{dir: dir}
}

func (s *fileArtifactStore) Location() string {
	return s.dir
}

// Put replaces name atomically: data goes to a temp file in the same directory which is
// then renamed over the target, so readers see the old or the new content only.
func (s *fileArtifactStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", kindgen.NewInputError(kindgen.ErrCodeInvalidPath, name, "artifact name must be a plain file name", nil)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", kindgen.NewInputError(kindgen.ErrCodeInvalidPath, s.dir, "cannot create output directory", err)
	}

	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", target, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", target, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("rename into %s: %w", target, err)
	}
	return target, nil
}
