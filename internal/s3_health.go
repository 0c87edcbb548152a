package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ValidateS3ArtifactConfig rejects publishing settings that cannot work.
func ValidateS3ArtifactConfig(cfg S3ArtifactConfig) error {
	switch {
	case cfg.Bucket == "":
		return errors.New("s3: bucket is required")
	case (cfg.AccessKey == "") != (cfg.SecretKey == ""):
		return errors.New("s3: access key and secret key must be set together")
	}
	return nil
}

// S3HealthCheck sends a HEAD for the bucket to a custom endpoint such as MinIO or RustFS.
// Any answer below 500 counts as reachable, including auth failures and a missing bucket.
// Without a custom endpoint there is nothing to check.
func S3HealthCheck(ctx context.Context, cfg S3ArtifactConfig, timeout time.Duration) error {
	if cfg.Endpoint == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	target, err := bucketURL(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return fmt.Errorf("s3: build health request for %s: %w", target, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("s3: endpoint %s unreachable: %w", cfg.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("s3: endpoint %s answered %d", cfg.Endpoint, resp.StatusCode)
	}
	return nil
}

func bucketURL(cfg S3ArtifactConfig) (string, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("s3: invalid endpoint %q", cfg.Endpoint)
	}
	if cfg.Bucket != "" {
		u = u.JoinPath(cfg.Bucket)
	}
	return u.String(), nil
}
