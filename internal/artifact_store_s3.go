package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/kindgen"
	"go.uber.org/zap"
)

// S3ArtifactConfig configures publishing generated sources to a bucket.
type S3ArtifactConfig struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	// AccessKey and SecretKey are optional; the default credential chain is used when empty.
	AccessKey string
	SecretKey string
}

type s3ArtifactStore struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string

	bucketOnce sync.Once
	bucketErr  error
}

// NewS3ArtifactStore builds an S3-backed artifact store. The bucket is created on first
// write when it does not exist.
func NewS3ArtifactStore(ctx context.Context, cfg S3ArtifactConfig) (kindgen.ArtifactStore, error) {
	if err := ValidateS3ArtifactConfig(cfg); err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &s3ArtifactStore{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
	}, nil
}

func (s *s3ArtifactStore) Location() string {
	if s.prefix == "" {
		return S3URIPrefix + s.bucket
	}
	return S3URIPrefix + s.bucket + "/" + s.prefix
}

func (s *s3ArtifactStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	s.bucketOnce.Do(func() {
		s.bucketErr = s.ensureBucket(ctx)
	})
	if s.bucketErr != nil {
		return "", s.bucketErr
	}

	key := path.Join(s.prefix, name)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/x-go; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}

	location := S3URIPrefix + s.bucket + "/" + key
	zap.S().Debugw("uploaded artifact", "location", location, "bytes", len(data))
	return location, nil
}

func (s *s3ArtifactStore) ensureBucket(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		return nil
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			code := apiErr.ErrorCode()
			if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
				return nil
			}
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	zap.S().Infow("created artifact bucket", "bucket", s.bucket)
	return nil
}
