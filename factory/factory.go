// Package factory builds the kindgen components from a kindgen.Config. It is the entry point
// for external projects and for the binaries under cmd/.
package factory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/kindgen"
	"github.com/lychee-technology/kindgen/internal"
)

const s3HealthTimeout = 5 * time.Second

// NewCompatibilityChecker returns the subset checker used by the generation pipeline.
func NewCompatibilityChecker() kindgen.CompatibilityChecker {
	return internal.NewSchemaChecker()
}

// NewArtifactStore returns a store writing under location. An s3://bucket/prefix location
// publishes to S3 using the bucket settings of config.Artifacts; anything else is a directory.
func NewArtifactStore(ctx context.Context, config *kindgen.Config, location string) (kindgen.ArtifactStore, error) {
	if !strings.HasPrefix(location, internal.S3URIPrefix) {
		return internal.NewFileArtifactStore(location), nil
	}
	bucket, prefix, ok := internal.ParseS3URI(location)
	if !ok {
		return nil, fmt.Errorf("invalid s3 location %q: bucket is required", location)
	}
	s3cfg := internal.S3ArtifactConfig{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       config.Artifacts.S3Region,
		Endpoint:     config.Artifacts.S3Endpoint,
		UsePathStyle: config.Artifacts.S3UsePathStyle,
	}
	if err := internal.S3HealthCheck(ctx, s3cfg, s3HealthTimeout); err != nil {
		return nil, err
	}
	return internal.NewS3ArtifactStore(ctx, s3cfg)
}

// ModelsLocation returns where generated models go: the configured S3 bucket when one is set,
// otherwise Generation.ModelsDir.
func ModelsLocation(config *kindgen.Config) string {
	if config.Artifacts.S3Bucket == "" {
		return config.Generation.ModelsDir
	}
	location := internal.S3URIPrefix + config.Artifacts.S3Bucket
	if config.Artifacts.S3Prefix != "" {
		location += "/" + config.Artifacts.S3Prefix
	}
	return location
}

// NewGenerationPipeline wires the model generation pipeline writing to outDir. An empty
// outDir uses ModelsLocation(config).
func NewGenerationPipeline(ctx context.Context, config *kindgen.Config, outDir string) (kindgen.GenerationPipeline, error) {
	if outDir == "" {
		outDir = ModelsLocation(config)
	}
	store, err := NewArtifactStore(ctx, config, outDir)
	if err != nil {
		return nil, err
	}
	return internal.NewGenerationPipeline(
		internal.NewMainSchemaStore(config.Schema.MainSchemaPath),
		NewCompatibilityChecker(),
		internal.NewModelGenerator(config.Generation.ModelPackage),
		store,
	), nil
}

// NewRouteGenerator returns the router generator writing to outDir (Generation.RoutesDir when empty).
func NewRouteGenerator(ctx context.Context, config *kindgen.Config, outDir string) (*internal.RouteGenerator, error) {
	if outDir == "" {
		outDir = config.Generation.RoutesDir
	}
	store, err := NewArtifactStore(ctx, config, outDir)
	if err != nil {
		return nil, err
	}
	return internal.NewRouteGenerator(internal.NewRouterGenerator(), store, config.Generation.RoutesPackage), nil
}

// NewKindRegistry loads the accepted kinds from Schema.KindSchemaDir.
func NewKindRegistry(ctx context.Context, config *kindgen.Config) (kindgen.KindRegistry, error) {
	pipeline := internal.NewGenerationPipeline(
		internal.NewMainSchemaStore(config.Schema.MainSchemaPath),
		NewCompatibilityChecker(),
		internal.NewModelGenerator(config.Generation.ModelPackage),
		internal.NewFileArtifactStore(config.Generation.ModelsDir),
	)
	return internal.NewFileKindRegistry(ctx, pipeline, config.Schema.KindSchemaDir)
}

// NewRecordRepository returns the repository for config.Storage.Backend. The postgres backend
// needs pool and creates its table when missing; the memory backend ignores pool.
func NewRecordRepository(ctx context.Context, config *kindgen.Config, pool *pgxpool.Pool) (kindgen.RecordRepository, error) {
	switch config.Storage.Backend {
	case kindgen.StorageBackendMemory:
		return internal.NewMemoryRecordRepository(), nil
	case kindgen.StorageBackendPostgres, "":
		if pool == nil {
			return nil, fmt.Errorf("postgres storage requires a connection pool")
		}
		repo := internal.NewPostgresRecordRepository(pool, config.Database.TableName)
		if err := repo.EnsureTable(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", config.Storage.Backend)
	}
}

// NewRecordService builds the record lifecycle over repo. Documents are validated against
// the main schema loaded (or bootstrapped) from Schema.MainSchemaPath.
//
// Usage:
//
//	config := kindgen.DefaultConfig()
//	repo, err := factory.NewRecordRepository(ctx, config, pool)
//	if err != nil {
//	    // handle error
//	}
//	svc, err := factory.NewRecordService(config, repo)
func NewRecordService(config *kindgen.Config, repo kindgen.RecordRepository) (kindgen.RecordService, error) {
	main, err := internal.NewMainSchemaStore(config.Schema.MainSchemaPath).LoadOrBootstrap()
	if err != nil {
		return nil, err
	}
	return internal.NewRecordService(repo, main), nil
}

// NewPostgresPool opens the connection pool described by config.Database.
func NewPostgresPool(ctx context.Context, config *kindgen.Config) (*pgxpool.Pool, error) {
	return internal.NewPostgresPool(ctx, config.Database)
}
