package factory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/lychee-technology/kindgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *kindgen.Config {
	t.Helper()
	dir := t.TempDir()
	config := kindgen.DefaultConfig()
	config.Storage.Backend = kindgen.StorageBackendMemory
	config.Schema.MainSchemaPath = filepath.Join(dir, "schemas", "main_schema.json")
	config.Schema.KindSchemaDir = filepath.Join(dir, "schemas", "kinds")
	config.Generation.ModelsDir = filepath.Join(dir, "models")
	config.Generation.RoutesDir = filepath.Join(dir, "routes")
	return config
}

func writeKindSchema(t *testing.T, config *kindgen.Config, name, title string) string {
	t.Helper()
	raw := kindgen.MainSchema().Raw()
	raw["properties"].(map[string]any)["kind"].(map[string]any)["title"] = title
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(config.Schema.KindSchemaDir, 0o755))
	path := filepath.Join(config.Schema.KindSchemaDir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestModelsLocation(t *testing.T) {
	config := kindgen.DefaultConfig()
	assert.Equal(t, "rest/models", ModelsLocation(config))

	config.Artifacts.S3Bucket = "artifacts"
	assert.Equal(t, "s3://artifacts", ModelsLocation(config))

	config.Artifacts.S3Prefix = "kinds/models"
	assert.Equal(t, "s3://artifacts/kinds/models", ModelsLocation(config))
}

func TestNewArtifactStore(t *testing.T) {
	config := testConfig(t)

	store, err := NewArtifactStore(context.Background(), config, config.Generation.ModelsDir)
	require.NoError(t, err)
	assert.Equal(t, config.Generation.ModelsDir, store.Location())

	_, err = NewArtifactStore(context.Background(), config, "s3://")
	assert.Error(t, err)
}

func TestNewArtifactStore_ChecksCustomEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	config := testConfig(t)
	config.Artifacts.S3Endpoint = srv.URL
	config.Artifacts.S3UsePathStyle = true

	_, err := NewArtifactStore(context.Background(), config, "s3://artifacts/models")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "answered 503")
}

func TestNewGenerationPipeline_GeneratesIntoModelsDir(t *testing.T) {
	config := testConfig(t)
	schemaPath := writeKindSchema(t, config, "web.json", "web server")

	pipeline, err := NewGenerationPipeline(context.Background(), config, "")
	require.NoError(t, err)

	artifact, err := pipeline.Generate(context.Background(), schemaPath)
	require.NoError(t, err)
	assert.Equal(t, "WebServer", artifact.TypeName)
	assert.Equal(t, filepath.Join(config.Generation.ModelsDir, "webserver_model.go"), artifact.Location)
	assert.FileExists(t, config.Schema.MainSchemaPath)
}

func TestNewKindRegistry(t *testing.T) {
	config := testConfig(t)
	writeKindSchema(t, config, "test.json", "Test")

	registry, err := NewKindRegistry(context.Background(), config)
	require.NoError(t, err)
	def, ok := registry.Get("test")
	require.True(t, ok)
	assert.Equal(t, "Test", def.TypeName)
}

func TestNewRecordRepository(t *testing.T) {
	config := testConfig(t)

	repo, err := NewRecordRepository(context.Background(), config, nil)
	require.NoError(t, err)
	assert.NotNil(t, repo)

	config.Storage.Backend = kindgen.StorageBackendPostgres
	_, err = NewRecordRepository(context.Background(), config, nil)
	assert.Error(t, err, "postgres needs a pool")

	config.Storage.Backend = "sqlite"
	_, err = NewRecordRepository(context.Background(), config, nil)
	assert.Error(t, err)
}

func TestNewRecordService_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)
	repo, err := NewRecordRepository(ctx, config, nil)
	require.NoError(t, err)

	svc, err := NewRecordService(config, repo)
	require.NoError(t, err)

	id := uuid.New()
	record, err := svc.Create(ctx, &kindgen.CreateRecordRequest{
		ID: &id,
		Document: kindgen.Document{
			"kind":        "test",
			"name":        "test",
			"version":     "1.0.0",
			"description": "test",
			"configuration": map[string]any{
				"specification": map[string]any{},
				"settings":      map[string]any{},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, kindgen.StateNew, record.State)

	_, err = svc.Create(ctx, &kindgen.CreateRecordRequest{ID: &id, Document: record.Document})
	assert.True(t, kindgen.IsAlreadyExists(err))
}
