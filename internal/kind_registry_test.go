package internal

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/lychee-technology/kindgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistryPipeline(t *testing.T, dir string) kindgen.GenerationPipeline {
	t.Helper()
	return NewGenerationPipeline(
		NewMainSchemaStore(filepath.Join(dir, "main_schema.json")),
		NewSchemaChecker(),
		NewModelGenerator("models"),
		NewFileArtifactStore(filepath.Join(dir, "models")),
	)
}

func kindSchemaJSON(t *testing.T, title string) string {
	t.Helper()
	raw := testKindSchemaRaw()
	propertyOf(raw, kindgen.FieldKind)["title"] = title
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	return string(data)
}

func TestFileKindRegistry_IndexesByLowercaseKind(t *testing.T) {
	dir := t.TempDir()
	kindsDir := filepath.Join(dir, "kinds")
	writeTestFile(t, kindsDir, "web.json", kindSchemaJSON(t, "web server"))
	writeTestFile(t, kindsDir, "db.yaml", kindSchemaJSON(t, "Database"))
	writeTestFile(t, kindsDir, "notes.txt", "ignored")

	registry, err := NewFileKindRegistry(context.Background(), newRegistryPipeline(t, dir), kindsDir)
	require.NoError(t, err)

	defs := registry.List()
	require.Len(t, defs, 2)
	assert.Equal(t, "database", defs[0].Kind)
	assert.Equal(t, "webserver", defs[1].Kind)

	def, ok := registry.Get("WebServer")
	require.True(t, ok)
	assert.Equal(t, "WebServer", def.TypeName)
	assert.Equal(t, filepath.Join(kindsDir, "web.json"), def.SourcePath)
	title, _ := def.Schema.Title()
	assert.Equal(t, "WebServer", title)

	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestFileKindRegistry_RejectsIncompatibleSchema(t *testing.T) {
	dir := t.TempDir()
	kindsDir := filepath.Join(dir, "kinds")
	raw := testKindSchemaRaw()
	raw["additionalProperties"] = true
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	writeTestFile(t, kindsDir, "test.json", string(data))

	_, err = NewFileKindRegistry(context.Background(), newRegistryPipeline(t, dir), kindsDir)
	require.Error(t, err)
	assert.True(t, kindgen.IsCompatibilityError(err))
}

func TestFileKindRegistry_RejectsDuplicateKinds(t *testing.T) {
	dir := t.TempDir()
	kindsDir := filepath.Join(dir, "kinds")
	writeTestFile(t, kindsDir, "a.json", kindSchemaJSON(t, "Test"))
	writeTestFile(t, kindsDir, "b.json", kindSchemaJSON(t, "test"))

	_, err := NewFileKindRegistry(context.Background(), newRegistryPipeline(t, dir), kindsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `kind "test" is defined by both`)
}

func TestFileKindRegistry_MissingDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileKindRegistry(context.Background(), newRegistryPipeline(t, dir), filepath.Join(dir, "absent"))
	require.Error(t, err)
}
