package internal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lychee-technology/kindgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	dir      string
	mainPath string
	outDir   string
	pipeline kindgen.GenerationPipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	dir := t.TempDir()
	f := &pipelineFixture{
		dir:      dir,
		mainPath: filepath.Join(dir, "schemas", "main_schema.json"),
		outDir:   filepath.Join(dir, "rest", "models"),
	}
	f.pipeline = NewGenerationPipeline(
		NewMainSchemaStore(f.mainPath),
		NewSchemaChecker(),
		NewModelGenerator("models"),
		NewFileArtifactStore(f.outDir),
	)
	return f
}

func (f *pipelineFixture) writeSchema(t *testing.T, name string, raw map[string]any) string {
	t.Helper()
	data, err := json.MarshalIndent(raw, "", "  ")
	require.NoError(t, err)
	return writeTestFile(t, f.dir, name, string(data))
}

func TestGenerationPipeline_GeneratesModel(t *testing.T) {
	f := newPipelineFixture(t)
	schemaPath := f.writeSchema(t, "test.json", testKindSchemaRaw())

	artifact, err := f.pipeline.Generate(context.Background(), schemaPath)
	require.NoError(t, err)

	assert.FileExists(t, f.mainPath, "main schema is bootstrapped on first use")
	assert.Equal(t, "Test", artifact.TypeName)
	assert.Equal(t, "test.json", artifact.SourceName)
	assert.Equal(t, filepath.Join(f.outDir, "test_model.go"), artifact.Location)

	data, err := os.ReadFile(artifact.Location)
	require.NoError(t, err)
	assert.Equal(t, artifact.Source, data)

	model := parseModelSource(t, data)
	assert.Contains(t, model.structs, "Test")
	assert.Contains(t, model.structs, "TestConfiguration")
}

func TestGenerationPipeline_RegenerationIsDeterministic(t *testing.T) {
	f := newPipelineFixture(t)
	raw := testKindSchemaRaw()
	schemaPath := f.writeSchema(t, "test.json", raw)

	first, err := f.pipeline.Generate(context.Background(), schemaPath)
	require.NoError(t, err)
	firstBytes, err := os.ReadFile(first.Location)
	require.NoError(t, err)

	second, err := f.pipeline.Generate(context.Background(), schemaPath)
	require.NoError(t, err)
	secondBytes, err := os.ReadFile(second.Location)
	require.NoError(t, err)
	assert.Equal(t, firstBytes, secondBytes)

	propertyOf(raw, kindgen.FieldName)["description"] = "Display name of the test record."
	f.writeSchema(t, "test.json", raw)

	third, err := f.pipeline.Generate(context.Background(), schemaPath)
	require.NoError(t, err)
	assert.Equal(t, first.Location, third.Location, "a changed schema overwrites in place")
	thirdBytes, err := os.ReadFile(third.Location)
	require.NoError(t, err)
	assert.NotEqual(t, firstBytes, thirdBytes)
	assert.Contains(t, string(thirdBytes), "// Display name of the test record.")
}

func TestGenerationPipeline_ReadsYAMLCandidates(t *testing.T) {
	f := newPipelineFixture(t)

	data, err := json.Marshal(testKindSchemaRaw())
	require.NoError(t, err)
	accepted := writeTestFile(t, f.dir, "test.yaml", string(data))
	artifact, err := f.pipeline.Generate(context.Background(), accepted)
	require.NoError(t, err)
	assert.Equal(t, "test.yaml", artifact.SourceName)

	// yamlKindSchema declares no version pattern.
	rejected := writeTestFile(t, f.dir, "nopattern.yaml", yamlKindSchema)
	_, err = f.pipeline.Generate(context.Background(), rejected)
	require.Error(t, err)

	var kindErr *kindgen.KindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, kindgen.ErrCodePatternMismatch, kindErr.Code)
	assert.Equal(t, rejected, kindErr.Path)
}

func TestGenerationPipeline_Gates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(raw map[string]any)
		code   string
	}{
		{
			name:   "incompatible schema",
			mutate: func(raw map[string]any) { raw["additionalProperties"] = true },
			code:   kindgen.ErrCodeAdditionalMismatch,
		},
		{
			name:   "malformed schema",
			mutate: func(raw map[string]any) { propertyOf(raw, kindgen.FieldKind)["maxLength"] = "long" },
			code:   kindgen.ErrCodeMetaSchemaFailed,
		},
		{
			name:   "kind without title",
			mutate: func(raw map[string]any) { delete(propertyOf(raw, kindgen.FieldKind), "title") },
			code:   kindgen.ErrCodeKindUndefined,
		},
		{
			name:   "kind title without usable characters",
			mutate: func(raw map[string]any) { propertyOf(raw, kindgen.FieldKind)["title"] = "***" },
			code:   kindgen.ErrCodeKindUndefined,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			raw := testKindSchemaRaw()
			tt.mutate(raw)
			schemaPath := f.writeSchema(t, "test.json", raw)

			artifact, err := f.pipeline.Generate(context.Background(), schemaPath)
			require.Error(t, err)
			assert.Nil(t, artifact)

			var kindErr *kindgen.KindError
			require.ErrorAs(t, err, &kindErr)
			assert.Equal(t, tt.code, kindErr.Code)

			assert.NoDirExists(t, f.outDir, "no artifact is produced")
		})
	}
}

func TestGenerationPipeline_CountsCompatibilityChecks(t *testing.T) {
	var results []string
	RegisterTelemetryEmitter(func(_ context.Context, name string, labels map[string]string, _ any) {
		if name == MetricCompatibilityChecks {
			results = append(results, labels["result"])
		}
	})
	t.Cleanup(func() { RegisterTelemetryEmitter(nil) })

	f := newPipelineFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.Validate(ctx, f.writeSchema(t, "ok.json", testKindSchemaRaw()))
	require.NoError(t, err)

	incompatible := testKindSchemaRaw()
	incompatible["additionalProperties"] = true
	_, err = f.pipeline.Validate(ctx, f.writeSchema(t, "open.json", incompatible))
	require.Error(t, err)

	malformed := testKindSchemaRaw()
	propertyOf(malformed, kindgen.FieldKind)["maxLength"] = "long"
	_, err = f.pipeline.Validate(ctx, f.writeSchema(t, "bad.json", malformed))
	require.Error(t, err)

	// Direct checker calls carry no context and are not counted.
	assert.True(t, NewSchemaChecker().IsSubset(testKindSchema(), kindgen.MainSchema()))

	assert.Equal(t, []string{"accepted", "rejected"}, results, "a schema failing the meta-schema never reaches the checker")
}

func TestGenerationPipeline_MissingCandidate(t *testing.T) {
	f := newPipelineFixture(t)
	_, err := f.pipeline.Generate(context.Background(), filepath.Join(f.dir, "absent.json"))
	require.Error(t, err)

	var kindErr *kindgen.KindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, kindgen.ErrCodeFileNotFound, kindErr.Code)
}

func TestGenerationPipeline_ValidateWritesNothing(t *testing.T) {
	f := newPipelineFixture(t)
	schemaPath := f.writeSchema(t, "test.json", testKindSchemaRaw())

	schema, err := f.pipeline.Validate(context.Background(), schemaPath)
	require.NoError(t, err)
	title, _ := KindTitle(schema)
	assert.Equal(t, "Test", title)
	assert.NoDirExists(t, f.outDir)
}

func TestGenerationPipeline_ConcurrentRunsForSameKind(t *testing.T) {
	f := newPipelineFixture(t)
	schemaPath := f.writeSchema(t, "test.json", testKindSchemaRaw())

	expected, err := f.pipeline.Generate(context.Background(), schemaPath)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pipeline.Generate(context.Background(), schemaPath)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	data, err := os.ReadFile(expected.Location)
	require.NoError(t, err)
	assert.Equal(t, expected.Source, data)
}

func TestTypeNameFromTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
		ok    bool
	}{
		{title: "Test", want: "Test", ok: true},
		{title: "test", want: "Test", ok: true},
		{title: "web server", want: "WebServer", ok: true},
		{title: "hello WORLD", want: "HelloWorld", ok: true},
		{title: "web/server", want: "Webserver", ok: true},
		{title: "  spaced  ", want: "Spaced", ok: true},
		{title: "", ok: false},
		{title: `<>:"|?*`, ok: false},
	}
	for _, tt := range tests {
		got, ok := TypeNameFromTitle(tt.title)
		assert.Equal(t, tt.ok, ok, tt.title)
		assert.Equal(t, tt.want, got, tt.title)
	}
}
