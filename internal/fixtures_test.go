package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lychee-technology/kindgen"
	"github.com/stretchr/testify/require"
)

// testKindSchemaRaw is a compatible candidate: the main schema with a "Test" kind title,
// a narrower kind length and described settings.
func testKindSchemaRaw() map[string]any {
	raw := kindgen.MainSchema().Raw()
	raw["title"] = "Test Schema"
	kind := propertyOf(raw, kindgen.FieldKind)
	kind["title"] = "Test"
	kind["maxLength"] = float64(16)

	settings := configurationDefinitionOf(raw)["properties"].(map[string]any)[kindgen.FieldSettings].(map[string]any)
	settings["properties"] = map[string]any{
		"replicas": map[string]any{"title": "Replicas", "type": "integer"},
		"region":   map[string]any{"title": "Region", "type": "string"},
	}
	settings["required"] = []any{"replicas"}
	return raw
}

func testKindSchema() kindgen.Schema {
	return kindgen.NewSchema(testKindSchemaRaw())
}

func mutatedKindSchema(fn func(raw map[string]any)) kindgen.Schema {
	raw := testKindSchemaRaw()
	fn(raw)
	return kindgen.NewSchema(raw)
}

func propertyOf(raw map[string]any, name string) map[string]any {
	return raw["properties"].(map[string]any)[name].(map[string]any)
}

func configurationDefinitionOf(raw map[string]any) map[string]any {
	return raw["definitions"].(map[string]any)[kindgen.ConfigurationDefinition].(map[string]any)
}

func testDocument() kindgen.Document {
	return kindgen.Document{
		"kind":        "test",
		"name":        "test",
		"version":     "1.0.0",
		"description": "test",
		"configuration": map[string]any{
			"settings":      map[string]any{},
			"specification": map[string]any{},
		},
	}
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
