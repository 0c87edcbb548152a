package kindgen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaAccessorsReportAbsence(t *testing.T) {
	var empty Schema
	assert.True(t, empty.IsZero())

	_, ok := empty.Property(FieldKind)
	assert.False(t, ok)
	_, ok = empty.Required()
	assert.False(t, ok)
	_, ok = empty.AdditionalProperties()
	assert.False(t, ok)
	_, ok = empty.Definition(ConfigurationDefinition)
	assert.False(t, ok)
	_, ok = empty.Int("maxLength")
	assert.False(t, ok)
	assert.Empty(t, empty.Properties())
	assert.Empty(t, empty.Definitions())
}

func TestMainSchemaContract(t *testing.T) {
	main := MainSchema()

	required, ok := main.Required()
	require.True(t, ok)
	assert.Equal(t, []string{FieldKind, FieldName, FieldDescription, FieldVersion, FieldConfiguration}, required)

	additional, ok := main.AdditionalProperties()
	require.True(t, ok)
	assert.False(t, additional)

	bounds := map[string]int{
		FieldKind:        KindMaxLength,
		FieldName:        NameMaxLength,
		FieldDescription: DescriptionMaxLength,
	}
	for field, max := range bounds {
		prop, ok := main.Property(field)
		require.True(t, ok, field)
		got, ok := prop.Int("maxLength")
		require.True(t, ok, field)
		assert.Equal(t, max, got, field)
	}

	version, ok := main.Property(FieldVersion)
	require.True(t, ok)
	pattern, ok := version.String("pattern")
	require.True(t, ok)
	assert.Equal(t, SemverPattern, pattern)

	configuration, ok := main.Property(FieldConfiguration)
	require.True(t, ok)
	ref, ok := configuration.Ref()
	require.True(t, ok)
	assert.Equal(t, "#/definitions/Configuration", ref)

	def, ok := main.Definition(ConfigurationDefinition)
	require.True(t, ok)
	defRequired, _ := def.Required()
	assert.Equal(t, []string{FieldSpecification, FieldSettings}, defRequired)
}

func TestSchemaIsImmutable(t *testing.T) {
	raw := map[string]any{
		"properties": map[string]any{"kind": map[string]any{"type": "string"}},
		"required":   []any{"kind"},
	}
	schema := NewSchema(raw)

	raw["required"] = []any{}
	raw["properties"].(map[string]any)["kind"].(map[string]any)["type"] = "integer"
	kind, _ := schema.Property("kind")
	typeName, _ := kind.TypeName()
	assert.Equal(t, "string", typeName, "NewSchema copies its input")

	copied := schema.Raw()
	copied["required"] = []any{"other"}
	required, _ := schema.Required()
	assert.Equal(t, []string{"kind"}, required, "Raw returns a copy")

	changed := schema.With("additionalProperties", false)
	_, ok := schema.AdditionalProperties()
	assert.False(t, ok, "With leaves the receiver untouched")
	additional, ok := changed.AdditionalProperties()
	assert.True(t, ok)
	assert.False(t, additional)
}

func TestSchemaInt(t *testing.T) {
	schema := NewSchema(map[string]any{
		"whole":    float64(32),
		"fraction": 1.5,
		"native":   7,
		"number":   json.Number("12"),
		"text":     "12",
	})

	tests := []struct {
		key  string
		want int
		ok   bool
	}{
		{key: "whole", want: 32, ok: true},
		{key: "fraction", ok: false},
		{key: "native", want: 7, ok: true},
		{key: "number", want: 12, ok: true},
		{key: "text", ok: false},
		{key: "absent", ok: false},
	}
	for _, tt := range tests {
		got, ok := schema.Int(tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(MainSchema())
	require.NoError(t, err)

	parsed, err := ParseSchema(data)
	require.NoError(t, err)
	assert.Equal(t, MainSchema().Raw(), parsed.Raw())

	_, err = ParseSchema([]byte(`[1, 2]`))
	assert.Error(t, err)
}
