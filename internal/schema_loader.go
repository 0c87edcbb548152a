package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/kindgen"
	"gopkg.in/yaml.v3"
)

// IsYAMLPath reports whether a schema file is read as YAML rather than JSON.
func IsYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// LoadSchemaFile reads a JSON or YAML schema. Both encodings end up as the same
// JSON-typed tree, so numbers are always float64.
func LoadSchemaFile(path string) (kindgen.Schema, error) {
	if strings.TrimSpace(path) == "" {
		return kindgen.Schema{}, kindgen.NewInputError(kindgen.ErrCodeMissingArgument, path, "schema path is required", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return kindgen.Schema{}, kindgen.NewInputError(kindgen.ErrCodeFileNotFound, path, path+" not found", err)
		}
		return kindgen.Schema{}, kindgen.NewInputError(kindgen.ErrCodeInvalidPath, path, "cannot read "+path, err)
	}

	if IsYAMLPath(path) {
		return parseYAMLSchema(path, data)
	}
	return parseJSONSchema(path, data)
}

func parseJSONSchema(path string, data []byte) (kindgen.Schema, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return kindgen.Schema{}, kindgen.NewInputError(kindgen.ErrCodeInvalidJSON, path, path+" is not a valid JSON file", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return kindgen.Schema{}, kindgen.NewInputError(kindgen.ErrCodeInvalidJSON, path, path+" must contain a JSON object", nil)
	}
	return kindgen.NewSchema(obj), nil
}

func parseYAMLSchema(path string, data []byte) (kindgen.Schema, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return kindgen.Schema{}, kindgen.NewInputError(kindgen.ErrCodeInvalidYAML, path, path+" is not a valid YAML file", err)
	}

	// Round-trip through JSON so YAML ints and JSON numbers decode identically.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return kindgen.Schema{}, kindgen.NewInputError(kindgen.ErrCodeInvalidYAML, path, path+" cannot be represented as JSON", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(normalized, &obj); err != nil || obj == nil {
		return kindgen.Schema{}, kindgen.NewInputError(kindgen.ErrCodeInvalidYAML, path, path+" must contain a mapping", err)
	}
	return kindgen.NewSchema(obj), nil
}

// CheckMetaSchema rejects documents that are not well-formed JSON Schema: keywords of the
// wrong type, unresolvable references and uncompilable patterns.
func CheckMetaSchema(schema kindgen.Schema) error {
	if _, err := resolveJSONSchema(schema); err != nil {
		return kindgen.NewMetaSchemaError("", err)
	}
	return nil
}

// ValidateDocument validates an instance document against schema.
func ValidateDocument(schema kindgen.Schema, doc map[string]any) error {
	resolved, err := resolveJSONSchema(schema)
	if err != nil {
		return kindgen.NewMetaSchemaError("", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return kindgen.NewValidationError("document", "document is not valid JSON")
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return kindgen.NewValidationError("document", "document is not valid JSON")
	}

	if err := resolved.Validate(instance); err != nil {
		return kindgen.NewValidationError("document", err.Error()).WithCause(err)
	}
	return nil
}

func resolveJSONSchema(schema kindgen.Schema) (*jsonschema.Resolved, error) {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var js jsonschema.Schema
	if err := json.Unmarshal(schemaBytes, &js); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into jsonschema.Schema: %w", err)
	}

	resolved, err := js.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve JSON schema: %w", err)
	}
	return resolved, nil
}
