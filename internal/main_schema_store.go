package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lychee-technology/kindgen"
	"go.uber.org/zap"
)

// MainSchemaStore owns the persisted copy of the main schema.
type MainSchemaStore struct {
	path string
}

// NewMainSchemaStore creates a store for the main schema document at path.
func NewMainSchemaStore(path string) *MainSchemaStore {
	return &MainSchemaStore{path: path}
}

// Path returns the location of the main schema document.
func (s *MainSchemaStore) Path() string {
	return s.path
}

// LoadOrBootstrap returns the main schema, writing the built-in contract first when the
// file does not exist yet.
func (s *MainSchemaStore) LoadOrBootstrap() (kindgen.Schema, error) {
	if s.path == "" {
		return kindgen.Schema{}, kindgen.NewInputError(kindgen.ErrCodeMissingArgument, "", "main schema path is required", nil)
	}

	if _, err := os.Stat(s.path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return kindgen.Schema{}, kindgen.NewInputError(kindgen.ErrCodeInvalidPath, s.path, "cannot stat main schema", err)
		}
		zap.S().Infow("main schema file doesn't exist, generating it", "path", s.path)
		if err := WriteMainSchema(s.path); err != nil {
			return kindgen.Schema{}, err
		}
	}

	return LoadSchemaFile(s.path)
}

// WriteMainSchema writes the built-in main schema to path as indented JSON.
func WriteMainSchema(path string) error {
	data, err := json.MarshalIndent(kindgen.MainSchema(), "", "  ")
	if err != nil {
		return kindgen.NewInternalError("failed to encode main schema", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return kindgen.NewInputError(kindgen.ErrCodeInvalidPath, path, fmt.Sprintf("cannot create directory for %s", path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return kindgen.NewInputError(kindgen.ErrCodeInvalidPath, path, fmt.Sprintf("cannot write %s", path), err)
	}
	return nil
}
