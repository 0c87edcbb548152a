package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lychee-technology/kindgen"
	"go.uber.org/zap"
)

// fileKindRegistry indexes the accepted kind schemas found in one directory.
type fileKindRegistry struct {
	mu        sync.RWMutex
	schemaDir string
	kinds     map[string]kindgen.KindDefinition
}

// NewFileKindRegistry scans schemaDir for JSON and YAML kind schemas and runs each through
// pipeline.Validate. Any rejected schema or duplicated kind fails the whole load.
func NewFileKindRegistry(ctx context.Context, pipeline kindgen.GenerationPipeline, schemaDir string) (kindgen.KindRegistry, error) {
	registry := &fileKindRegistry{
		schemaDir: schemaDir,
		kinds:     make(map[string]kindgen.KindDefinition),
	}
	if err := registry.loadSchemasFromDirectory(ctx, pipeline); err != nil {
		return nil, err
	}
	return registry, nil
}

func (r *fileKindRegistry) loadSchemasFromDirectory(ctx context.Context, pipeline kindgen.GenerationPipeline) error {
	entries, err := os.ReadDir(r.schemaDir)
	if err != nil {
		return fmt.Errorf("failed to read kind schema directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".json") || IsYAMLPath(name) {
			files = append(files, filepath.Join(r.schemaDir, name))
		}
	}
	sort.Strings(files)

	for _, file := range files {
		schema, err := pipeline.Validate(ctx, file)
		if err != nil {
			return err
		}
		typeName, ok := KindTypeName(schema)
		if !ok {
			return kindgen.NewGenerationError(kindgen.ErrCodeKindUndefined, file,
				fmt.Sprintf("kind is not defined in '%s', check the schema for validity", file), nil)
		}

		kind := strings.ToLower(typeName)
		if existing, ok := r.kinds[kind]; ok {
			return fmt.Errorf("kind %q is defined by both %s and %s", kind, existing.SourcePath, file)
		}
		r.kinds[kind] = kindgen.KindDefinition{
			Kind:       kind,
			TypeName:   typeName,
			SourcePath: file,
			Schema:     schema.With("title", typeName),
		}
		zap.S().Infow("registered kind", "kind", kind, "type", typeName, "schema", file)
	}

	if len(r.kinds) == 0 {
		zap.S().Warnw("no kind schemas found", "dir", r.schemaDir)
	}
	return nil
}

func (r *fileKindRegistry) Get(kind string) (kindgen.KindDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.kinds[strings.ToLower(kind)]
	return def, ok
}

// List returns every definition ordered by kind.
func (r *fileKindRegistry) List() []kindgen.KindDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]kindgen.KindDefinition, 0, len(r.kinds))
	for _, def := range r.kinds {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
