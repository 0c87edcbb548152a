package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/lychee-technology/kindgen"
	"go.uber.org/zap"
)

type generationPipeline struct {
	mainStore *MainSchemaStore
	checker   kindgen.CompatibilityChecker
	generator kindgen.ModelGenerator
	store     kindgen.ArtifactStore

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewGenerationPipeline wires the gates of model generation: main schema, candidate parsing,
// meta-schema checks, subset check, naming and artifact output.
func NewGenerationPipeline(
	mainStore *MainSchemaStore,
	checker kindgen.CompatibilityChecker,
	generator kindgen.ModelGenerator,
	store kindgen.ArtifactStore,
) kindgen.GenerationPipeline {
	return &generationPipeline{
		mainStore: mainStore,
		checker:   checker,
		generator: generator,
		store:     store,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Validate runs every gate up to and including the subset check.
func (p *generationPipeline) Validate(ctx context.Context, schemaPath string) (kindgen.Schema, error) {
	main, err := p.mainStore.LoadOrBootstrap()
	if err != nil {
		return kindgen.Schema{}, err
	}

	user, err := LoadSchemaFile(schemaPath)
	if err != nil {
		return kindgen.Schema{}, err
	}

	if err := CheckMetaSchema(main); err != nil {
		return kindgen.Schema{}, withPath(err, p.mainStore.Path())
	}
	if err := CheckMetaSchema(user); err != nil {
		return kindgen.Schema{}, withPath(err, schemaPath)
	}

	err = p.checker.Check(user, main)
	EmitCompatibilityResult(ctx, err == nil)
	if err != nil {
		zap.S().Warnw("schema rejected", "schema", schemaPath, "mainSchema", p.mainStore.Path(), "error", err)
		return kindgen.Schema{}, withPath(err, schemaPath)
	}

	zap.S().Debugw("schema accepted", "schema", schemaPath)
	return user, nil
}

// Generate validates the candidate and writes its model. Runs for the same kind are
// serialized so the last writer wins.
func (p *generationPipeline) Generate(ctx context.Context, schemaPath string) (*kindgen.GeneratedModelArtifact, error) {
	user, err := p.Validate(ctx, schemaPath)
	if err != nil {
		return nil, err
	}

	typeName, ok := KindTypeName(user)
	if !ok {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeKindUndefined, schemaPath,
			fmt.Sprintf("kind is not defined in '%s', check the schema for validity", schemaPath), nil)
	}
	finalized := user.With("title", typeName)

	unlock := p.lock(typeName)
	defer unlock()

	artifact, err := p.generator.GenerateModel(finalized, typeName, filepath.Base(schemaPath))
	EmitGeneration(ctx, "model", err)
	if err != nil {
		return nil, err
	}

	location, err := p.store.Put(ctx, artifact.FileName, artifact.Source)
	if err != nil {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeGeneratorFailed, artifact.FileName,
			"failed to write generated model", err)
	}
	artifact.Location = location

	zap.S().Infow("generated model", "kind", artifact.Kind, "type", artifact.TypeName, "location", location)
	return artifact, nil
}

func (p *generationPipeline) lock(kind string) func() {
	p.locksMu.Lock()
	mu, ok := p.locks[kind]
	if !ok {
		mu = &sync.Mutex{}
		p.locks[kind] = mu
	}
	p.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func withPath(err error, path string) error {
	var kindErr *kindgen.KindError
	if errors.As(err, &kindErr) && kindErr.Path == "" {
		kindErr.Path = path
	}
	return err
}
