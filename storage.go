package kindgen

import (
	"context"

	"github.com/google/uuid"
)

// CompatibilityChecker decides whether a candidate schema narrows the main schema.
type CompatibilityChecker interface {
	// Check returns nil when user is an acceptable subset of main, otherwise a
	// compatibility KindError naming the first field and rule that failed.
	Check(user, main Schema) error
	IsSubset(user, main Schema) bool
}

// ModelGenerator turns a finalized kind schema into typed model source.
type ModelGenerator interface {
	GenerateModel(schema Schema, typeName, sourceName string) (*GeneratedModelArtifact, error)
}

// RouterGenerator renders REST resource source for a generated model.
type RouterGenerator interface {
	GenerateRouter(values RouterValues) (*GeneratedRouterArtifact, error)
}

// ArtifactStore persists generated sources at an output location.
type ArtifactStore interface {
	// Put writes data under name, replacing any previous content, and returns its location.
	Put(ctx context.Context, name string, data []byte) (string, error)
	Location() string
}

// GenerationPipeline gates model generation behind schema validation.
type GenerationPipeline interface {
	// Validate loads the candidate and runs every check without producing output.
	Validate(ctx context.Context, schemaPath string) (Schema, error)
	Generate(ctx context.Context, schemaPath string) (*GeneratedModelArtifact, error)
}

// RecordStore is the transaction-scoped view of persisted records.
type RecordStore interface {
	Get(ctx context.Context, id uuid.UUID) (*KindRecord, bool, error)
	Insert(ctx context.Context, record *KindRecord) error
	Merge(ctx context.Context, record *KindRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RecordRepository runs fn inside one transaction; fn's error rolls the transaction back.
type RecordRepository interface {
	InTx(ctx context.Context, fn func(store RecordStore) error) error
}

// CreateRecordRequest carries a POSTed document.
type CreateRecordRequest struct {
	// ID is optional; a new identifier is generated when nil.
	ID       *uuid.UUID
	Document Document
	// State defaults to NEW.
	State State
}

// RecordService provides the record lifecycle over accepted kinds.
type RecordService interface {
	Create(ctx context.Context, req *CreateRecordRequest) (*KindRecord, error)
	Read(ctx context.Context, id uuid.UUID) (*KindRecord, error)
	UpdateState(ctx context.Context, id uuid.UUID, state State) (*KindRecord, error)
	UpdateConfiguration(ctx context.Context, id uuid.UUID, configuration map[string]any) (*KindRecord, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) (*KindRecord, error)
	Delete(ctx context.Context, id uuid.UUID) (*KindRecord, error)
}

// KindRegistry indexes accepted kind schemas by lowercase kind tag.
type KindRegistry interface {
	Get(kind string) (KindDefinition, bool)
	List() []KindDefinition
}
