package internal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/kindgen"
	"go.uber.org/zap"
)

type recordService struct {
	repo   kindgen.RecordRepository
	schema kindgen.Schema
	newID  func() (uuid.UUID, error)
}

// NewRecordService builds the record lifecycle over repo. Created documents are validated
// against schema; a zero schema disables instance validation.
func NewRecordService(repo kindgen.RecordRepository, schema kindgen.Schema) kindgen.RecordService {
	return &recordService{
		repo:   repo,
		schema: schema,
		newID:  uuid.NewV7,
	}
}

func observe(ctx context.Context, operation string, start time.Time, err error) {
	EmitRecordOperation(ctx, operation, time.Since(start).Milliseconds(), err)
}

func (s *recordService) Create(ctx context.Context, req *kindgen.CreateRecordRequest) (record *kindgen.KindRecord, err error) {
	defer func(start time.Time) { observe(ctx, "create", start, err) }(time.Now())

	if req == nil || req.Document == nil {
		return nil, kindgen.NewValidationError("document", "document is required")
	}
	if !s.schema.IsZero() {
		if err := ValidateDocument(s.schema, req.Document); err != nil {
			return nil, err
		}
	}

	var id uuid.UUID
	if req.ID != nil {
		id = *req.ID
	} else {
		id, err = s.newID()
		if err != nil {
			return nil, kindgen.NewInternalError("failed to generate record id", err)
		}
	}

	record, err = kindgen.NewKindRecord(id, req.Document, req.State)
	if err != nil {
		return nil, err
	}

	err = s.repo.InTx(ctx, func(store kindgen.RecordStore) error {
		_, exists, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			return kindgen.NewRecordAlreadyExistsError(id)
		}
		return store.Insert(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	zap.S().Infow("record created", "id", id, "kind", record.Kind, "state", record.State)
	return record, nil
}

func (s *recordService) Read(ctx context.Context, id uuid.UUID) (record *kindgen.KindRecord, err error) {
	defer func(start time.Time) { observe(ctx, "read", start, err) }(time.Now())

	err = s.repo.InTx(ctx, func(store kindgen.RecordStore) error {
		found, ok, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return kindgen.NewRecordNotFoundError(id)
		}
		record = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateState overwrites the state; every transition between defined states is allowed.
func (s *recordService) UpdateState(ctx context.Context, id uuid.UUID, state kindgen.State) (record *kindgen.KindRecord, err error) {
	defer func(start time.Time) { observe(ctx, "update_state", start, err) }(time.Now())

	if _, err := kindgen.ParseState(string(state)); err != nil {
		return nil, err
	}

	record, err = s.mutate(ctx, id, func(r *kindgen.KindRecord) error {
		r.State = state
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infow("record state updated", "id", id, "state", state)
	return record, nil
}

// UpdateConfiguration replaces document.configuration; both sub-objects must be present.
func (s *recordService) UpdateConfiguration(ctx context.Context, id uuid.UUID, configuration map[string]any) (record *kindgen.KindRecord, err error) {
	defer func(start time.Time) { observe(ctx, "update_configuration", start, err) }(time.Now())

	cfg, err := kindgen.ConfigurationFromMap(configuration)
	if err != nil {
		return nil, err
	}

	record, err = s.mutate(ctx, id, func(r *kindgen.KindRecord) error {
		r.Document = r.Document.WithConfiguration(cfg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infow("record configuration updated", "id", id)
	return record, nil
}

// UpdateSettings replaces document.configuration.settings and keeps specification as stored.
func (s *recordService) UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) (record *kindgen.KindRecord, err error) {
	defer func(start time.Time) { observe(ctx, "update_settings", start, err) }(time.Now())

	if settings == nil {
		return nil, kindgen.NewValidationError(kindgen.FieldConfiguration+"."+kindgen.FieldSettings, "settings must be an object")
	}

	record, err = s.mutate(ctx, id, func(r *kindgen.KindRecord) error {
		cfg, err := r.Document.Configuration()
		if err != nil {
			return kindgen.NewInternalError("stored configuration is invalid", err)
		}
		cfg.Settings = settings
		r.Document = r.Document.WithConfiguration(cfg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infow("record settings updated", "id", id)
	return record, nil
}

// Delete removes the record and returns it as it was just before deletion.
func (s *recordService) Delete(ctx context.Context, id uuid.UUID) (record *kindgen.KindRecord, err error) {
	defer func(start time.Time) { observe(ctx, "delete", start, err) }(time.Now())

	err = s.repo.InTx(ctx, func(store kindgen.RecordStore) error {
		found, ok, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return kindgen.NewRecordNotFoundError(id)
		}
		if err := store.Delete(ctx, id); err != nil {
			return err
		}
		record = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infow("record deleted", "id", id, "kind", record.Kind)
	return record, nil
}

// mutate loads, changes and merges one record inside a single transaction.
func (s *recordService) mutate(ctx context.Context, id uuid.UUID, change func(r *kindgen.KindRecord) error) (*kindgen.KindRecord, error) {
	var updated *kindgen.KindRecord
	err := s.repo.InTx(ctx, func(store kindgen.RecordStore) error {
		found, ok, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return kindgen.NewRecordNotFoundError(id)
		}
		if err := change(found); err != nil {
			return err
		}
		if err := store.Merge(ctx, found); err != nil {
			return err
		}
		updated = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
