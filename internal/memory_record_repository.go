package internal

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lychee-technology/kindgen"
)

// MemoryRecordRepository keeps records in process. One lock is held for the whole of InTx,
// so transactions are fully serialized.
type MemoryRecordRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*kindgen.KindRecord
}

func NewMemoryRecordRepository() *MemoryRecordRepository {
	return &MemoryRecordRepository{records: make(map[uuid.UUID]*kindgen.KindRecord)}
}

// InTx applies fn's writes only when it returns nil.
func (r *MemoryRecordRepository) InTx(ctx context.Context, fn func(store kindgen.RecordStore) error) error {
	if err := ctx.Err(); err != nil {
		return kindgen.NewTransactionError("begin transaction", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make(map[uuid.UUID]*kindgen.KindRecord, len(r.records))
	for id, record := range r.records {
		staged[id] = record
	}

	if err := fn(&memoryRecordStore{records: staged}); err != nil {
		return err
	}
	r.records = staged
	return nil
}

// Len returns the number of stored records.
func (r *MemoryRecordRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// memoryRecordStore works on a staged copy of the map. Stored records are never mutated in
// place: every write stores a fresh clone.
type memoryRecordStore struct {
	records map[uuid.UUID]*kindgen.KindRecord
}

func (s *memoryRecordStore) Get(_ context.Context, id uuid.UUID) (*kindgen.KindRecord, bool, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (s *memoryRecordStore) Insert(_ context.Context, record *kindgen.KindRecord) error {
	if _, ok := s.records[record.ID]; ok {
		return kindgen.NewRecordAlreadyExistsError(record.ID)
	}
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *memoryRecordStore) Merge(_ context.Context, record *kindgen.KindRecord) error {
	existing, ok := s.records[record.ID]
	if !ok {
		return kindgen.NewRecordNotFoundError(record.ID)
	}
	merged := record.Clone()
	merged.Kind = existing.Kind
	s.records[record.ID] = merged
	return nil
}

func (s *memoryRecordStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.records[id]; !ok {
		return kindgen.NewRecordNotFoundError(id)
	}
	delete(s.records, id)
	return nil
}
