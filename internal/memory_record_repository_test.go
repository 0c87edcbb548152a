package internal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lychee-technology/kindgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecordRepository_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordRepository()
	record, err := kindgen.NewKindRecord(uuid.New(), testDocument(), kindgen.StateNew)
	require.NoError(t, err)

	require.NoError(t, repo.InTx(ctx, func(store kindgen.RecordStore) error {
		return store.Insert(ctx, record)
	}))
	assert.Equal(t, 1, repo.Len())

	require.NoError(t, repo.InTx(ctx, func(store kindgen.RecordStore) error {
		got, ok, err := store.Get(ctx, record.ID)
		require.True(t, ok)
		assert.Equal(t, record, got)
		return err
	}))
}

func TestMemoryRecordRepository_DiscardsOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordRepository()
	record, err := kindgen.NewKindRecord(uuid.New(), testDocument(), kindgen.StateNew)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.InTx(ctx, func(store kindgen.RecordStore) error {
		require.NoError(t, store.Insert(ctx, record))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, repo.Len())
}

func TestMemoryRecordRepository_StoredRecordsAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordRepository()
	record, err := kindgen.NewKindRecord(uuid.New(), testDocument(), kindgen.StateNew)
	require.NoError(t, err)
	require.NoError(t, repo.InTx(ctx, func(store kindgen.RecordStore) error {
		return store.Insert(ctx, record)
	}))

	record.State = kindgen.StateRunning
	record.Document["name"] = "changed"

	require.NoError(t, repo.InTx(ctx, func(store kindgen.RecordStore) error {
		got, _, err := store.Get(ctx, record.ID)
		assert.Equal(t, kindgen.StateNew, got.State)
		assert.Equal(t, "test", got.Document["name"])
		got.State = kindgen.StateInstalling
		return err
	}))

	require.NoError(t, repo.InTx(ctx, func(store kindgen.RecordStore) error {
		got, _, err := store.Get(ctx, record.ID)
		assert.Equal(t, kindgen.StateNew, got.State)
		return err
	}))
}

func TestMemoryRecordRepository_MissingAndDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordRepository()
	record, err := kindgen.NewKindRecord(uuid.New(), testDocument(), kindgen.StateNew)
	require.NoError(t, err)

	err = repo.InTx(ctx, func(store kindgen.RecordStore) error { return store.Merge(ctx, record) })
	assert.True(t, kindgen.IsNotFound(err))
	err = repo.InTx(ctx, func(store kindgen.RecordStore) error { return store.Delete(ctx, record.ID) })
	assert.True(t, kindgen.IsNotFound(err))

	require.NoError(t, repo.InTx(ctx, func(store kindgen.RecordStore) error { return store.Insert(ctx, record) }))
	err = repo.InTx(ctx, func(store kindgen.RecordStore) error { return store.Insert(ctx, record) })
	assert.True(t, kindgen.IsAlreadyExists(err))
}

func TestMemoryRecordRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemoryRecordRepository().InTx(ctx, func(kindgen.RecordStore) error {
		t.Fatal("fn must not run")
		return nil
	})
	var kindErr *kindgen.KindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, kindgen.ErrCodeTransactionFailed, kindErr.Code)
}

func TestMemoryRecordRepository_SerializesTransactions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordRepository()
	id := uuid.New()

	var wg sync.WaitGroup
	results := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := kindgen.NewKindRecord(id, testDocument(), kindgen.StateNew)
			if err != nil {
				results <- err
				return
			}
			results <- repo.InTx(ctx, func(store kindgen.RecordStore) error {
				if _, exists, _ := store.Get(ctx, id); exists {
					return kindgen.NewRecordAlreadyExistsError(id)
				}
				return store.Insert(ctx, record)
			})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, kindgen.IsAlreadyExists(err))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, repo.Len())
}
