package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/kindgen"
	"go.uber.org/zap"
)

const recordColumns = "id, kind, name, description, version, state, document"

type recordPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PostgresRecordRepository stores kind records in a single table with the document as jsonb.
type PostgresRecordRepository struct {
	pool  recordPool
	table string
}

func NewPostgresRecordRepository(pool recordPool, table string) *PostgresRecordRepository {
	if table == "" {
		table = kindgen.DefaultConfig().Database.TableName
	}
	return &PostgresRecordRepository{pool: pool, table: table}
}

// CreateRecordTableSQL returns the DDL for the record table and its kind index.
func CreateRecordTableSQL(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id uuid PRIMARY KEY,
	kind varchar(%d) NOT NULL,
	name varchar(%d) NOT NULL,
	description varchar(%d) NOT NULL,
	version varchar(255) NOT NULL,
	state text NOT NULL CHECK (state IN ('NEW', 'INSTALLING', 'RUNNING')),
	document jsonb NOT NULL
)`, quoteTable(table), kindgen.KindMaxLength, kindgen.NameMaxLength, kindgen.DescriptionMaxLength),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (kind)",
			kindIndexName(table), quoteTable(table)),
	}
}

// EnsureTable creates the record table when it does not exist.
func (r *PostgresRecordRepository) EnsureTable(ctx context.Context) error {
	for _, stmt := range CreateRecordTableSQL(r.table) {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create record table %s: %w", r.table, err)
		}
	}
	zap.S().Infow("record table ready", "table", r.table)
	return nil
}

// InTx runs fn in one transaction, committing only when fn succeeds.
func (r *PostgresRecordRepository) InTx(ctx context.Context, fn func(store kindgen.RecordStore) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return kindgen.NewTransactionError("begin transaction", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	if err := fn(&pgRecordStore{tx: tx, table: quoteTable(r.table)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return kindgen.NewTransactionError("commit transaction", err)
	}
	return nil
}

type pgRecordStore struct {
	tx    pgx.Tx
	table string
}

// Get locks the row for the rest of the transaction.
func (s *pgRecordStore) Get(ctx context.Context, id uuid.UUID) (*kindgen.KindRecord, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 FOR UPDATE", recordColumns, s.table)

	var (
		record   kindgen.KindRecord
		state    string
		document []byte
	)
	err := s.tx.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.Kind,
		&record.Name,
		&record.Description,
		&record.Version,
		&state,
		&document,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select record %s: %w", id, err)
	}

	parsed, err := kindgen.ParseState(state)
	if err != nil {
		return nil, false, kindgen.NewInternalError(fmt.Sprintf("record %s has undefined state %q", id, state), err)
	}
	record.State = parsed

	if err := json.Unmarshal(document, &record.Document); err != nil {
		return nil, false, kindgen.NewInternalError(fmt.Sprintf("record %s has an invalid document", id), err)
	}
	return &record, true, nil
}

// Insert reports an identifier collision as already-exists and leaves the stored row untouched.
func (s *pgRecordStore) Insert(ctx context.Context, record *kindgen.KindRecord) error {
	document, err := json.Marshal(record.Document)
	if err != nil {
		return kindgen.NewValidationError("document", "document is not valid JSON")
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING",
		s.table, recordColumns,
	)
	tag, err := s.tx.Exec(ctx, query,
		record.ID,
		record.Kind,
		record.Name,
		record.Description,
		record.Version,
		string(record.State),
		string(document),
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", record.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return kindgen.NewRecordAlreadyExistsError(record.ID)
	}
	return nil
}

// Merge overwrites the mutable columns of an existing record. kind and id never change.
func (s *pgRecordStore) Merge(ctx context.Context, record *kindgen.KindRecord) error {
	document, err := json.Marshal(record.Document)
	if err != nil {
		return kindgen.NewValidationError("document", "document is not valid JSON")
	}

	query := fmt.Sprintf(
		"UPDATE %s SET name = $2, description = $3, version = $4, state = $5, document = $6 WHERE id = $1",
		s.table,
	)
	tag, err := s.tx.Exec(ctx, query,
		record.ID,
		record.Name,
		record.Description,
		record.Version,
		string(record.State),
		string(document),
	)
	if err != nil {
		return fmt.Errorf("update record %s: %w", record.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return kindgen.NewRecordNotFoundError(record.ID)
	}
	return nil
}

func (s *pgRecordStore) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table)
	tag, err := s.tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return kindgen.NewRecordNotFoundError(id)
	}
	return nil
}
