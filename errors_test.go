package kindgen

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestKindErrorPredicates(t *testing.T) {
	id := uuid.MustParse("0190f5a6-7b7c-7d8e-9f00-112233445566")

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{name: "not found", err: NewRecordNotFoundError(id), check: IsNotFound},
		{name: "already exists", err: NewRecordAlreadyExistsError(id), check: IsAlreadyExists},
		{name: "validation", err: NewValidationError("state", "bad"), check: IsValidationError},
		{name: "compatibility", err: NewCompatibilityError(ErrCodeFieldMissing, "kind", "missing"), check: IsCompatibilityError},
		{name: "input", err: NewInputError(ErrCodeFileNotFound, "a.json", "missing", nil), check: IsInputError},
		{name: "meta schema is input", err: NewMetaSchemaError("a.json", errors.New("bad type")), check: IsInputError},
		{name: "generation", err: NewGenerationError(ErrCodeKindUndefined, "a.json", "no title", nil), check: IsGenerationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)), "predicates see through wrapping")
		})
	}

	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsAlreadyExists(NewRecordNotFoundError(id)))
}

func TestKindErrorMessage(t *testing.T) {
	id := uuid.MustParse("0190f5a6-7b7c-7d8e-9f00-112233445566")

	assert.Equal(t,
		"[not_found:RECORD_NOT_FOUND] record 0190f5a6-7b7c-7d8e-9f00-112233445566: record not found",
		NewRecordNotFoundError(id).Error())
	assert.Equal(t,
		"[compatibility:LENGTH_WIDENED] field 'kind': maxLength 64 exceeds 32",
		NewCompatibilityError(ErrCodeLengthWidened, "kind", "maxLength 64 exceeds 32").Error())
	assert.Equal(t,
		"[input:FILE_NOT_FOUND] schemas/a.json: file not found",
		NewInputError(ErrCodeFileNotFound, "schemas/a.json", "file not found", nil).Error())
	assert.Equal(t,
		"[compatibility:TYPE_MISMATCH] a.json field 'name': type differs",
		NewCompatibilityError(ErrCodeTypeMismatch, "name", "type differs").WithPath("a.json").Error())
}

func TestKindErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewTransactionError("commit transaction", cause)
	assert.ErrorIs(t, err, cause)

	withDetail := NewInternalError("boom", nil).WithDetail("table", "kind_records").WithCause(cause)
	assert.Equal(t, "kind_records", withDetail.Details["table"])
	assert.ErrorIs(t, withDetail, cause)
}
