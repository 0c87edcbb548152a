package kindgen

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeInput         ErrorType = "input"
	ErrorTypeCompatibility ErrorType = "compatibility"
	ErrorTypeGeneration    ErrorType = "generation"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeTransaction   ErrorType = "transaction"
	ErrorTypeInternal      ErrorType = "internal"
)

// Error codes
const (
	// Input errors
	ErrCodeFileNotFound     = "FILE_NOT_FOUND"
	ErrCodeInvalidPath      = "INVALID_PATH"
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeInvalidYAML      = "INVALID_YAML"
	ErrCodeMissingArgument  = "MISSING_ARGUMENT"
	ErrCodeMetaSchemaFailed = "META_SCHEMA_VALIDATION_FAILED"

	// Compatibility errors
	ErrCodeFieldMissing       = "FIELD_MISSING"
	ErrCodeTypeMismatch       = "TYPE_MISMATCH"
	ErrCodeLengthWidened      = "LENGTH_WIDENED"
	ErrCodePatternMismatch    = "PATTERN_MISMATCH"
	ErrCodeRequiredMismatch   = "REQUIRED_MISMATCH"
	ErrCodeAdditionalMismatch = "ADDITIONAL_PROPERTIES_MISMATCH"

	// Generation errors
	ErrCodeKindUndefined    = "KIND_UNDEFINED"
	ErrCodeGeneratorFailed  = "GENERATOR_FAILED"
	ErrCodeInvalidModelFile = "INVALID_MODEL_FILE"

	// Record errors
	ErrCodeRecordNotFound      = "RECORD_NOT_FOUND"
	ErrCodeRecordAlreadyExists = "RECORD_ALREADY_EXISTS"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeTransactionFailed   = "TRANSACTION_FAILED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// KindError represents every caller-visible failure of the schema pipeline and record layer.
type KindError struct {
	Type     ErrorType      `json:"type"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Field    string         `json:"field,omitempty"`
	Path     string         `json:"path,omitempty"`
	RecordID *uuid.UUID     `json:"recordId,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Cause    error          `json:"-"`
}

func (e *KindError) Error() string {
	if e.RecordID != nil {
		return fmt.Sprintf("[%s:%s] record %s: %s", e.Type, e.Code, e.RecordID, e.Message)
	}
	if e.Path != "" && e.Field != "" {
		return fmt.Sprintf("[%s:%s] %s field '%s': %s", e.Type, e.Code, e.Path, e.Field, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Path, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *KindError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to a KindError
func (e *KindError) WithDetail(key string, value any) *KindError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a KindError
func (e *KindError) WithCause(cause error) *KindError {
	e.Cause = cause
	return e
}

// WithPath records the file the error refers to
func (e *KindError) WithPath(path string) *KindError {
	e.Path = path
	return e
}

// NewKindError creates a new KindError
func NewKindError(errorType ErrorType, code, message string) *KindError {
	return &KindError{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// NewInputError creates an error for unreadable or malformed input files and arguments.
func NewInputError(code, path, message string, cause error) *KindError {
	return &KindError{
		Type:    ErrorTypeInput,
		Code:    code,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// NewMetaSchemaError creates an error for a schema that is not a well-formed JSON Schema.
func NewMetaSchemaError(path string, cause error) *KindError {
	msg := "schema is not a valid JSON Schema"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &KindError{
		Type:    ErrorTypeInput,
		Code:    ErrCodeMetaSchemaFailed,
		Message: msg,
		Path:    path,
		Cause:   cause,
	}
}

// NewCompatibilityError creates an error naming the field and rule that failed the subset check.
func NewCompatibilityError(code, field, message string) *KindError {
	return &KindError{
		Type:    ErrorTypeCompatibility,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// NewGenerationError creates a generation error for the given source file.
func NewGenerationError(code, path, message string, cause error) *KindError {
	return &KindError{
		Type:    ErrorTypeGeneration,
		Code:    code,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// NewRecordNotFoundError creates a record not found error
func NewRecordNotFoundError(id uuid.UUID) *KindError {
	return &KindError{
		Type:     ErrorTypeNotFound,
		Code:     ErrCodeRecordNotFound,
		Message:  "record not found",
		RecordID: &id,
	}
}

// NewRecordAlreadyExistsError creates a record already exists error
func NewRecordAlreadyExistsError(id uuid.UUID) *KindError {
	return &KindError{
		Type:     ErrorTypeConflict,
		Code:     ErrCodeRecordAlreadyExists,
		Message:  "record already exists",
		RecordID: &id,
	}
}

// NewValidationError creates a validation error for malformed record input.
func NewValidationError(field, message string) *KindError {
	return &KindError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: message,
		Field:   field,
	}
}

// NewTransactionError creates a transaction error
func NewTransactionError(message string, cause error) *KindError {
	return &KindError{
		Type:    ErrorTypeTransaction,
		Code:    ErrCodeTransactionFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *KindError {
	return &KindError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
	}
}

// ============================================================================
// Error checking utilities
// ============================================================================

func asKindError(err error) (*KindError, bool) {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke, true
	}
	return nil, false
}

// IsNotFound checks if an error is a record not found error
func IsNotFound(err error) bool {
	ke, ok := asKindError(err)
	return ok && ke.Type == ErrorTypeNotFound
}

// IsAlreadyExists checks if an error is a record already exists error
func IsAlreadyExists(err error) bool {
	ke, ok := asKindError(err)
	return ok && ke.Type == ErrorTypeConflict
}

// IsValidationError checks if an error reports malformed record input
func IsValidationError(err error) bool {
	ke, ok := asKindError(err)
	return ok && ke.Type == ErrorTypeValidation
}

// IsCompatibilityError checks if an error is a failed subset check
func IsCompatibilityError(err error) bool {
	ke, ok := asKindError(err)
	return ok && ke.Type == ErrorTypeCompatibility
}

// IsInputError checks if an error is an input error
func IsInputError(err error) bool {
	ke, ok := asKindError(err)
	return ok && ke.Type == ErrorTypeInput
}

// IsGenerationError checks if an error is a generation error
func IsGenerationError(err error) bool {
	ke, ok := asKindError(err)
	return ok && ke.Type == ErrorTypeGeneration
}
