package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/lychee-technology/kindgen"
	"go.uber.org/zap"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.S().Warnw("failed to encode response", "status", statusCode, "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// writeKindError maps err onto a status code: not found 404, conflict 409, malformed input
// 400 and anything else 500.
func writeKindError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var kindErr *kindgen.KindError
	if errors.As(err, &kindErr) {
		resp.Error = kindErr.Message
		resp.Code = kindErr.Code
		resp.Field = kindErr.Field
	}
	if status == http.StatusInternalServerError {
		zap.S().Errorw("record request failed", "error", err)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

// StatusFor returns the HTTP status for a record-layer error.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case kindgen.IsNotFound(err):
		return http.StatusNotFound
	case kindgen.IsAlreadyExists(err):
		return http.StatusConflict
	case kindgen.IsValidationError(err), kindgen.IsInputError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseUUID parses a UUID path parameter
func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, kindgen.NewValidationError("id", fmt.Sprintf("invalid record id %q", s))
	}
	return id, nil
}

// readJSONBody reads and decodes JSON from request body, keeping the raw bytes for typed checks.
func readJSONBody(r *http.Request, v any) ([]byte, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, kindgen.NewValidationError("body", "failed to read request body")
	}
	if len(data) > maxBodyBytes {
		return nil, kindgen.NewValidationError("body", "request body too large")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, kindgen.NewValidationError("body", fmt.Sprintf("invalid json body: %v", err))
	}
	return data, nil
}
