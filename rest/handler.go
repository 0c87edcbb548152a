// Package rest serves the record lifecycle of one kind over HTTP. Generated routers mount a
// KindHandler per kind; cmd/server mounts one per registered kind schema.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lychee-technology/kindgen"
	"github.com/lychee-technology/kindgen/internal"
)

// KindHandler serves the record endpoints of one kind.
type KindHandler struct {
	svc    kindgen.RecordService
	kind   string
	schema kindgen.Schema

	checkDocument      func(raw []byte) error
	checkConfiguration func(raw []byte) error
}

// HandlerOption customizes a KindHandler.
type HandlerOption func(h *KindHandler)

// WithDocumentType makes POST bodies decode into T before they reach the service.
func WithDocumentType[T any]() HandlerOption {
	return func(h *KindHandler) {
		h.checkDocument = decodeInto[T]("document")
	}
}

// WithConfigurationType makes configuration bodies decode into C before they reach the service.
func WithConfigurationType[C any]() HandlerOption {
	return func(h *KindHandler) {
		h.checkConfiguration = decodeInto[C](kindgen.FieldConfiguration)
	}
}

func decodeInto[T any](field string) func(raw []byte) error {
	return func(raw []byte) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return kindgen.NewValidationError(field, fmt.Sprintf("body does not match the %s model: %v", field, err))
		}
		return nil
	}
}

// NewKindHandler builds the handler for kind. schemaJSON is the kind's accepted schema; every
// document and configuration write is validated against it before reaching svc.
func NewKindHandler(svc kindgen.RecordService, kind, schemaJSON string, opts ...HandlerOption) (*KindHandler, error) {
	if svc == nil {
		return nil, fmt.Errorf("record service is required")
	}
	if kind == "" {
		return nil, fmt.Errorf("kind is required")
	}
	schema, err := kindgen.ParseSchema([]byte(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("kind %s: %w", kind, err)
	}
	if err := internal.CheckMetaSchema(schema); err != nil {
		return nil, fmt.Errorf("kind %s: %w", kind, err)
	}

	h := &KindHandler{svc: svc, kind: kind, schema: schema}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Kind returns the kind tag the handler serves.
func (h *KindHandler) Kind() string {
	return h.kind
}

// Routes registers the record endpoints relative to the kind's mount point.
func (h *KindHandler) Routes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Delete("/", h.handleDelete)
		r.Get("/state", h.handleGetState)
		r.Put("/state", h.handlePutState)
		r.Put("/configuration", h.handlePutConfiguration)
		r.Put("/settings", h.handlePutSettings)
	})
}

// handleCreate handles POST /{kind}[?state=...]
func (h *KindHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	raw, err := readJSONBody(r, &doc)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if doc == nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}

	var state kindgen.State
	if value := r.URL.Query().Get("state"); value != "" {
		if state, err = kindgen.ParseState(value); err != nil {
			writeKindError(w, err)
			return
		}
	}

	if err := h.validateDocument(doc, raw); err != nil {
		writeKindError(w, err)
		return
	}
	if kind, _ := doc[kindgen.FieldKind].(string); !h.owns(kind) {
		writeKindError(w, kindgen.NewValidationError(kindgen.FieldKind,
			fmt.Sprintf("kind %q does not match %q", kind, h.kind)))
		return
	}

	record, err := h.svc.Create(r.Context(), &kindgen.CreateRecordRequest{
		Document: kindgen.Document(doc),
		State:    state,
	})
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": record.ID.String()})
}

// handleGet handles GET /{kind}/{id}
func (h *KindHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeKindError(w, err)
		return
	}
	record, err := h.readOwned(r, id)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleDelete handles DELETE /{kind}/{id}
func (h *KindHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeKindError(w, err)
		return
	}
	if _, err := h.readOwned(r, id); err != nil {
		writeKindError(w, err)
		return
	}
	if _, err := h.svc.Delete(r.Context(), id); err != nil {
		writeKindError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetState handles GET /{kind}/{id}/state
func (h *KindHandler) handleGetState(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeKindError(w, err)
		return
	}
	record, err := h.readOwned(r, id)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": record.State})
}

// handlePutState handles PUT /{kind}/{id}/state with {"state": "..."} or ?state=...
func (h *KindHandler) handlePutState(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeKindError(w, err)
		return
	}

	value := r.URL.Query().Get("state")
	if value == "" {
		var body struct {
			State string `json:"state"`
		}
		if _, err := readJSONBody(r, &body); err != nil {
			writeKindError(w, err)
			return
		}
		value = body.State
	}
	state, err := kindgen.ParseState(value)
	if err != nil {
		writeKindError(w, err)
		return
	}

	if _, err := h.readOwned(r, id); err != nil {
		writeKindError(w, err)
		return
	}
	record, err := h.svc.UpdateState(r.Context(), id, state)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handlePutConfiguration handles PUT /{kind}/{id}/configuration
func (h *KindHandler) handlePutConfiguration(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeKindError(w, err)
		return
	}

	var body map[string]any
	raw, err := readJSONBody(r, &body)
	if err != nil {
		writeKindError(w, err)
		return
	}
	cfg, err := kindgen.ConfigurationFromMap(body)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if h.checkConfiguration != nil {
		if err := h.checkConfiguration(raw); err != nil {
			writeKindError(w, err)
			return
		}
	}
	if err := h.validateConfiguration(r, id, cfg); err != nil {
		writeKindError(w, err)
		return
	}

	record, err := h.svc.UpdateConfiguration(r.Context(), id, body)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handlePutSettings handles PUT /{kind}/{id}/settings
func (h *KindHandler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeKindError(w, err)
		return
	}

	var settings map[string]any
	if _, err := readJSONBody(r, &settings); err != nil {
		writeKindError(w, err)
		return
	}
	if settings == nil {
		writeKindError(w, kindgen.NewValidationError(kindgen.FieldConfiguration+"."+kindgen.FieldSettings, "settings must be an object"))
		return
	}

	current, err := h.readOwned(r, id)
	if err != nil {
		writeKindError(w, err)
		return
	}
	cfg, err := current.Document.Configuration()
	if err != nil {
		writeKindError(w, err)
		return
	}
	cfg.Settings = settings
	if err := h.validateDocument(current.Document.WithConfiguration(cfg), nil); err != nil {
		writeKindError(w, err)
		return
	}

	record, err := h.svc.UpdateSettings(r.Context(), id, settings)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// validateDocument checks doc against the kind schema and, when raw is given, the typed model.
func (h *KindHandler) validateDocument(doc map[string]any, raw []byte) error {
	if err := internal.ValidateDocument(h.schema, doc); err != nil {
		return err
	}
	if raw != nil && h.checkDocument != nil {
		return h.checkDocument(raw)
	}
	return nil
}

// validateConfiguration checks the stored document with cfg swapped in against the kind schema.
func (h *KindHandler) validateConfiguration(r *http.Request, id uuid.UUID, cfg kindgen.Configuration) error {
	current, err := h.readOwned(r, id)
	if err != nil {
		return err
	}
	return h.validateDocument(current.Document.WithConfiguration(cfg), nil)
}

// owns reports whether kind names the kind this handler serves.
func (h *KindHandler) owns(kind string) bool {
	return strings.EqualFold(kind, h.kind)
}

// readOwned loads id and reports records of other kinds in the shared store as not found.
// A record's kind never changes, so the check holds for the update that follows.
func (h *KindHandler) readOwned(r *http.Request, id uuid.UUID) (*kindgen.KindRecord, error) {
	record, err := h.svc.Read(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !h.owns(record.Kind) {
		return nil, kindgen.NewRecordNotFoundError(id)
	}
	return record, nil
}
