package kindgen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// State is the lifecycle state of a kind record. Any state may move to any other.
type State string

const (
	StateNew        State = "NEW"
	StateInstalling State = "INSTALLING"
	StateRunning    State = "RUNNING"
)

// States lists every defined state.
func States() []State {
	return []State{StateNew, StateInstalling, StateRunning}
}

// IsValid reports whether s is one of the defined states.
func (s State) IsValid() bool {
	switch s {
	case StateNew, StateInstalling, StateRunning:
		return true
	default:
		return false
	}
}

// ParseState converts a string into a State, rejecting undefined values.
func ParseState(value string) (State, error) {
	state := State(value)
	if !state.IsValid() {
		names := make([]string, 0, 3)
		for _, s := range States() {
			names = append(names, string(s))
		}
		err := NewValidationError("state", fmt.Sprintf("undefined state %q, expected one of %s", value, strings.Join(names, ", ")))
		err.Code = ErrCodeInvalidState
		return "", err
	}
	return state, nil
}

// UnmarshalJSON rejects undefined states.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewValidationError("state", "state must be a string")
	}
	parsed, err := ParseState(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Document is the JSON object submitted for a record.
type Document map[string]any

// Clone returns a deep copy.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(deepCopyValue(map[string]any(d)).(map[string]any))
}

// String returns a string field of the document.
func (d Document) String(key string) string {
	v, _ := d[key].(string)
	return v
}

// Configuration extracts the configuration sub-document.
func (d Document) Configuration() (Configuration, error) {
	raw, ok := d[FieldConfiguration].(map[string]any)
	if !ok {
		return Configuration{}, NewValidationError(FieldConfiguration, "configuration must be an object")
	}
	return ConfigurationFromMap(raw)
}

// WithConfiguration returns a copy whose configuration is replaced wholesale.
func (d Document) WithConfiguration(cfg Configuration) Document {
	out := d.Clone()
	if out == nil {
		out = Document{}
	}
	out[FieldConfiguration] = cfg.ToMap()
	return out
}

// Configuration is the {specification, settings} pair every document carries.
type Configuration struct {
	Specification map[string]any `json:"specification"`
	Settings      map[string]any `json:"settings"`
}

// ConfigurationFromMap validates that raw has exactly the keys specification and settings,
// both holding objects.
func ConfigurationFromMap(raw map[string]any) (Configuration, error) {
	if raw == nil {
		return Configuration{}, NewValidationError(FieldConfiguration, "configuration is required")
	}
	extra := make([]string, 0)
	for key := range raw {
		if key != FieldSpecification && key != FieldSettings {
			extra = append(extra, key)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return Configuration{}, NewValidationError(FieldConfiguration,
			fmt.Sprintf("unexpected configuration keys: %s", strings.Join(extra, ", ")))
	}
	spec, err := objectField(raw, FieldSpecification)
	if err != nil {
		return Configuration{}, err
	}
	settings, err := objectField(raw, FieldSettings)
	if err != nil {
		return Configuration{}, err
	}
	return Configuration{Specification: spec, Settings: settings}, nil
}

func objectField(raw map[string]any, key string) (map[string]any, error) {
	value, ok := raw[key]
	if !ok {
		return nil, NewValidationError(FieldConfiguration+"."+key, key+" is required")
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, NewValidationError(FieldConfiguration+"."+key, key+" must be an object")
	}
	return deepCopyValue(obj).(map[string]any), nil
}

// ToMap renders the configuration as a JSON object.
func (c Configuration) ToMap() map[string]any {
	spec := c.Specification
	if spec == nil {
		spec = map[string]any{}
	}
	settings := c.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	return map[string]any{
		FieldSpecification: deepCopyValue(spec),
		FieldSettings:      deepCopyValue(settings),
	}
}

// KindRecord is one persisted instance of an accepted kind.
type KindRecord struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	State       State     `json:"state"`
	Document    Document  `json:"document"`
}

// NewKindRecord builds a record from a submitted document. The header columns are copied
// from the document and the configuration is normalized to exactly its two sub-objects.
func NewKindRecord(id uuid.UUID, doc Document, state State) (*KindRecord, error) {
	if id == uuid.Nil {
		return nil, NewValidationError("id", "record id cannot be nil")
	}
	if state == "" {
		state = StateNew
	}
	if !state.IsValid() {
		_, err := ParseState(string(state))
		return nil, err
	}
	if doc == nil {
		return nil, NewValidationError("document", "document is required")
	}
	cfg, err := doc.Configuration()
	if err != nil {
		return nil, err
	}
	kind := doc.String(FieldKind)
	if kind == "" {
		return nil, NewValidationError(FieldKind, "kind is required")
	}
	if utf8.RuneCountInString(kind) > KindMaxLength {
		return nil, NewValidationError(FieldKind, fmt.Sprintf("kind exceeds %d characters", KindMaxLength))
	}
	return &KindRecord{
		ID:          id,
		Kind:        kind,
		Name:        doc.String(FieldName),
		Description: doc.String(FieldDescription),
		Version:     doc.String(FieldVersion),
		State:       state,
		Document:    doc.WithConfiguration(cfg),
	}, nil
}

// Clone returns a deep copy of the record.
func (r *KindRecord) Clone() *KindRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Document = r.Document.Clone()
	return &out
}
