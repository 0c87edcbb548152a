package kindgen

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Schema is a read-only view over a JSON Schema document.
// Lookups report absence through their boolean result instead of failing, so callers can
// treat "missing" as a rule violation without extra guards.
type Schema struct {
	raw map[string]any
}

// NewSchema wraps a decoded JSON object. The map is deep-copied so later edits by the
// caller do not leak into the schema.
func NewSchema(raw map[string]any) Schema {
	if raw == nil {
		return Schema{}
	}
	return Schema{raw: deepCopyValue(raw).(map[string]any)}
}

// ParseSchema decodes a JSON document into a Schema.
func ParseSchema(data []byte) (Schema, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Schema{}, fmt.Errorf("decode schema: %w", err)
	}
	return Schema{raw: raw}, nil
}

// IsZero reports whether the schema holds no keywords at all.
func (s Schema) IsZero() bool {
	return len(s.raw) == 0
}

// Raw returns a deep copy of the underlying JSON object.
func (s Schema) Raw() map[string]any {
	if s.raw == nil {
		return map[string]any{}
	}
	return deepCopyValue(s.raw).(map[string]any)
}

// Get returns the raw keyword value.
func (s Schema) Get(key string) (any, bool) {
	v, ok := s.raw[key]
	return v, ok
}

// With returns a copy of the schema with key set to value.
func (s Schema) With(key string, value any) Schema {
	raw := s.Raw()
	raw[key] = deepCopyValue(value)
	return Schema{raw: raw}
}

// Clone returns an independent copy.
func (s Schema) Clone() Schema {
	return Schema{raw: s.Raw()}
}

// Object returns the keyword as a sub-schema when it holds a JSON object.
func (s Schema) Object(key string) (Schema, bool) {
	v, ok := s.raw[key].(map[string]any)
	if !ok {
		return Schema{}, false
	}
	return Schema{raw: v}, true
}

// Properties returns the `properties` map. Entries that are not objects map to an empty schema.
func (s Schema) Properties() map[string]Schema {
	props, ok := s.raw["properties"].(map[string]any)
	if !ok {
		return map[string]Schema{}
	}
	out := make(map[string]Schema, len(props))
	for name, value := range props {
		sub, _ := value.(map[string]any)
		out[name] = Schema{raw: sub}
	}
	return out
}

// PropertyNames returns the property names in sorted order.
func (s Schema) PropertyNames() []string {
	props, _ := s.raw["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Property looks up a single entry of `properties`.
func (s Schema) Property(name string) (Schema, bool) {
	props, ok := s.raw["properties"].(map[string]any)
	if !ok {
		return Schema{}, false
	}
	value, ok := props[name]
	if !ok {
		return Schema{}, false
	}
	sub, _ := value.(map[string]any)
	return Schema{raw: sub}, true
}

// Required returns the ordered `required` list. It reports false when the keyword is absent
// or is not a list of strings.
func (s Schema) Required() ([]string, bool) {
	items, ok := s.raw["required"].([]any)
	if !ok {
		if typed, ok := s.raw["required"].([]string); ok {
			return append([]string(nil), typed...), true
		}
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, str)
	}
	return out, true
}

// IsRequired reports whether name appears in `required`.
func (s Schema) IsRequired(name string) bool {
	required, _ := s.Required()
	for _, r := range required {
		if r == name {
			return true
		}
	}
	return false
}

// AdditionalProperties returns `additionalProperties` when it is a boolean.
func (s Schema) AdditionalProperties() (bool, bool) {
	v, ok := s.raw["additionalProperties"].(bool)
	return v, ok
}

// Definitions returns the `definitions` map.
func (s Schema) Definitions() map[string]Schema {
	defs, ok := s.raw["definitions"].(map[string]any)
	if !ok {
		return map[string]Schema{}
	}
	out := make(map[string]Schema, len(defs))
	for name, value := range defs {
		sub, _ := value.(map[string]any)
		out[name] = Schema{raw: sub}
	}
	return out
}

// Definition looks up a single entry of `definitions`.
func (s Schema) Definition(name string) (Schema, bool) {
	defs, ok := s.raw["definitions"].(map[string]any)
	if !ok {
		return Schema{}, false
	}
	sub, ok := defs[name].(map[string]any)
	if !ok {
		return Schema{}, false
	}
	return Schema{raw: sub}, true
}

// Type returns the raw `type` keyword, which may be a string or a list of strings.
func (s Schema) Type() (any, bool) {
	v, ok := s.raw["type"]
	return v, ok
}

// TypeName returns `type` when it is a single string.
func (s Schema) TypeName() (string, bool) {
	return s.String("type")
}

// String returns a string keyword.
func (s Schema) String(key string) (string, bool) {
	v, ok := s.raw[key].(string)
	return v, ok
}

// Int returns an integral numeric keyword such as maxLength.
func (s Schema) Int(key string) (int, bool) {
	switch v := s.raw[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Ref returns the `$ref` pointer.
func (s Schema) Ref() (string, bool) {
	return s.String("$ref")
}

// Title returns the `title` keyword.
func (s Schema) Title() (string, bool) {
	return s.String("title")
}

// MarshalJSON encodes the schema with sorted keys.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.raw == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.raw)
}

// UnmarshalJSON decodes a JSON object into the schema.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.raw = raw
	return nil
}

func deepCopyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = deepCopyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = deepCopyValue(val)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
