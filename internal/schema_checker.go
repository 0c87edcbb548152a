package internal

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/lychee-technology/kindgen"
	"go.uber.org/zap"
)

// lengthBoundedFields may narrow their maxLength but never widen it.
var lengthBoundedFields = map[string]bool{
	kindgen.FieldKind:        true,
	kindgen.FieldName:        true,
	kindgen.FieldDescription: true,
}

type schemaChecker struct{}

// NewSchemaChecker returns the structural subset checker used to gate model generation.
func NewSchemaChecker() kindgen.CompatibilityChecker {
	return &schemaChecker{}
}

func (c *schemaChecker) IsSubset(user, main kindgen.Schema) bool {
	return c.Check(user, main) == nil
}

// Check stops at the first failed rule and reports it as a compatibility error.
func (c *schemaChecker) Check(user, main kindgen.Schema) error {
	if err := checkProperties(user, main); err != nil {
		return reject(err)
	}
	if err := checkRequired(user, main, ""); err != nil {
		return reject(err)
	}
	if err := checkConfiguration(ResolveConfiguration(user), ResolveConfiguration(main)); err != nil {
		return reject(err)
	}
	return nil
}

func reject(err *kindgen.KindError) error {
	zap.S().Warnw("schema is not a subset of the main schema",
		"field", err.Field,
		"rule", err.Code,
		"reason", err.Message,
	)
	return err
}

func checkProperties(user, main kindgen.Schema) *kindgen.KindError {
	for _, field := range main.PropertyNames() {
		mainProp, _ := main.Property(field)
		userProp, ok := user.Property(field)
		if !ok {
			return kindgen.NewCompatibilityError(kindgen.ErrCodeFieldMissing, field,
				fmt.Sprintf("field '%s' is missing in the schema", field))
		}

		if field != kindgen.FieldConfiguration && !sameType(userProp, mainProp) {
			return kindgen.NewCompatibilityError(kindgen.ErrCodeTypeMismatch, field,
				fmt.Sprintf("type of field '%s' does not match the main schema", field))
		}

		if lengthBoundedFields[field] {
			if err := checkLength(field, userProp, mainProp); err != nil {
				return err
			}
		}

		if field == kindgen.FieldVersion {
			userPattern, _ := userProp.String("pattern")
			mainPattern, ok := mainProp.String("pattern")
			if !ok || userPattern != mainPattern {
				return kindgen.NewCompatibilityError(kindgen.ErrCodePatternMismatch, field,
					"version pattern must equal the main schema pattern")
			}
		}
	}
	return nil
}

// checkLength enforces user.maxLength <= main.maxLength and user.minLength <= main.maxLength.
// An absent user maxLength is unbounded and an absent minLength is 0.
func checkLength(field string, userProp, mainProp kindgen.Schema) *kindgen.KindError {
	mainMax, ok := numberKeyword(mainProp, "maxLength")
	if !ok {
		return kindgen.NewCompatibilityError(kindgen.ErrCodeLengthWidened, field,
			fmt.Sprintf("main schema declares no maxLength for '%s'", field))
	}

	userMax, ok := numberKeyword(userProp, "maxLength")
	if !ok {
		userMax = math.Inf(1)
	}
	userMin, ok := numberKeyword(userProp, "minLength")
	if !ok {
		userMin = 0
	}

	if userMax > mainMax || userMin > mainMax {
		return kindgen.NewCompatibilityError(kindgen.ErrCodeLengthWidened, field,
			fmt.Sprintf("length of field '%s' is not valid", field)).
			WithDetail("maxLength", mainMax)
	}
	return nil
}

// checkRequired compares `required` as ordered lists and `additionalProperties` by value.
// The user side defaults to [] and true; an absent main side never matches.
func checkRequired(user, main kindgen.Schema, scope string) *kindgen.KindError {
	field := "required"
	if scope != "" {
		field = scope + ".required"
	}

	mainRequired, ok := main.Get("required")
	if !ok {
		return kindgen.NewCompatibilityError(kindgen.ErrCodeRequiredMismatch, field,
			"main schema declares no required fields")
	}
	userRequired, ok := user.Get("required")
	if !ok {
		userRequired = []any{}
	}
	if !sameValue(userRequired, mainRequired) {
		return kindgen.NewCompatibilityError(kindgen.ErrCodeRequiredMismatch, field,
			"required fields of the schema are not valid")
	}

	field = "additionalProperties"
	if scope != "" {
		field = scope + ".additionalProperties"
	}
	mainAdditional, ok := main.Get("additionalProperties")
	if !ok {
		return kindgen.NewCompatibilityError(kindgen.ErrCodeAdditionalMismatch, field,
			"main schema does not declare additionalProperties")
	}
	userAdditional, ok := user.Get("additionalProperties")
	if !ok {
		userAdditional = true
	}
	if !sameValue(userAdditional, mainAdditional) {
		return kindgen.NewCompatibilityError(kindgen.ErrCodeAdditionalMismatch, field,
			"additionalProperties must equal the main schema")
	}
	return nil
}

// checkConfiguration applies presence and type equality only; lengths and patterns are not
// compared at this level.
func checkConfiguration(user, main kindgen.Schema) *kindgen.KindError {
	for _, name := range main.PropertyNames() {
		field := kindgen.FieldConfiguration + "." + name
		mainProp, _ := main.Property(name)
		userProp, ok := user.Property(name)
		if !ok {
			return kindgen.NewCompatibilityError(kindgen.ErrCodeFieldMissing, field,
				fmt.Sprintf("field '%s' is missing in the schema configuration", name))
		}
		if !sameType(userProp, mainProp) {
			return kindgen.NewCompatibilityError(kindgen.ErrCodeTypeMismatch, field,
				fmt.Sprintf("type of field '%s' is not valid in the schema configuration", name))
		}
	}
	return checkRequired(user, main, kindgen.FieldConfiguration)
}

// sameType compares `type` keywords. A missing user type counts as "" and a missing main
// type matches nothing.
func sameType(user, main kindgen.Schema) bool {
	mainType, ok := main.Type()
	if !ok {
		return false
	}
	userType, ok := user.Type()
	if !ok {
		userType = ""
	}
	return sameValue(userType, mainType)
}

// sameValue compares decoded JSON values, treating []string and []any of the same strings alike.
func sameValue(a, b any) bool {
	return reflect.DeepEqual(normalizeJSON(a), normalizeJSON(b))
}

func normalizeJSON(v any) any {
	switch typed := v.(type) {
	case []string:
		out := make([]any, len(typed))
		for i, s := range typed {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeJSON(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = normalizeJSON(item)
		}
		return out
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case json.Number:
		f, err := typed.Float64()
		if err != nil {
			return typed.String()
		}
		return f
	default:
		return typed
	}
}

func numberKeyword(s kindgen.Schema, key string) (float64, bool) {
	raw, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	f, ok := normalizeJSON(raw).(float64)
	return f, ok
}
