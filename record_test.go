package kindgen

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		FieldKind:        "test",
		FieldName:        "test",
		FieldDescription: "test",
		FieldVersion:     "1.0.0",
		FieldConfiguration: map[string]any{
			FieldSpecification: map[string]any{"image": "nginx"},
			FieldSettings:      map[string]any{},
		},
	}
}

func TestParseState(t *testing.T) {
	for _, state := range States() {
		parsed, err := ParseState(string(state))
		require.NoError(t, err)
		assert.Equal(t, state, parsed)
	}

	for _, value := range []string{"", "new", "PAUSED", "STOPPED"} {
		_, err := ParseState(value)
		require.Error(t, err, value)
		assert.True(t, IsValidationError(err))

		var kindErr *KindError
		require.ErrorAs(t, err, &kindErr)
		assert.Equal(t, ErrCodeInvalidState, kindErr.Code)
	}
}

func TestStateUnmarshalJSON(t *testing.T) {
	var body struct {
		State State `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"state":"INSTALLING"}`), &body))
	assert.Equal(t, StateInstalling, body.State)

	err := json.Unmarshal([]byte(`{"state":"DONE"}`), &body)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	err = json.Unmarshal([]byte(`{"state":3}`), &body)
	assert.Error(t, err)
}

func TestConfigurationFromMap(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantErr bool
	}{
		{
			name: "both objects",
			raw:  map[string]any{FieldSpecification: map[string]any{}, FieldSettings: map[string]any{"a": 1.0}},
		},
		{name: "nil", raw: nil, wantErr: true},
		{name: "missing settings", raw: map[string]any{FieldSpecification: map[string]any{}}, wantErr: true},
		{name: "missing specification", raw: map[string]any{FieldSettings: map[string]any{}}, wantErr: true},
		{
			name:    "settings not an object",
			raw:     map[string]any{FieldSpecification: map[string]any{}, FieldSettings: []any{}},
			wantErr: true,
		},
		{
			name: "extra key",
			raw: map[string]any{
				FieldSpecification: map[string]any{},
				FieldSettings:      map[string]any{},
				"secrets":          map[string]any{},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ConfigurationFromMap(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, cfg.ToMap())
		})
	}
}

func TestDocumentWithConfigurationCopies(t *testing.T) {
	doc := sampleDocument()
	updated := doc.WithConfiguration(Configuration{
		Specification: map[string]any{"image": "caddy"},
		Settings:      map[string]any{"replicas": 3.0},
	})

	original, err := doc.Configuration()
	require.NoError(t, err)
	assert.Equal(t, "nginx", original.Specification["image"])

	cfg, err := updated.Configuration()
	require.NoError(t, err)
	assert.Equal(t, "caddy", cfg.Specification["image"])
	assert.Equal(t, 3.0, cfg.Settings["replicas"])
	assert.Equal(t, doc[FieldName], updated[FieldName])
}

func TestNewKindRecord(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	record, err := NewKindRecord(id, sampleDocument(), "")
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, "test", record.Kind)
	assert.Equal(t, "1.0.0", record.Version)
	assert.Equal(t, StateNew, record.State)

	clone := record.Clone()
	clone.Document[FieldName] = "changed"
	assert.Equal(t, "test", record.Document[FieldName])

	_, err = NewKindRecord(uuid.Nil, sampleDocument(), StateNew)
	assert.True(t, IsValidationError(err))

	_, err = NewKindRecord(id, sampleDocument(), State("PAUSED"))
	assert.True(t, IsValidationError(err))

	noKind := sampleDocument()
	delete(noKind, FieldKind)
	_, err = NewKindRecord(id, noKind, StateNew)
	assert.True(t, IsValidationError(err))

	longKind := sampleDocument()
	longKind[FieldKind] = "abcdefghijklmnopqrstuvwxyz0123456789"
	_, err = NewKindRecord(id, longKind, StateNew)
	assert.True(t, IsValidationError(err))

	// 25 characters, 48 bytes: the bound counts characters like maxLength and varchar.
	multibyte := sampleDocument()
	multibyte[FieldKind] = "приложение-сервис-кластер"
	record, err = NewKindRecord(id, multibyte, StateNew)
	require.NoError(t, err)
	assert.Equal(t, "приложение-сервис-кластер", record.Kind)

	tooManyRunes := sampleDocument()
	tooManyRunes[FieldKind] = strings.Repeat("я", KindMaxLength+1)
	_, err = NewKindRecord(id, tooManyRunes, StateNew)
	assert.True(t, IsValidationError(err))

	noConfiguration := sampleDocument()
	delete(noConfiguration, FieldConfiguration)
	_, err = NewKindRecord(id, noConfiguration, StateNew)
	assert.True(t, IsValidationError(err))
}
