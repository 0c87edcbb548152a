package kindgen

// Field bounds of the platform contract.
const (
	KindMaxLength        = 32
	NameMaxLength        = 128
	DescriptionMaxLength = 4096
)

// SemverPattern is the only version grammar a kind may declare.
const SemverPattern = `^(?P<major>0|[1-9]\d*)\.(?P<minor>0|[1-9]\d*)\.(?P<patch>0|[1-9]\d*)` +
	`(?:-(?P<prerelease>(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*))?` +
	`(?:\+(?P<buildmetadata>[0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`

// Top-level property names of the contract.
const (
	FieldKind          = "kind"
	FieldName          = "name"
	FieldDescription   = "description"
	FieldVersion       = "version"
	FieldConfiguration = "configuration"
	FieldSpecification = "specification"
	FieldSettings      = "settings"
)

// ConfigurationDefinition is the definitions key the contract stores the configuration under.
const ConfigurationDefinition = "Configuration"

// MainSchema returns the platform contract every kind schema must specialize.
// Numbers are float64 so the value compares equal to the same document decoded from disk.
func MainSchema() Schema {
	return Schema{raw: map[string]any{
		"title": "Main Schema",
		"type":  "object",
		"properties": map[string]any{
			FieldKind: map[string]any{
				"title":     "Kind",
				"minLength": float64(1),
				"maxLength": float64(KindMaxLength),
				"type":      "string",
			},
			FieldName: map[string]any{
				"title":     "Name",
				"minLength": float64(1),
				"maxLength": float64(NameMaxLength),
				"type":      "string",
			},
			FieldDescription: map[string]any{
				"title":     "Description",
				"minLength": float64(1),
				"maxLength": float64(DescriptionMaxLength),
				"type":      "string",
			},
			FieldVersion: map[string]any{
				"title":   "Version",
				"pattern": SemverPattern,
				"type":    "string",
			},
			FieldConfiguration: map[string]any{
				"$ref": "#/definitions/" + ConfigurationDefinition,
			},
		},
		"required": []any{
			FieldKind,
			FieldName,
			FieldDescription,
			FieldVersion,
			FieldConfiguration,
		},
		"additionalProperties": false,
		"definitions": map[string]any{
			ConfigurationDefinition: map[string]any{
				"title": "Configuration",
				"type":  "object",
				"properties": map[string]any{
					FieldSpecification: map[string]any{
						"title": "Specification",
						"type":  "object",
					},
					FieldSettings: map[string]any{
						"title": "Settings",
						"type":  "object",
					},
				},
				"required":             []any{FieldSpecification, FieldSettings},
				"additionalProperties": false,
			},
		},
	}}
}
