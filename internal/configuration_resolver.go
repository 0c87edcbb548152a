package internal

import (
	"strings"

	"github.com/lychee-technology/kindgen"
)

// ResolveConfiguration returns the schema of the `configuration` property.
// A local `$ref` is followed exactly once: the key after the last "/" is looked up in
// `definitions`, and an unknown key yields an empty schema. Definitions that point at
// other definitions are returned as-is.
func ResolveConfiguration(schema kindgen.Schema) kindgen.Schema {
	cfg, ok := schema.Property(kindgen.FieldConfiguration)
	if !ok {
		return kindgen.Schema{}
	}

	ref, ok := cfg.Ref()
	if !ok {
		return cfg
	}

	key := ref[strings.LastIndex(ref, "/")+1:]
	def, ok := schema.Definition(key)
	if !ok {
		return kindgen.Schema{}
	}
	return def
}
