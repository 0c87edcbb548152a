package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/format"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/lychee-technology/kindgen"
)

// initialisms are rendered upper-case in Go identifiers.
var initialisms = map[string]bool{
	"API": true, "CPU": true, "HTTP": true, "ID": true, "JSON": true, "URL": true, "URI": true, "UUID": true, "SQL": true,
}

type goModelGenerator struct {
	pkg string
}

// NewModelGenerator returns a generator that renders Go structs into package pkg.
func NewModelGenerator(pkg string) kindgen.ModelGenerator {
	if pkg == "" {
		pkg = "models"
	}
	return &goModelGenerator{pkg: pkg}
}

// ModelFileName is the file a kind's model is written to.
func ModelFileName(typeName string) string {
	return strings.ToLower(typeName) + "_model.go"
}

// GenerateModel renders one struct per object schema, plus a <Type>Schema constant with
// the schema document. Output is gofmt'd and deterministic for a given input.
func (g *goModelGenerator) GenerateModel(schema kindgen.Schema, typeName, sourceName string) (*kindgen.GeneratedModelArtifact, error) {
	if !isGoIdentifier(typeName) {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeGeneratorFailed, sourceName,
			fmt.Sprintf("%q is not a valid type name", typeName), nil)
	}

	w := newModelWriter(schema, typeName)
	w.enqueue(typeName, schema)
	for len(w.pending) > 0 {
		job := w.pending[0]
		w.pending = w.pending[1:]
		if err := w.writeStruct(job.name, job.schema); err != nil {
			return nil, kindgen.NewGenerationError(kindgen.ErrCodeGeneratorFailed, sourceName, err.Error(), err)
		}
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeGeneratorFailed, sourceName, "failed to encode schema", err)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "// Code generated by kindgen-tools from %s. DO NOT EDIT.\n\n", sourceLabel(sourceName))
	fmt.Fprintf(&out, "package %s\n\n", g.pkg)
	if len(w.imports) > 0 {
		imports := make([]string, 0, len(w.imports))
		for imp := range w.imports {
			imports = append(imports, imp)
		}
		sort.Strings(imports)
		out.WriteString("import (\n")
		for _, imp := range imports {
			fmt.Fprintf(&out, "\t%q\n", imp)
		}
		out.WriteString(")\n\n")
	}
	fmt.Fprintf(&out, "// %sKind is the lowercase kind tag used in REST paths.\n", typeName)
	fmt.Fprintf(&out, "const %sKind = %q\n\n", typeName, strings.ToLower(typeName))
	fmt.Fprintf(&out, "// %sSchema is the accepted JSON Schema the model was generated from.\n", typeName)
	fmt.Fprintf(&out, "const %sSchema = %s\n\n", typeName, goStringLiteral(string(schemaJSON)))
	out.Write(w.buf.Bytes())

	source, err := format.Source(out.Bytes())
	if err != nil {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeGeneratorFailed, sourceName, "generated model is not valid Go", err)
	}

	return &kindgen.GeneratedModelArtifact{
		Kind:           strings.ToLower(typeName),
		TypeName:       typeName,
		ConfigTypeName: w.configTypeName(),
		SourceName:     sourceName,
		FileName:       ModelFileName(typeName),
		Source:         source,
	}, nil
}

type structJob struct {
	name   string
	schema kindgen.Schema
}

type modelField struct {
	name string
	typ  string
	tag  string
	doc  string
}

// modelWriter accumulates struct declarations for one schema document.
type modelWriter struct {
	buf     *bytes.Buffer
	indent  int
	imports map[string]bool

	root     kindgen.Schema
	typeName string
	pending  []structJob
	names    map[string]bool
	refTypes map[string]string
}

// newModelWriter reserves the names of the <Type>Kind and <Type>Schema constants so no
// struct can take them.
func newModelWriter(root kindgen.Schema, typeName string) *modelWriter {
	return &modelWriter{
		buf:      &bytes.Buffer{},
		imports:  make(map[string]bool),
		root:     root,
		typeName: typeName,
		names: map[string]bool{
			typeName + "Kind":   true,
			typeName + "Schema": true,
		},
		refTypes: make(map[string]string),
	}
}

func (w *modelWriter) writeLine(format string, args ...any) {
	if format == "" {
		w.buf.WriteString("\n")
		return
	}
	for i := 0; i < w.indent; i++ {
		w.buf.WriteString("\t")
	}
	if len(args) > 0 {
		w.buf.WriteString(fmt.Sprintf(format, args...))
	} else {
		w.buf.WriteString(format)
	}
	w.buf.WriteString("\n")
}

// enqueue reserves a unique struct name and schedules its declaration.
func (w *modelWriter) enqueue(name string, schema kindgen.Schema) string {
	unique := name
	for i := 2; w.names[unique]; i++ {
		unique = fmt.Sprintf("%s%d", name, i)
	}
	w.names[unique] = true
	w.pending = append(w.pending, structJob{name: unique, schema: schema})
	return unique
}

func (w *modelWriter) writeStruct(name string, schema kindgen.Schema) error {
	fields := make([]modelField, 0)
	used := make(map[string]bool)

	for _, prop := range schema.PropertyNames() {
		if strings.ContainsAny(prop, "`\",") {
			return fmt.Errorf("property %q of %s cannot be used as a JSON field name", prop, name)
		}
		propSchema, _ := schema.Property(prop)
		required := schema.IsRequired(prop)

		typ := w.goType(name, prop, propSchema)
		if !required && needsPointer(typ) {
			typ = "*" + typ
		}
		tag := prop
		if !required {
			tag += ",omitempty"
		}

		fieldName := exportName(prop)
		unique := fieldName
		for i := 2; used[unique]; i++ {
			unique = fmt.Sprintf("%s%d", fieldName, i)
		}
		used[unique] = true

		doc, _ := propSchema.String("description")
		fields = append(fields, modelField{
			name: unique,
			typ:  typ,
			tag:  fmt.Sprintf("`json:\"%s\"`", tag),
			doc:  doc,
		})
	}

	if desc, ok := schema.String("description"); ok && desc != "" {
		w.writeComment(desc)
	} else if title, ok := schema.Title(); ok && title != "" {
		w.writeLine("// %s is generated from the %q schema.", name, title)
	}
	w.writeLine("type %s struct {", name)
	w.indent++
	for _, f := range fields {
		if f.doc != "" {
			w.writeComment(f.doc)
		}
		w.writeLine("%s %s %s", f.name, f.typ, f.tag)
	}
	w.indent--
	w.writeLine("}")
	w.writeLine("")
	return nil
}

func (w *modelWriter) writeComment(text string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		w.writeLine("// %s", strings.TrimSpace(line))
	}
}

// goType maps a property schema to a Go type, scheduling nested structs as needed.
func (w *modelWriter) goType(parent, prop string, schema kindgen.Schema) string {
	if ref, ok := schema.Ref(); ok {
		return w.refType(ref)
	}

	switch schemaTypeName(schema) {
	case "string":
		if f, _ := schema.String("format"); f == "date-time" {
			w.imports["time"] = true
			return "time.Time"
		}
		return "string"
	case "integer":
		return "int64"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "array":
		items, ok := schema.Object("items")
		if !ok {
			return "[]any"
		}
		return "[]" + w.goType(parent, prop+"Item", items)
	case "object":
		if len(schema.PropertyNames()) == 0 {
			return "map[string]any"
		}
		return w.enqueue(parent+exportName(prop), schema)
	default:
		return "any"
	}
}

// refType resolves a local definition reference once and names it after the kind.
func (w *modelWriter) refType(ref string) string {
	if typ, ok := w.refTypes[ref]; ok {
		return typ
	}

	key := ref[strings.LastIndex(ref, "/")+1:]
	def, ok := w.root.Definition(key)
	if !ok {
		if defs, found := w.root.Object("$defs"); found {
			def, ok = defs.Object(key)
		}
	}
	if !ok {
		w.refTypes[ref] = "any"
		return "any"
	}

	var typ string
	if schemaTypeName(def) == "object" && len(def.PropertyNames()) > 0 {
		typ = w.enqueue(w.typeName+exportName(key), def)
	} else {
		typ = w.goType(w.typeName, exportName(key), def)
	}
	w.refTypes[ref] = typ
	return typ
}

func (w *modelWriter) configTypeName() string {
	cfg, ok := w.root.Property(kindgen.FieldConfiguration)
	if ok {
		if ref, ok := cfg.Ref(); ok {
			if typ, ok := w.refTypes[ref]; ok && typ != "any" {
				return typ
			}
		}
	}
	candidate := w.typeName + exportName(kindgen.FieldConfiguration)
	if w.names[candidate] {
		return candidate
	}
	return ""
}

// schemaTypeName returns the first non-null type of a schema.
func schemaTypeName(schema kindgen.Schema) string {
	raw, ok := schema.Type()
	if !ok {
		return ""
	}
	switch typed := raw.(type) {
	case string:
		return typed
	case []any:
		for _, item := range typed {
			if s, ok := item.(string); ok && s != "null" {
				return s
			}
		}
	}
	return ""
}

func needsPointer(typ string) bool {
	return !strings.HasPrefix(typ, "[]") && !strings.HasPrefix(typ, "map[") && typ != "any"
}

// exportName converts a JSON property name into an exported Go identifier.
func exportName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, part := range parts {
		upper := strings.ToUpper(part)
		if initialisms[upper] {
			b.WriteString(upper)
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	out := b.String()
	if out == "" {
		return "Field"
	}
	if unicode.IsDigit([]rune(out)[0]) {
		return "X" + out
	}
	return out
}

func isGoIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return unicode.IsUpper([]rune(name)[0])
}

func goStringLiteral(s string) string {
	if strings.ContainsRune(s, '`') {
		return strconv.Quote(s)
	}
	return "`" + s + "`"
}

func sourceLabel(sourceName string) string {
	if sourceName == "" {
		return "a JSON Schema"
	}
	return sourceName
}
