package internal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/lychee-technology/kindgen"
	"go.uber.org/zap"
	"golang.org/x/mod/modfile"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	routerTemplate  = template.Must(template.ParseFS(templateFS, "templates/router.go.tmpl"))
	routersTemplate = template.Must(template.ParseFS(templateFS, "templates/routers.go.tmpl"))
)

// RoutersFileName is the aggregate file listing every generated router.
const RoutersFileName = "routers.go"

func renderTemplate(tpl *template.Template, data any) (string, error) {
	var builder strings.Builder
	if err := tpl.Execute(&builder, data); err != nil {
		return "", err
	}
	return builder.String(), nil
}

type templateRouterGenerator struct{}

// NewRouterGenerator renders the embedded chi router template.
func NewRouterGenerator() kindgen.RouterGenerator {
	return &templateRouterGenerator{}
}

// RouterFileName is the file a kind's router is written to.
func RouterFileName(kind string) string {
	return strings.ToLower(kind) + "_router.go"
}

func (g *templateRouterGenerator) GenerateRouter(values kindgen.RouterValues) (*kindgen.GeneratedRouterArtifact, error) {
	if values.Kind == "" || values.MainModel == "" || values.ModelImport == "" {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeGeneratorFailed, "",
			"router values require kind, main model and model import", nil)
	}
	if values.Package == "" {
		values.Package = "routes"
	}
	if values.ModelPkg == "" {
		values.ModelPkg = path.Base(values.ModelImport)
	}

	rendered, err := renderTemplate(routerTemplate, values)
	if err != nil {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeGeneratorFailed, values.Kind, "failed to render router template", err)
	}
	source, err := format.Source([]byte(rendered))
	if err != nil {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeGeneratorFailed, values.Kind, "generated router is not valid Go", err)
	}

	return &kindgen.GeneratedRouterArtifact{
		Kind:     values.Kind,
		TypeName: values.MainModel,
		FileName: RouterFileName(values.Kind),
		Source:   source,
	}, nil
}

// RouteGenerator renders a router for every generated model in a directory.
type RouteGenerator struct {
	generator kindgen.RouterGenerator
	store     kindgen.ArtifactStore
	pkg       string
}

// NewRouteGenerator writes routers into store under package pkg.
func NewRouteGenerator(generator kindgen.RouterGenerator, store kindgen.ArtifactStore, pkg string) *RouteGenerator {
	if pkg == "" {
		pkg = "routes"
	}
	return &RouteGenerator{generator: generator, store: store, pkg: pkg}
}

// GenerateRoutes scans modelsDir for <kind>_model.go files, renders one router per model and
// a routers.go aggregate registering all of them. Any file that is not a generated model
// aborts the run.
func (g *RouteGenerator) GenerateRoutes(ctx context.Context, modelsDir string) ([]*kindgen.GeneratedRouterArtifact, error) {
	info, err := os.Stat(modelsDir)
	if err != nil || !info.IsDir() {
		return nil, kindgen.NewInputError(kindgen.ErrCodeInvalidPath, modelsDir, "models directory not found", err)
	}

	modelImport, err := moduleImportPath(modelsDir)
	if err != nil {
		return nil, kindgen.NewInputError(kindgen.ErrCodeInvalidPath, modelsDir, err.Error(), err)
	}

	files, err := filepath.Glob(filepath.Join(modelsDir, "*.go"))
	if err != nil {
		return nil, kindgen.NewInputError(kindgen.ErrCodeInvalidPath, modelsDir, "cannot list models directory", err)
	}

	artifacts := make([]*kindgen.GeneratedRouterArtifact, 0, len(files))
	routers := make([]string, 0, len(files))
	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		model, err := inspectModelFile(file)
		if err != nil {
			return nil, err
		}

		values := kindgen.RouterValues{
			Package:     g.pkg,
			ModelImport: modelImport,
			ModelPkg:    model.pkg,
			MainModel:   model.mainModel,
			ConfigModel: model.configModel,
			Kind:        model.kind,
		}
		zap.S().Debugw("generating router", "model", file, "values", values)

		artifact, err := g.generator.GenerateRouter(values)
		EmitGeneration(ctx, "router", err)
		if err != nil {
			return nil, err
		}
		artifact.Location, err = g.store.Put(ctx, artifact.FileName, artifact.Source)
		if err != nil {
			return nil, err
		}
		zap.S().Infow("generated router", "kind", artifact.Kind, "location", artifact.Location)

		artifacts = append(artifacts, artifact)
		routers = append(routers, model.mainModel)
	}

	rendered, err := renderTemplate(routersTemplate, map[string]any{
		"Package": g.pkg,
		"Routers": routers,
	})
	if err != nil {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeGeneratorFailed, RoutersFileName, "failed to render routers", err)
	}
	source, err := format.Source([]byte(rendered))
	if err != nil {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeGeneratorFailed, RoutersFileName, "generated routers file is not valid Go", err)
	}
	if _, err := g.store.Put(ctx, RoutersFileName, source); err != nil {
		return nil, err
	}

	return artifacts, nil
}

type modelFileInfo struct {
	pkg         string
	kind        string
	mainModel   string
	configModel string
}

// inspectModelFile checks that file is valid Go named <kind>_model.go and declares the
// <Kind> type with its <Kind>Kind and <Kind>Schema constants.
func inspectModelFile(file string) (*modelFileInfo, error) {
	base := filepath.Base(file)
	kind := strings.TrimSuffix(base, "_model.go")
	if kind == base || kind == "" {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeInvalidModelFile, file,
			"not a valid model file, the filename must be <kind>_model.go", nil)
	}

	parsed, err := parser.ParseFile(token.NewFileSet(), file, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeInvalidModelFile, file, "not a valid Go file", err)
	}

	typeNames := make(map[string]bool)
	consts := make(map[string]bool)
	var mainModel string
	for _, decl := range parsed.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		for _, spec := range gen.Specs {
			switch s := spec.(type) {
			case *ast.TypeSpec:
				typeNames[s.Name.Name] = true
				if strings.ToLower(s.Name.Name) == kind {
					mainModel = s.Name.Name
				}
			case *ast.ValueSpec:
				for _, name := range s.Names {
					consts[name.Name] = true
				}
			}
		}
	}

	if mainModel == "" {
		return nil, kindgen.NewGenerationError(kindgen.ErrCodeInvalidModelFile, file,
			fmt.Sprintf("model file declares no type for kind %q", kind), nil)
	}
	for _, name := range []string{mainModel + "Kind", mainModel + "Schema"} {
		if !consts[name] {
			return nil, kindgen.NewGenerationError(kindgen.ErrCodeInvalidModelFile, file,
				fmt.Sprintf("model file is missing %s", name), nil)
		}
	}

	info := &modelFileInfo{
		pkg:       parsed.Name.Name,
		kind:      kind,
		mainModel: mainModel,
	}
	if typeNames[mainModel+"Configuration"] {
		info.configModel = mainModel + "Configuration"
	}
	return info, nil
}

// moduleImportPath derives the import path of dir from the nearest enclosing go.mod.
func moduleImportPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for cur := abs; ; {
		data, err := os.ReadFile(filepath.Join(cur, "go.mod"))
		if err == nil {
			modulePath := modfile.ModulePath(data)
			if modulePath == "" {
				return "", fmt.Errorf("%s declares no module path", filepath.Join(cur, "go.mod"))
			}
			rel, err := filepath.Rel(cur, abs)
			if err != nil {
				return "", err
			}
			if rel == "." {
				return modulePath, nil
			}
			return path.Join(modulePath, filepath.ToSlash(rel)), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("no go.mod found above %s", abs)
		}
		cur = parent
	}
}
