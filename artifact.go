package kindgen

// GeneratedModelArtifact is the typed model produced for an accepted kind schema.
// Regenerating the same kind overwrites the artifact at Location.
type GeneratedModelArtifact struct {
	Kind           string `json:"kind"`
	TypeName       string `json:"typeName"`
	ConfigTypeName string `json:"configTypeName"`
	SourceName     string `json:"sourceName"`
	FileName       string `json:"fileName"`
	Location       string `json:"location"`
	Source         []byte `json:"-"`
}

// RouterValues is the key/value context handed to the router generator.
type RouterValues struct {
	Package     string `json:"package"`
	ModelImport string `json:"model_dir"`
	ModelPkg    string `json:"model_pkg"`
	MainModel   string `json:"main_model"`
	ConfigModel string `json:"config_model"`
	Kind        string `json:"kind"`
}

// GeneratedRouterArtifact is the REST resource source produced for a kind.
type GeneratedRouterArtifact struct {
	Kind     string `json:"kind"`
	TypeName string `json:"typeName"`
	FileName string `json:"fileName"`
	Location string `json:"location"`
	Source   []byte `json:"-"`
}

// KindDefinition is an accepted kind known to a KindRegistry.
type KindDefinition struct {
	Kind       string `json:"kind"`
	TypeName   string `json:"typeName"`
	SourcePath string `json:"sourcePath"`
	Schema     Schema `json:"schema"`
}
