package kindgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config consolidates settings for the generator tools and the record server
type Config struct {
	Database   DatabaseConfig   `json:"database" mapstructure:"database"`
	Storage    StorageConfig    `json:"storage" mapstructure:"storage"`
	Schema     SchemaConfig     `json:"schema" mapstructure:"schema"`
	Generation GenerationConfig `json:"generation" mapstructure:"generation"`
	Artifacts  ArtifactsConfig  `json:"artifacts" mapstructure:"artifacts"`
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host" mapstructure:"host"`
	Port            int           `json:"port" mapstructure:"port"`
	Database        string        `json:"database" mapstructure:"database"`
	Username        string        `json:"username" mapstructure:"username"`
	Password        string        `json:"password" mapstructure:"password"`
	SSLMode         string        `json:"sslMode" mapstructure:"ssl_mode"`
	MaxConnections  int           `json:"maxConnections" mapstructure:"max_connections"`
	MaxIdleConns    int           `json:"maxIdleConns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime" mapstructure:"conn_max_idle_time"`
	Timeout         time.Duration `json:"timeout" mapstructure:"timeout"`
	// UseIAMAuth replaces Password with an Aurora DSQL auth token.
	UseIAMAuth bool   `json:"useIAMAuth" mapstructure:"use_iam_auth"`
	Region     string `json:"region" mapstructure:"region"`
	TableName  string `json:"tableName" mapstructure:"table_name"`
}

// StorageBackend selects where records live.
type StorageBackend string

const (
	StorageBackendPostgres StorageBackend = "postgres"
	StorageBackendMemory   StorageBackend = "memory"
)

// StorageConfig selects the record store
type StorageConfig struct {
	Backend StorageBackend `json:"backend" mapstructure:"backend"`
}

// SchemaConfig locates the main schema and the accepted kind schemas
type SchemaConfig struct {
	MainSchemaPath string `json:"mainSchemaPath" mapstructure:"main_schema_path"`
	KindSchemaDir  string `json:"kindSchemaDir" mapstructure:"kind_schema_dir"`
}

// GenerationConfig contains output locations for generated sources
type GenerationConfig struct {
	ModelsDir     string `json:"modelsDir" mapstructure:"models_dir"`
	RoutesDir     string `json:"routesDir" mapstructure:"routes_dir"`
	ModelPackage  string `json:"modelPackage" mapstructure:"model_package"`
	RoutesPackage string `json:"routesPackage" mapstructure:"routes_package"`
}

// ArtifactsConfig configures the optional S3 artifact store
type ArtifactsConfig struct {
	S3Bucket       string `json:"s3Bucket" mapstructure:"s3_bucket"`
	S3Prefix       string `json:"s3Prefix" mapstructure:"s3_prefix"`
	S3Region       string `json:"s3Region" mapstructure:"s3_region"`
	S3Endpoint     string `json:"s3Endpoint" mapstructure:"s3_endpoint"`
	S3UsePathStyle bool   `json:"s3UsePathStyle" mapstructure:"s3_use_path_style"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port int `json:"port" mapstructure:"port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "kindgen",
			Username:        "postgres",
			SSLMode:         "disable",
			MaxConnections:  25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         30 * time.Second,
			TableName:       "kind_records",
		},
		Storage: StorageConfig{
			Backend: StorageBackendPostgres,
		},
		Schema: SchemaConfig{
			MainSchemaPath: "schemas/main_schema.json",
			KindSchemaDir:  "schemas/kinds",
		},
		Generation: GenerationConfig{
			ModelsDir:     "rest/models",
			RoutesDir:     "rest/routes",
			ModelPackage:  "models",
			RoutesPackage: "routes",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBackendPostgres:
		if c.Database.MaxConnections <= 0 {
			return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
		}
		if c.Database.TableName == "" {
			return &ConfigError{Field: "database.tableName", Message: "cannot be empty"}
		}
		if c.Database.UseIAMAuth && c.Database.Region == "" {
			return &ConfigError{Field: "database.region", Message: "is required when useIAMAuth is enabled"}
		}
	case StorageBackendMemory:
	default:
		return &ConfigError{Field: "storage.backend", Message: fmt.Sprintf("unsupported backend %q", c.Storage.Backend)}
	}

	if c.Schema.MainSchemaPath == "" {
		return &ConfigError{Field: "schema.mainSchemaPath", Message: "cannot be empty"}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be a valid TCP port"}
	}

	if c.Artifacts.S3Prefix != "" && c.Artifacts.S3Bucket == "" {
		return &ConfigError{Field: "artifacts.s3Bucket", Message: "is required when s3Prefix is set"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}

// LoadConfig reads configuration from an optional file plus KINDGEN_* environment variables
// (for example KINDGEN_DATABASE_HOST) on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("KINDGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.database", d.Database.Database)
	v.SetDefault("database.username", d.Database.Username)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.max_connections", d.Database.MaxConnections)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", d.Database.ConnMaxIdleTime)
	v.SetDefault("database.timeout", d.Database.Timeout)
	v.SetDefault("database.use_iam_auth", d.Database.UseIAMAuth)
	v.SetDefault("database.region", d.Database.Region)
	v.SetDefault("database.table_name", d.Database.TableName)

	v.SetDefault("storage.backend", string(d.Storage.Backend))

	v.SetDefault("schema.main_schema_path", d.Schema.MainSchemaPath)
	v.SetDefault("schema.kind_schema_dir", d.Schema.KindSchemaDir)

	v.SetDefault("generation.models_dir", d.Generation.ModelsDir)
	v.SetDefault("generation.routes_dir", d.Generation.RoutesDir)
	v.SetDefault("generation.model_package", d.Generation.ModelPackage)
	v.SetDefault("generation.routes_package", d.Generation.RoutesPackage)

	v.SetDefault("artifacts.s3_bucket", d.Artifacts.S3Bucket)
	v.SetDefault("artifacts.s3_prefix", d.Artifacts.S3Prefix)
	v.SetDefault("artifacts.s3_region", d.Artifacts.S3Region)
	v.SetDefault("artifacts.s3_endpoint", d.Artifacts.S3Endpoint)
	v.SetDefault("artifacts.s3_use_path_style", d.Artifacts.S3UsePathStyle)

	v.SetDefault("server.port", d.Server.Port)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}
