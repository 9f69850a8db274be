package config

import (
	"encoding/json"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-eval/internal/cache"
	"github.com/rxtech-lab/argo-eval/internal/ingestion"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file configuration.
const (
	EnvDatabasePath    = "ARGO_EVAL_DATABASE_PATH"
	EnvCacheBackend    = "ARGO_EVAL_CACHE_BACKEND"
	EnvRedisAddr       = "ARGO_EVAL_REDIS_ADDR"
	EnvCacheTTL        = "ARGO_EVAL_CACHE_TTL"
	EnvQueryTimeout    = "ARGO_EVAL_QUERY_TIMEOUT"
	EnvListenAddr      = "ARGO_EVAL_LISTEN_ADDR"
	EnvLogLevel        = "ARGO_EVAL_LOG_LEVEL"
	EnvDefaultInvested = "ARGO_EVAL_DEFAULT_INVESTED"
	EnvProvider        = "ARGO_EVAL_PROVIDER"
	EnvPolygonAPIKey   = "POLYGON_API_KEY"
)

// CacheConfig selects and tunes the evaluation cache.
type CacheConfig struct {
	Backend   cache.Backend `yaml:"backend" json:"backend" jsonschema:"title=Backend,description=Cache backend,enum=duckdb,enum=redis" validate:"oneof=duckdb redis"`
	RedisAddr string        `yaml:"redis_addr" json:"redis_addr,omitempty" jsonschema:"title=Redis Address,description=host:port of the redis server" validate:"required_if=Backend redis"`
	TTL       time.Duration `yaml:"ttl" json:"ttl,omitempty" jsonschema:"title=TTL,description=Expiry of redis entries; zero keeps them forever" validate:"gte=0"`
}

// Config is the service configuration.
type Config struct {
	DatabasePath    string                 `yaml:"database_path" json:"database_path" jsonschema:"title=Database Path,description=DuckDB file holding prices and cached results" validate:"required"`
	Cache           CacheConfig            `yaml:"cache" json:"cache"`
	QueryTimeout    time.Duration          `yaml:"query_timeout" json:"query_timeout" jsonschema:"title=Query Timeout,description=Deadline of every price store and cache query" validate:"gt=0"`
	ListenAddr      string                 `yaml:"listen_addr" json:"listen_addr" jsonschema:"title=Listen Address,description=HTTP listen address" validate:"required"`
	LogLevel        string                 `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error" validate:"oneof=debug info warn error"`
	DefaultInvested float64                `yaml:"default_invested" json:"default_invested" jsonschema:"title=Default Invested,description=Starting cash of backtests that name none,minimum=0" validate:"gte=0"`
	Provider        ingestion.ProviderType `yaml:"provider" json:"provider" jsonschema:"title=Provider,description=Market data vendor used by ingestion,enum=polygon,enum=binance" validate:"oneof=polygon binance"`
	PolygonAPIKey   string                 `yaml:"polygon_api_key" json:"-"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DatabasePath: "data/argo-eval.duckdb",
		Cache: CacheConfig{
			Backend:   cache.BackendDuckDB,
			RedisAddr: "",
			TTL:       0,
		},
		QueryTimeout:    10 * time.Second,
		ListenAddr:      ":8080",
		LogLevel:        "info",
		DefaultInvested: 10_000,
		Provider:        ingestion.ProviderPolygon,
		PolygonAPIKey:   "",
	}
}

// Load reads the YAML file at path over the defaults, applies environment overrides
// (including a .env file in the working directory when present) and validates the result.
// An empty path skips the file.
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to read config %s", path)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to parse config %s", path)
		}
	}

	// a missing .env file is not an error
	_ = godotenv.Load()

	if err := config.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "invalid configuration", err)
	}

	return nil
}

// IngestionEnabled reports whether the configured provider has what it needs.
// Polygon requires an API key; binance serves public data.
func (c Config) IngestionEnabled() bool {
	return c.Provider != ingestion.ProviderPolygon || c.PolygonAPIKey != ""
}

// CacheOptions converts the cache section for cache.Open.
func (c Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:      c.Cache.Backend,
		RedisAddr:    c.Cache.RedisAddr,
		TTL:          c.Cache.TTL,
		QueryTimeout: c.QueryTimeout,
	}
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvDatabasePath); ok {
		c.DatabasePath = v
	}

	if v, ok := os.LookupEnv(EnvCacheBackend); ok {
		c.Cache.Backend = cache.Backend(v)
	}

	if v, ok := os.LookupEnv(EnvRedisAddr); ok {
		c.Cache.RedisAddr = v
	}

	if v, ok := os.LookupEnv(EnvListenAddr); ok {
		c.ListenAddr = v
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = v
	}

	if v, ok := os.LookupEnv(EnvProvider); ok {
		c.Provider = ingestion.ProviderType(v)
	}

	if v, ok := os.LookupEnv(EnvPolygonAPIKey); ok {
		c.PolygonAPIKey = v
	}

	if v, ok := os.LookupEnv(EnvCacheTTL); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid %s", EnvCacheTTL)
		}

		c.Cache.TTL = ttl
	}

	if v, ok := os.LookupEnv(EnvQueryTimeout); ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid %s", EnvQueryTimeout)
		}

		c.QueryTimeout = timeout
	}

	if v, ok := os.LookupEnv(EnvDefaultInvested); ok {
		invested, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid %s", EnvDefaultInvested)
		}

		c.DefaultInvested = invested
	}

	return nil
}

// GenerateSchema generates a JSON schema for Config.
func (c Config) GenerateSchema() *jsonschema.Schema {
	durationType := reflect.TypeOf(time.Duration(0))

	//nolint:exhaustruct // third-party struct with many optional fields
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == durationType {
				//nolint:exhaustruct // third-party struct with many optional fields
				return &jsonschema.Schema{
					Type:        "string",
					Description: "Go duration such as 30s or 1h",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(&c)
	schema.Title = "argo-eval-config"
	schema.Description = "Configuration schema for the argo-eval service"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON renders GenerateSchema as indented JSON.
func (c Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, "failed to render config schema", err)
	}

	return string(schemaBytes), nil
}
