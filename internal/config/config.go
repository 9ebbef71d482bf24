// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package config loads srs settings from defaults, an optional YAML file and
// SRS_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// EnvPrefix is prepended to every environment override, e.g.
// SRS_SEARCH_TOP_K for search.top_k.
const EnvPrefix = "SRS"

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Vector    VectorConfig    `mapstructure:"vector" yaml:"vector"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search"`
	Sync      SyncConfig      `mapstructure:"sync" yaml:"sync"`
	Import    ImportConfig    `mapstructure:"import" yaml:"import"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Tracing   TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
}

type ServerConfig struct {
	Listen      string   `mapstructure:"listen" yaml:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

type StorageConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	DataDir     string `mapstructure:"data_dir" yaml:"data_dir"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

type VectorConfig struct {
	Backend    string       `mapstructure:"backend" yaml:"backend"`
	Dimensions int          `mapstructure:"dimensions" yaml:"dimensions"`
	Qdrant     QdrantConfig `mapstructure:"qdrant" yaml:"qdrant"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

type EmbeddingConfig struct {
	Provider  string        `mapstructure:"provider" yaml:"provider"`
	Model     string        `mapstructure:"model" yaml:"model"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LLMConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

type SearchConfig struct {
	TopK              int     `mapstructure:"top_k" yaml:"top_k"`
	Threshold         float64 `mapstructure:"threshold" yaml:"threshold"`
	TitleSimilarity   float64 `mapstructure:"title_similarity" yaml:"title_similarity"`
	ContentSimilarity float64 `mapstructure:"content_similarity" yaml:"content_similarity"`
}

type SyncConfig struct {
	Workers   int `mapstructure:"workers" yaml:"workers"`
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

type ImportConfig struct {
	Retention time.Duration `mapstructure:"retention" yaml:"retention"`
	MaxErrors int           `mapstructure:"max_errors" yaml:"max_errors"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:8000")
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.postgres_dsn", "")

	v.SetDefault("vector.backend", "sqlite")
	v.SetDefault("vector.dimensions", 1536)
	v.SetDefault("vector.qdrant.host", "localhost")
	v.SetDefault("vector.qdrant.port", 6334)
	v.SetDefault("vector.qdrant.collection", "artifacts")

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.batch_size", 10)
	v.SetDefault("embedding.timeout", 30*time.Second)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_tokens", 512)

	v.SetDefault("search.top_k", 5)
	v.SetDefault("search.threshold", 0.7)
	v.SetDefault("search.title_similarity", 0.7)
	v.SetDefault("search.content_similarity", 0.5)

	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.queue_size", 256)

	v.SetDefault("import.retention", 30*time.Minute)
	v.SetDefault("import.max_errors", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.sample_rate", 1.0)
}

// SetupEnv binds SRS_ environment variables on v.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// New returns a viper instance with defaults and SRS_ environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)
	return v
}

// Load reads the file at path (if non-empty) over the defaults and returns a
// validated Config.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, srserr.Errorf(srserr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, srserr.Errorf(srserr.CodeConfigParseInvalidFormat, "decoding config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, srserr.Errorf(srserr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate returns every problem found rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateVector()...)
	errs = append(errs, c.validateProviders()...)
	errs = append(errs, c.validateSearch()...)
	errs = append(errs, c.validateWorkers()...)
	errs = append(errs, c.validateLogging()...)
	return errs
}

func invalid(format string, args ...any) error {
	return srserr.Errorf(srserr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func oneOf(key, got string, allowed ...string) error {
	if slices.Contains(allowed, got) {
		return nil
	}
	return invalid("%s must be one of [%s], got %q", key, strings.Join(allowed, ", "), got)
}

func (c *Config) validateServer() []error {
	if c.Server.Listen == "" {
		return []error{invalid("server.listen must not be empty")}
	}
	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		return []error{invalid("server.listen must be host:port, got %q: %w", c.Server.Listen, err)}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return []error{invalid("server.listen port must be between 1 and 65535, got %q", portStr)}
	}
	return nil
}

func (c *Config) validateStorage() []error {
	var errs []error
	if err := oneOf("storage.backend", c.Storage.Backend, "sqlite", "postgres", "memory"); err != nil {
		errs = append(errs, err)
	}
	if c.Storage.Backend == "sqlite" && c.Storage.DataDir == "" {
		errs = append(errs, invalid("storage.data_dir must be set for the sqlite backend"))
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		errs = append(errs, invalid("storage.postgres_dsn must be set for the postgres backend"))
	}
	return errs
}

func (c *Config) validateVector() []error {
	var errs []error
	if err := oneOf("vector.backend", c.Vector.Backend, "sqlite", "qdrant", "memory", "none"); err != nil {
		errs = append(errs, err)
	}
	if c.Vector.Backend != "none" && c.Vector.Dimensions <= 0 {
		errs = append(errs, invalid("vector.dimensions must be greater than 0, got %d", c.Vector.Dimensions))
	}
	if c.Vector.Backend == "sqlite" && c.Storage.Backend != "sqlite" {
		errs = append(errs, invalid("vector.backend sqlite requires storage.backend sqlite, got %q", c.Storage.Backend))
	}
	if c.Vector.Backend == "qdrant" {
		if c.Vector.Qdrant.Host == "" {
			errs = append(errs, invalid("vector.qdrant.host must not be empty"))
		}
		if c.Vector.Qdrant.Port < 1 || c.Vector.Qdrant.Port > 65535 {
			errs = append(errs, invalid("vector.qdrant.port must be between 1 and 65535, got %d", c.Vector.Qdrant.Port))
		}
		if c.Vector.Qdrant.Collection == "" {
			errs = append(errs, invalid("vector.qdrant.collection must not be empty"))
		}
	}
	return errs
}

func (c *Config) validateProviders() []error {
	var errs []error
	if err := oneOf("embedding.provider", c.Embedding.Provider, "openai", "google", "local", "none"); err != nil {
		errs = append(errs, err)
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, invalid("embedding.batch_size must be greater than 0, got %d", c.Embedding.BatchSize))
	}
	if c.Embedding.Timeout < 0 {
		errs = append(errs, invalid("embedding.timeout must not be negative, got %s", c.Embedding.Timeout))
	}
	if err := oneOf("llm.provider", c.LLM.Provider, "openai", "anthropic", "google", "none"); err != nil {
		errs = append(errs, err)
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, invalid("llm.max_tokens must be greater than 0, got %d", c.LLM.MaxTokens))
	}
	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error
	if c.Search.TopK <= 0 {
		errs = append(errs, invalid("search.top_k must be greater than 0, got %d", c.Search.TopK))
	}
	for _, f := range []struct {
		key string
		val float64
	}{
		{"search.threshold", c.Search.Threshold},
		{"search.title_similarity", c.Search.TitleSimilarity},
		{"search.content_similarity", c.Search.ContentSimilarity},
		{"tracing.sample_rate", c.Tracing.SampleRate},
	} {
		if f.val < 0 || f.val > 1 {
			errs = append(errs, invalid("%s must be within [0, 1], got %g", f.key, f.val))
		}
	}
	if c.Search.ContentSimilarity > c.Search.TitleSimilarity {
		errs = append(errs, invalid("search.content_similarity (%g) must not exceed search.title_similarity (%g)",
			c.Search.ContentSimilarity, c.Search.TitleSimilarity))
	}
	return errs
}

func (c *Config) validateWorkers() []error {
	var errs []error
	if c.Sync.Workers <= 0 {
		errs = append(errs, invalid("sync.workers must be greater than 0, got %d", c.Sync.Workers))
	}
	if c.Sync.QueueSize <= 0 {
		errs = append(errs, invalid("sync.queue_size must be greater than 0, got %d", c.Sync.QueueSize))
	}
	if c.Import.Retention <= 0 {
		errs = append(errs, invalid("import.retention must be positive, got %s", c.Import.Retention))
	}
	if c.Import.MaxErrors <= 0 {
		errs = append(errs, invalid("import.max_errors must be greater than 0, got %d", c.Import.MaxErrors))
	}
	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error
	if err := oneOf("logging.level", c.Logging.Level, "debug", "info", "warn", "error"); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("logging.format", c.Logging.Format, "text", "json"); err != nil {
		errs = append(errs, err)
	}
	return errs
}
