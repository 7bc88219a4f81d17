package eventsearch

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lucas-stellet/eventsearch/embed"
)

// Vector store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendQdrant   = "qdrant"
	BackendBleve    = "bleve"
	BackendNone     = "none"
)

// Config holds the eventsearch configuration loaded from a TOML file.
type Config struct {
	Embedding EmbeddingConfig `toml:"embedding"`
	Vector    VectorConfig    `toml:"vector"`
	FullText  FullTextConfig  `toml:"fulltext"`
	Search    SearchConfig    `toml:"search"`
	Tracing   TracingConfig   `toml:"tracing"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `toml:"provider"` // "google", "openai", "ollama", "noop"
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"` // supports ${ENV_VAR} expansion
	URL        string `toml:"url"`
	Dimensions int    `toml:"dimensions"` // must match the stored vectors
}

// VectorConfig configures the vector store.
type VectorConfig struct {
	Backend      string `toml:"backend"`        // "file", "postgres", "qdrant"
	Metric       string `toml:"metric"`         // "l2", "inner_product", "cosine"
	Dir          string `toml:"dir"`            // file backend
	DSN          string `toml:"dsn"`            // postgres backend, supports ${ENV_VAR}
	Table        string `toml:"table"`          // postgres backend
	MaxOpenConns int    `toml:"max_open_conns"` // postgres backend
	Addr         string `toml:"addr"`           // qdrant gRPC address
	Collection   string `toml:"collection"`     // qdrant collection
}

// FullTextConfig configures the keyword fallback.
type FullTextConfig struct {
	Backend     string `toml:"backend"`      // "bleve", "postgres", "none"
	Path        string `toml:"path"`         // bleve index directory
	Language    string `toml:"language"`     // analyzer language code, e.g. "es"
	EventsTable string `toml:"events_table"` // postgres backend
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	TopK        int      `toml:"top_k"`
	MaxDistance *float64 `toml:"max_distance"`
	Timeout     string   `toml:"timeout"` // Go duration, e.g. "5s"
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	OTLPEndpoint string `toml:"otlp_endpoint"` // empty disables export
	ServiceName  string `toml:"service_name"`
}

// LoadConfig reads a TOML file at path and returns a parsed Config with defaults applied.
// Environment variables referenced as ${VAR_NAME} in api_key and dsn are expanded.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Embedding.APIKey = expandEnvVars(cfg.Embedding.APIKey)
	cfg.Vector.DSN = expandEnvVars(cfg.Vector.DSN)
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Vector.Backend == "" {
		c.Vector.Backend = BackendFile
	}
	if c.Vector.Dir == "" {
		c.Vector.Dir = "./eventsearch-data"
	}
	if c.FullText.Backend == "" {
		c.FullText.Backend = BackendBleve
	}
	if c.FullText.Language == "" {
		c.FullText.Language = DefaultLanguage
	}
	if c.Search.TopK == 0 {
		c.Search.TopK = DefaultTopK
	}
}

// Validate checks that the configuration describes a usable deployment.
func (c *Config) Validate() error {
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be > 0, got %d", c.Embedding.Dimensions)
	}
	if _, err := c.Metric(); err != nil {
		return fmt.Errorf("vector.metric: %w", err)
	}
	switch c.Vector.Backend {
	case BackendFile:
	case BackendPostgres:
		if c.Vector.DSN == "" {
			return fmt.Errorf("vector.dsn is required for the postgres backend")
		}
	case BackendQdrant:
		if c.Vector.Addr == "" {
			return fmt.Errorf("vector.addr is required for the qdrant backend")
		}
	default:
		return fmt.Errorf("unknown vector backend: %q", c.Vector.Backend)
	}
	switch c.FullText.Backend {
	case BackendBleve, BackendNone:
	case BackendPostgres:
		if c.Vector.DSN == "" {
			return fmt.Errorf("vector.dsn is required for the postgres full-text backend")
		}
	default:
		return fmt.Errorf("unknown fulltext backend: %q", c.FullText.Backend)
	}
	if c.Search.TopK < 1 {
		return fmt.Errorf("search.top_k must be >= 1, got %d", c.Search.TopK)
	}
	if d := c.Search.MaxDistance; d != nil && (math.IsNaN(*d) || math.IsInf(*d, 0) || *d < 0) {
		return fmt.Errorf("search.max_distance must be a finite number >= 0, got %v", *d)
	}
	if _, err := c.Timeout(); err != nil {
		return fmt.Errorf("search.timeout: %w", err)
	}
	return nil
}

// Metric returns the configured distance metric.
func (c *Config) Metric() (Metric, error) {
	return ParseMetric(c.Vector.Metric)
}

// Timeout returns the per-round-trip store timeout. An empty value returns zero.
func (c *Config) Timeout() (time.Duration, error) {
	s := strings.TrimSpace(c.Search.Timeout)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// BuildEmbedFunc constructs an EmbeddingFunc from the embedding configuration.
func (c *Config) BuildEmbedFunc() (embed.EmbeddingFunc, error) {
	switch c.Embedding.Provider {
	case "noop", "":
		return embed.Noop(), nil
	case "openai":
		return embed.OpenAI(embed.OpenAIConfig{
			URL:    c.Embedding.URL,
			APIKey: c.Embedding.APIKey,
			Model:  c.Embedding.Model,
		}), nil
	case "ollama":
		return embed.Ollama(embed.OllamaConfig{
			URL:   c.Embedding.URL,
			Model: c.Embedding.Model,
		}), nil
	case "google":
		return embed.Google(embed.GoogleConfig{
			URL:    c.Embedding.URL,
			APIKey: c.Embedding.APIKey,
			Model:  c.Embedding.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", c.Embedding.Provider)
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns in s with the corresponding environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}
