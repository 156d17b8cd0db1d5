// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.derbychat/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, model, temperature, embedder model and dimension
//   - Storage: PostgreSQL connection (see storage.go)
//   - Chat: retrieval top-k, history window
//   - Ingest: source URLs, chunking, scraper limits (see ingest.go)
//   - HTTP: listen address, CORS origins, export directory
//
// Validation is fail-fast: Load returns an error for any missing or
// out-of-range required setting, and the process exits at startup.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbeddingDim indicates the embedding dimension is out of range.
	ErrInvalidEmbeddingDim = errors.New("invalid embedding dimension")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidDocumentsTable indicates the documents table name is invalid.
	ErrInvalidDocumentsTable = errors.New("invalid documents table name")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidChunking indicates the chunk size/overlap pair is unusable.
	ErrInvalidChunking = errors.New("invalid chunk size/overlap")

	// ErrNoSourceURLs indicates the ingester has no URLs to fetch.
	ErrNoSourceURLs = errors.New("no ingest source URLs configured")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultEmbedderModel matches the hosted embedding service the knowledge
	// base was built with. Its output is truncated to DefaultEmbeddingDim.
	DefaultEmbedderModel = "text-embedding-3-small"

	// DefaultEmbeddingDim is the vector dimension of the documents table.
	// Changing it requires a migration of the embedding column.
	DefaultEmbeddingDim = 1024

	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 4

	// DefaultHistoryWindow is the number of recent turns included in a prompt.
	DefaultHistoryWindow = 6
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "openai" (default), "gemini", "ollama"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gpt-4o-mini", "gemini-2.5-flash"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbeddingDim  int    `mapstructure:"embedding_dim" json:"embedding_dim"`

	// Chat pipeline configuration
	TopK          int `mapstructure:"top_k" json:"top_k"`
	HistoryWindow int `mapstructure:"history_window" json:"history_window"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// DocumentsTable is the single canonical name of the vector index table.
	// Both the chat pipeline and the ingester resolve it from here.
	DocumentsTable string `mapstructure:"documents_table" json:"documents_table"`

	// HTTP configuration
	HTTPAddr    string   `mapstructure:"http_addr" json:"http_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// ExportDir is where conversation export artifacts are written.
	ExportDir string `mapstructure:"export_dir" json:"export_dir"`

	// Ingest configuration (see ingest.go)
	Ingest IngestConfig `mapstructure:"ingest" json:"ingest"`

	// Tracing configuration (optional OTLP export)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// TracingConfig holds optional OTLP trace export settings.
// Empty endpoint disables tracing entirely.
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"` // e.g. "localhost:4318"
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	// Best-effort .env load; absence is not an error.
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".derbychat")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL has the highest priority for PostgreSQL settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults — the knowledge base was built against OpenAI models.
	viper.SetDefault("provider", ProviderOpenAI)
	viper.SetDefault("model_name", "gpt-4o-mini")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedding_dim", DefaultEmbeddingDim)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Chat defaults
	viper.SetDefault("top_k", DefaultTopK)
	viper.SetDefault("history_window", DefaultHistoryWindow)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "derby")
	viper.SetDefault("postgres_password", "derby_dev_password")
	viper.SetDefault("postgres_db_name", "derby")
	viper.SetDefault("postgres_ssl_mode", "disable")
	viper.SetDefault("documents_table", "documents")

	// HTTP defaults
	viper.SetDefault("http_addr", ":8000")
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 60)
	viper.SetDefault("export_dir", ".")

	setIngestDefaults()

	// Tracing defaults (disabled unless endpoint is set)
	viper.SetDefault("tracing.service_name", "derbychat")
	viper.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
// Provider API keys (OPENAI_API_KEY, GEMINI_API_KEY) are read directly by the
// Genkit plugins, not via viper; Validate only checks their presence.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "DERBY_PROVIDER")
	mustBind("model_name", "DERBY_MODEL_NAME")
	mustBind("ollama_host", "DERBY_OLLAMA_HOST")

	// The one canonical key for the vector index identifier.
	mustBind("documents_table", "DERBY_DOCUMENTS_TABLE")

	mustBind("http_addr", "DERBY_HTTP_ADDR")
	mustBind("cors_origins", "DERBY_CORS_ORIGINS")
	mustBind("trust_proxy", "DERBY_TRUST_PROXY")
	mustBind("export_dir", "DERBY_EXPORT_DIR")

	mustBind("ingest.cron", "DERBY_INGEST_CRON")

	mustBind("tracing.endpoint", "DERBY_OTLP_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Short secrets are fully masked; longer ones keep two characters on each
// side for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "openai/gpt-4o-mini", "googleai/gemini-2.5-flash", "ollama/llama3.3".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderGemini:
		return ProviderGoogleAI + "/" + c.ModelName
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	default:
		return ProviderOpenAI + "/" + c.ModelName
	}
}
