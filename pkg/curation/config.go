package curation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a curation engine.
//
// It includes settings for:
//   - Memory backend (for candidate retrieval)
//   - Embedding provider (optional, for semantic similarity)
//   - Curation behavior (caches, logs, optimization windows, budgets)
//
// Example:
//
//	config := &curation.Config{
//	    Backend: curation.BackendConfig{
//	        Provider: "sqlite",
//	        Config: map[string]interface{}{
//	            "db_path": "./memories.db",
//	        },
//	    },
//	    Embedder: curation.EmbedderConfig{
//	        Provider: "openai",
//	        APIKey:   "sk-...",
//	    },
//	}
type Config struct {
	// Backend contains memory backend configuration.
	Backend BackendConfig `json:"backend"`

	// Embedder contains embedding provider configuration (optional).
	Embedder EmbedderConfig `json:"embedder,omitempty"`

	// Curation contains engine behavior configuration.
	Curation CurationConfig `json:"curation"`
}

// BackendConfig contains configuration for the memory backend.
//
// Supported providers: memory, sqlite, postgres, mysql
type BackendConfig struct {
	// Provider is the backend provider name (memory, sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path, table_name
	// For PostgreSQL: host, port, user, password, db_name, table_name, ssl_mode
	// For MySQL: host, port, user, password, db_name, table_name
	Config map[string]interface{} `json:"config,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai, none. When the provider is "none" or
// empty, semantic similarity falls back to lexical matching.
type EmbedderConfig struct {
	// Provider is the embedding provider name (openai, none).
	Provider string `json:"provider"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key,omitempty"`

	// Model is the embedding model name.
	Model string `json:"model,omitempty"`

	// BaseURL is the base URL for the API (optional).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the dimension of the embedding vectors.
	Dimensions int `json:"dimensions,omitempty"`
}

// CurationConfig contains behavior settings for the engine.
type CurationConfig struct {
	// CacheTTLSeconds is the relevance-score cache TTL. Default 300.
	CacheTTLSeconds int `json:"cache_ttl_seconds,omitempty"`

	// CacheSize caps the relevance-score cache. Default 10000.
	CacheSize int `json:"cache_size,omitempty"`

	// FeedbackLogCapacity bounds the per-role feedback ring. Default 200.
	FeedbackLogCapacity int `json:"feedback_log_capacity,omitempty"`

	// EventLogCapacity bounds the usage-event ring. Default 5000.
	EventLogCapacity int `json:"event_log_capacity,omitempty"`

	// OptimizationCooldownMinutes is the minimum gap between
	// optimizations for one role. Default 120.
	OptimizationCooldownMinutes int `json:"optimization_cooldown_minutes,omitempty"`

	// SearchTimeoutSeconds bounds each backend search call. Default 5.
	SearchTimeoutSeconds int `json:"search_timeout_seconds,omitempty"`

	// SearchLimit is the maximum candidates fetched per scope. Default 20.
	SearchLimit int `json:"search_limit,omitempty"`

	// PreserveQuality downgrades budget compression one level.
	PreserveQuality bool `json:"preserve_quality,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (memory, sqlite, postgres, mysql)
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, etc.
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, etc.
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL, EMBEDDING_BASE_URL
//   - CURATION_CACHE_TTL_SECONDS, CURATION_SEARCH_LIMIT, CURATION_PRESERVE_QUALITY
//
// Returns a Config instance, or an error if loading fails.
//
// Example:
//
//	config, err := curation.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "memory")

	backendConfig := make(map[string]interface{})
	switch provider {
	case "sqlite":
		backendConfig = map[string]interface{}{
			"db_path":    getEnvOrDefault("SQLITE_PATH", "./memcurator.db"),
			"table_name": getEnvOrDefault("SQLITE_TABLE", "memories"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		backendConfig = map[string]interface{}{
			"host":       getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":   os.Getenv("POSTGRES_PASSWORD"),
			"db_name":    getEnvOrDefault("POSTGRES_DATABASE", "memcurator"),
			"table_name": getEnvOrDefault("POSTGRES_TABLE", "memories"),
			"ssl_mode":   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		backendConfig = map[string]interface{}{
			"host":       getEnvOrDefault("MYSQL_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("MYSQL_USER", "root"),
			"password":   os.Getenv("MYSQL_PASSWORD"),
			"db_name":    getEnvOrDefault("MYSQL_DATABASE", "memcurator"),
			"table_name": getEnvOrDefault("MYSQL_TABLE", "memories"),
		}
	}

	embedderProvider := getEnvOrDefault("EMBEDDING_PROVIDER", "none")
	embedderModel := os.Getenv("EMBEDDING_MODEL")
	var embedderBaseURL string
	if embedderProvider == "openai" {
		embedderBaseURL = os.Getenv("OPENAI_EMBEDDING_BASE_URL")
		if embedderModel == "" {
			embedderModel = "text-embedding-3-small"
		}
	}

	cacheTTL, _ := strconv.Atoi(getEnvOrDefault("CURATION_CACHE_TTL_SECONDS", "300"))
	searchLimit, _ := strconv.Atoi(getEnvOrDefault("CURATION_SEARCH_LIMIT", "20"))

	config := &Config{
		Backend: BackendConfig{
			Provider: provider,
			Config:   backendConfig,
		},
		Embedder: EmbedderConfig{
			Provider: embedderProvider,
			APIKey:   os.Getenv("EMBEDDING_API_KEY"),
			Model:    embedderModel,
			BaseURL:  embedderBaseURL,
		},
		Curation: CurationConfig{
			CacheTTLSeconds: cacheTTL,
			SearchLimit:     searchLimit,
			PreserveQuality: os.Getenv("CURATION_PRESERVE_QUALITY") == "true",
		},
	}
	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, NewCurationError("LoadConfigFromEnvFile", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewCurationError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewCurationError("LoadConfigFromJSON", err)
	}
	return &config, nil
}

// Validate validates the configuration.
//
// Checks that a backend provider is set and known. The embedder is
// optional; an empty provider is treated as "none".
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	switch c.Backend.Provider {
	case "memory", "sqlite", "postgres", "mysql":
	case "":
		return NewCurationError("Validate", ErrInvalidConfig)
	default:
		return NewCurationError("Validate", ErrUnknownProvider)
	}
	switch c.Embedder.Provider {
	case "", "none", "openai":
	default:
		return NewCurationError("Validate", ErrUnknownProvider)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}
