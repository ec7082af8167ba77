// Package config loads service configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/teilomillet/ragd/rag"
)

// Config holds every tunable of the service. Defaults are production
// values; the memory store backend is intended for tests and local runs.
type Config struct {
	// Server
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        rag.LogLevel  `env:"LOG_LEVEL" envDefault:"info"`

	// Vector store
	StoreBackend  string        `env:"STORE_BACKEND" envDefault:"milvus"`
	StoreAddress  string        `env:"STORE_ADDRESS" envDefault:"localhost:19530"`
	StoreUsername string        `env:"STORE_USERNAME"`
	StorePassword string        `env:"STORE_PASSWORD,unset"`
	StoreTimeout  time.Duration `env:"STORE_TIMEOUT" envDefault:"30s"`
	Collection    string        `env:"COLLECTION" envDefault:"documents"`

	// Provider
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY,unset"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	OpenAITimeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`
	EmbedModel    string        `env:"EMBED_MODEL" envDefault:"text-embedding-3-small"`
	EmbedDim      int           `env:"EMBED_DIM" envDefault:"1536"`
	ChatModel     string        `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`

	// Pipeline
	ChunkTokens      int     `env:"CHUNK_TOKENS" envDefault:"400"`
	ChunkOverlap     int     `env:"CHUNK_OVERLAP" envDefault:"60"`
	EmbedBatchSize   int     `env:"EMBED_BATCH_SIZE" envDefault:"100"`
	HybridAlpha      float64 `env:"HYBRID_ALPHA" envDefault:"0.5"`
	TopK             int     `env:"TOP_K" envDefault:"5"`
	MaxContextChunks int     `env:"MAX_CONTEXT_CHUNKS" envDefault:"6"`
	Temperature      float64 `env:"TEMPERATURE" envDefault:"0.2"`

	// Retries
	RetryAttempts  int           `env:"RETRY_ATTEMPTS" envDefault:"5"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"500ms"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.StoreBackend != "milvus" && c.StoreBackend != "memory" {
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	if c.ChunkTokens <= 0 {
		return fmt.Errorf("CHUNK_TOKENS must be positive, got %d", c.ChunkTokens)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("CHUNK_OVERLAP must not be negative, got %d", c.ChunkOverlap)
	}
	if c.HybridAlpha < 0 || c.HybridAlpha > 1 {
		return fmt.Errorf("HYBRID_ALPHA must be in [0,1], got %g", c.HybridAlpha)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("EMBED_DIM must be positive, got %d", c.EmbedDim)
	}
	return nil
}

// StoreConfig builds the vector store configuration.
func (c Config) StoreConfig() rag.StoreConfig {
	return rag.StoreConfig{
		Type:      c.StoreBackend,
		Address:   c.StoreAddress,
		Username:  c.StoreUsername,
		Password:  c.StorePassword,
		Dimension: c.EmbedDim,
		Timeout:   c.StoreTimeout,
	}
}

// ProviderConfig builds the provider factory configuration.
func (c Config) ProviderConfig() map[string]interface{} {
	m := map[string]interface{}{
		"api_key": c.OpenAIAPIKey,
		"timeout": c.OpenAITimeout,
	}
	if c.OpenAIBaseURL != "" {
		m["base_url"] = c.OpenAIBaseURL
	}
	return m
}
