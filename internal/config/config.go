package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the chat server.
// Environment variables are parsed with the CHAT_ prefix,
// e.g. CHAT_HTTP_ADDR, CHAT_VECTOR_STORE.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Consent flag applied to new messages until someone toggles it.
	AIEnabledDefault bool `envconfig:"AI_ENABLED_DEFAULT" default:"true"`

	// Vector store: chromem (embedded) | weaviate
	VectorStore     string `envconfig:"VECTOR_STORE" default:"chromem"`
	WeaviateHost    string `envconfig:"WEAVIATE_HOST" default:"localhost:8082"`
	WeaviateScheme  string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	WeaviateAPIKey  string `envconfig:"WEAVIATE_API_KEY" default:""`
	IndividualClass string `envconfig:"INDIVIDUAL_COLLECTION" default:"individual_chats"`
	GroupClass      string `envconfig:"GROUP_COLLECTION" default:"group_chats"`

	// Embeddings: hash (offline, deterministic) | ollama
	EmbedProvider   string `envconfig:"EMBED_PROVIDER" default:"hash"`
	EmbedModel      string `envconfig:"EMBED_MODEL" default:"mxbai-embed-large"`
	EmbedDimensions int    `envconfig:"EMBED_DIMENSIONS" default:"384"`
	EmbedCacheSize  int64  `envconfig:"EMBED_CACHE_SIZE" default:"1024"`
	OllamaURL       string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`

	// LLM: anthropic | openai (any OpenAI-compatible endpoint, e.g. Groq) | none
	LLMProvider     string `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMModel        string `envconfig:"LLM_MODEL" default:"llama-3.1-8b-instant"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY" default:""`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL" default:"https://api.groq.com/openai/v1"`

	LLMTimeout    time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`
	VectorTimeout time.Duration `envconfig:"VECTOR_TIMEOUT" default:"15s"`
	EmbedTimeout  time.Duration `envconfig:"EMBED_TIMEOUT" default:"15s"`

	// Optional sinks; empty disables them.
	DBDSN        string `envconfig:"DB_DSN" default:""`
	RedisAddr    string `envconfig:"REDIS_ADDR" default:""`
	RedisChannel string `envconfig:"REDIS_CHANNEL" default:"general-chat"`
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.VectorStore {
	case "chromem", "weaviate":
	default:
		return fmt.Errorf("unsupported VECTOR_STORE: %s", c.VectorStore)
	}
	switch c.EmbedProvider {
	case "hash", "ollama":
	default:
		return fmt.Errorf("unsupported EMBED_PROVIDER: %s", c.EmbedProvider)
	}
	switch c.LLMProvider {
	case "anthropic", "openai", "none":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %s", c.LLMProvider)
	}
	if c.EmbedDimensions <= 0 {
		return fmt.Errorf("EMBED_DIMENSIONS must be positive, got %d", c.EmbedDimensions)
	}
	if c.IndividualClass == "" || c.GroupClass == "" {
		return fmt.Errorf("collection names must not be empty")
	}
	return nil
}

// New creates a Config by parsing CHAT_* environment variables.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("http_addr", cfg.HTTPAddr).
		Bool("ai_enabled_default", cfg.AIEnabledDefault).
		Str("vector_store", cfg.VectorStore).
		Str("embed_provider", cfg.EmbedProvider).
		Str("llm_provider", cfg.LLMProvider).
		Str("llm_model", cfg.LLMModel).
		Bool("db_archive", cfg.DBDSN != "").
		Bool("redis_mirror", cfg.RedisAddr != "").
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting returns a config that needs no external services.
func NewForTesting() *Config {
	return &Config{
		HTTPAddr:         ":0",
		LogLevel:         "debug",
		AIEnabledDefault: true,
		VectorStore:      "chromem",
		IndividualClass:  "individual_chats",
		GroupClass:       "group_chats",
		EmbedProvider:    "hash",
		EmbedDimensions:  64,
		EmbedCacheSize:   128,
		LLMProvider:      "none",
		LLMTimeout:       time.Second,
		VectorTimeout:    time.Second,
		EmbedTimeout:     time.Second,
		RedisChannel:     "general-chat",
	}
}
