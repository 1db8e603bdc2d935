package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.AIEnabledDefault)
	assert.Equal(t, "chromem", cfg.VectorStore)
	assert.Equal(t, "hash", cfg.EmbedProvider)
	assert.Equal(t, 384, cfg.EmbedDimensions)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "individual_chats", cfg.IndividualClass)
	assert.Equal(t, "group_chats", cfg.GroupClass)
}

func TestNewReadsPrefixedEnv(t *testing.T) {
	t.Setenv("CHAT_VECTOR_STORE", "weaviate")
	t.Setenv("CHAT_LLM_PROVIDER", "anthropic")
	t.Setenv("CHAT_AI_ENABLED_DEFAULT", "false")
	t.Setenv("CHAT_LLM_TIMEOUT", "5s")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "weaviate", cfg.VectorStore)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.False(t, cfg.AIEnabledDefault)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "vector store", mutate: func(c *Config) { c.VectorStore = "qdrant" }},
		{name: "embed provider", mutate: func(c *Config) { c.EmbedProvider = "onnx" }},
		{name: "llm provider", mutate: func(c *Config) { c.LLMProvider = "groq" }},
		{name: "dimensions", mutate: func(c *Config) { c.EmbedDimensions = 0 }},
		{name: "collection", mutate: func(c *Config) { c.GroupClass = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewForTesting()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewForTestingIsValid(t *testing.T) {
	assert.NoError(t, NewForTesting().Validate())
}
