package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"llmbridge/internal/models"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig             `yaml:"server"`
	Providers ProvidersConfig          `yaml:"providers"`
	Catalog   []models.ModelDescriptor `yaml:"catalog"`
	Tokenizer TokenizerConfig          `yaml:"tokenizer"`
	Streaming StreamingConfig          `yaml:"streaming"`
	Usage     UsageConfig              `yaml:"usage"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ProvidersConfig holds upstream backend credentials. A missing api_key falls
// back to the provider's conventional environment variable.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Gemini    ProviderConfig `yaml:"gemini"`
}

// ProviderConfig captures authentication and routing info for one provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	// EnvVar overrides the environment variable consulted when APIKey is
	// empty.
	EnvVar string `yaml:"env_var"`
}

// ResolveAPIKey returns the configured key, or the value of the fallback
// environment variable when the configuration leaves it empty.
func (p ProviderConfig) ResolveAPIKey(defaultEnvVar string) string {
	if key := strings.TrimSpace(p.APIKey); key != "" {
		return key
	}
	envVar := p.EnvVar
	if envVar == "" {
		envVar = defaultEnvVar
	}
	return strings.TrimSpace(os.Getenv(envVar))
}

// TokenizerConfig tunes token estimation per provider.
type TokenizerConfig struct {
	// CharsPerToken maps a provider tag to its estimation ratio.
	// Unlisted providers use the built-in default.
	CharsPerToken map[models.Provider]int `yaml:"chars_per_token"`
}

// StreamingConfig tunes chunk synthesis.
type StreamingConfig struct {
	// MinChunkSize is the flush threshold in runes. Zero keeps the default.
	MinChunkSize int `yaml:"min_chunk_size"`
}

// UsageConfig controls the usage ledger. An empty database path disables it.
type UsageConfig struct {
	Database string `yaml:"database"`
}

// Load reads YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if c.Streaming.MinChunkSize < 0 {
		return fmt.Errorf("streaming.min_chunk_size must not be negative, got %d", c.Streaming.MinChunkSize)
	}

	for provider, ratio := range c.Tokenizer.CharsPerToken {
		if ratio <= 0 {
			return fmt.Errorf("tokenizer.chars_per_token for provider %s must be positive, got %d", provider, ratio)
		}
	}

	for _, m := range c.Catalog {
		if strings.TrimSpace(m.ID) == "" {
			return fmt.Errorf("catalog: model id must not be empty")
		}
		if m.Provider == "" {
			return fmt.Errorf("catalog: model %s must declare a provider", m.ID)
		}
		switch m.Modality {
		case models.ModalityChat, models.ModalityEmbedding:
		default:
			return fmt.Errorf("catalog: model %s type %q must be %q or %q",
				m.ID, m.Modality, models.ModalityChat, models.ModalityEmbedding)
		}
		if m.MaxTokens <= 0 {
			return fmt.Errorf("catalog: model %s max_tokens must be positive, got %d", m.ID, m.MaxTokens)
		}
		if m.Modality == models.ModalityEmbedding && m.Dimension <= 0 {
			return fmt.Errorf("catalog: embedding model %s must declare a positive dimension", m.ID)
		}
	}

	return nil
}
