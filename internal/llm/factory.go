package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/banklab/internal/model"
)

// NewProvider creates the configured provider. An empty provider name
// returns nil, which disables summaries.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the application config
func ConfigFromModel(c model.LLMConfig, http model.HTTPConfig) Config {
	cfg := DefaultConfig()
	cfg.Provider = c.Provider
	cfg.Model = c.Model
	cfg.APIKey = c.APIKey
	cfg.BaseURL = c.BaseURL
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	if c.MaxTokens > 0 {
		cfg.MaxTokens = c.MaxTokens
	}
	cfg.HTTPProxy = http.HTTPProxy
	cfg.HTTPSProxy = http.HTTPSProxy
	cfg.NoProxy = http.NoProxy
	return cfg
}
