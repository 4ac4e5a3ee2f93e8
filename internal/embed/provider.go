package embed

import (
	"fmt"
	"strings"
)

// ProviderConfig selects and configures an embedding backend.
type ProviderConfig struct {
	// Provider is "tei" (default), "openai" or "fastembed".
	Provider string
	Model    string
	BaseURL  string // tei and openai
	APIKey   string // tei and openai
	CacheDir string // fastembed
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "tei", "":
		e, err := NewTEIEmbedder(TEIConfig{BaseURL: cfg.BaseURL, Model: cfg.Model, APIKey: cfg.APIKey})
		if err != nil {
			return nil, err
		}
		return e, nil
	case "openai":
		e, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: cfg.BaseURL, Model: cfg.Model, APIKey: cfg.APIKey})
		if err != nil {
			return nil, err
		}
		return e, nil
	case "fastembed":
		p, err := NewFastEmbedProvider(FastEmbedConfig{Model: cfg.Model, CacheDir: cfg.CacheDir})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
