package summarizer

import (
	"context"
	"fmt"
	"time"
)

// ProviderNone disables the remote path.
const ProviderNone = "none"

// ModelConfig selects and configures a Model.
type ModelConfig struct {
	Provider string
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// NewModel builds the configured provider. It returns nil, nil for ProviderNone or an
// empty provider.
func NewModel(ctx context.Context, cfg ModelConfig) (Model, error) {
	switch cfg.Provider {
	case "", ProviderNone:
		return nil, nil
	case ProviderAnthropic, ProviderGemini, ProviderOpenAI:
	default:
		return nil, fmt.Errorf("summarizer: unknown provider %q", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("summarizer: %s requires an API key", cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicModel(cfg.APIKey, cfg.Model), nil
	case ProviderGemini:
		m, err := NewGeminiModel(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return NewOpenAIModel(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	}
}
