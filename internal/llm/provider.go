package llm

import (
	"context"

	"github.com/ppiankov/compintel/internal/model"
)

// Provider is the language-model capability: prompt in, text out.
// The engine knows nothing about a provider beyond this interface.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs one completion. It must honour ctx cancellation all the
	// way down to the transport.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Prompt separates trusted instructions from user content. Text fetched
// from external providers belongs in User only.
type Prompt struct {
	System string
	User   string
}

// ResponseFormat is a hint for the shape of the completion
type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json"
)

// CompletionRequest is the input of one completion
type CompletionRequest struct {
	Prompt    Prompt
	Format    ResponseFormat
	Model     string // Overrides the provider's configured model
	MaxTokens int    // Overrides the provider's configured limit
}

// CompletionResponse is the raw model output
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "gemini", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ConfigFromModel converts the resolved engine config into provider config
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:   llmCfg.Provider,
		Model:      llmCfg.Model,
		APIKey:     llmCfg.APIKey,
		BaseURL:    llmCfg.BaseURL,
		MaxTokens:  llmCfg.MaxTokens,
		HTTPProxy:  httpCfg.HTTPProxy,
		HTTPSProxy: httpCfg.HTTPSProxy,
		NoProxy:    httpCfg.NoProxy,
	}
}

func (c Config) maxTokens(override int) int {
	if override > 0 {
		return override
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 2000
}

func (c Config) model(override, fallback string) string {
	if override != "" {
		return override
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

// jsonOnlyInstruction is appended for providers without a native JSON mode
const jsonOnlyInstruction = "\n\nRespond with a single JSON object and nothing else. Do not wrap it in markdown."
