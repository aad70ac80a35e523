package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ppiankov/compintel/internal/util"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements the Provider interface for Google Gemini models
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, eris.New("Gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, eris.Wrap(err, "create gemini client")
	}

	return &GeminiProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks that the configured model can be resolved
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.Models.Get(ctx, p.config.model("", defaultGeminiModel), nil); err != nil {
		zap.L().Warn("gemini availability check failed", zap.Error(err))
		return false
	}
	return true
}

// Complete runs one GenerateContent call
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	modelName := p.config.model(req.Model, defaultGeminiModel)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.Prompt.System, genai.RoleUser),
		MaxOutputTokens:   int32(p.config.maxTokens(req.MaxTokens)),
		Temperature:       genai.Ptr[float32](0.2),
	}
	if req.Format == FormatJSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := p.client.Models.GenerateContent(ctx, modelName, genai.Text(req.Prompt.User), cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(resp.Text()),
		Model:      modelName,
		TokensUsed: tokens,
	}, nil
}
