package llm

import (
	"context"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/compintel/internal/util"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicProvider implements the Provider interface for Anthropic Claude models
type AnthropicProvider struct {
	client sdk.Client
	config Config
}

// NewAnthropicProvider creates a new Anthropic provider. SDK retries are
// disabled: a synthesis call is attempted at most once.
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, eris.New("Anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		}),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicProvider{
		client: sdk.NewClient(opts...),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable sends a minimal message to verify the key and model
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(p.config.model("", defaultAnthropicModel)),
		MaxTokens: 1,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock("Hi"))},
	})
	if err != nil {
		zap.L().Warn("anthropic availability check failed", zap.Error(err))
		return false
	}
	return true
}

// Complete runs one Messages API call
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	system := req.Prompt.System
	if req.Format == FormatJSON {
		system += jsonOnlyInstruction
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(p.config.model(req.Model, defaultAnthropicModel)),
		MaxTokens:   int64(p.config.maxTokens(req.MaxTokens)),
		System:      []sdk.TextBlockParam{{Text: system}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt.User))},
		Temperature: sdk.Float(0.2),
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(b.String()),
		Model:      string(msg.Model),
		TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}
