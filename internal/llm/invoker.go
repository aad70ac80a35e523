package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrSynthesisTimeout is returned when the model does not answer in time
	ErrSynthesisTimeout = eris.New("synthesis timeout")

	// ErrNotConfigured is returned when no provider is configured
	ErrNotConfigured = eris.New("llm not configured")
)

// DefaultSynthesisTimeout bounds a single completion call
const DefaultSynthesisTimeout = 15 * time.Second

// Invoker calls the provider at most once per request under a hard deadline
type Invoker struct {
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewInvoker creates an invoker. A nil provider yields ErrNotConfigured on every call.
func NewInvoker(provider Provider, timeout time.Duration, logger *zap.Logger) *Invoker {
	if timeout <= 0 {
		timeout = DefaultSynthesisTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Configured reports whether a provider is attached
func (i *Invoker) Configured() bool {
	return i != nil && i.provider != nil
}

// ProviderName returns the attached provider name, or "" when disabled
func (i *Invoker) ProviderName() string {
	if !i.Configured() {
		return ""
	}
	return i.provider.Name()
}

// Invoke sends the prompt with a JSON response hint and returns the raw text.
// The deadline is carried by ctx into the provider transport; an expired
// deadline becomes ErrSynthesisTimeout. There are no retries.
func (i *Invoker) Invoke(ctx context.Context, prompt Prompt) (string, error) {
	if !i.Configured() {
		return "", ErrNotConfigured
	}

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	start := time.Now()
	resp, err := i.provider.Complete(callCtx, CompletionRequest{
		Prompt: prompt,
		Format: FormatJSON,
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			i.logger.Warn("synthesis timed out",
				zap.String("provider", i.provider.Name()),
				zap.Duration("timeout", i.timeout))
			return "", ErrSynthesisTimeout
		}
		i.logger.Warn("synthesis failed",
			zap.String("provider", i.provider.Name()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", err
	}
	if resp == nil {
		return "", nil
	}

	i.logger.Debug("synthesis complete",
		zap.String("provider", i.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed),
		zap.Duration("elapsed", elapsed))
	return resp.Text, nil
}
