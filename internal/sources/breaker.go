package sources

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ppiankov/compintel/internal/model"
)

// ErrCircuitOpen is returned while a provider's breaker is open
var ErrCircuitOpen = eris.New("provider circuit open")

// breakerAdapter stops calling a provider that keeps failing. An open
// breaker is reported like any other failure.
type breakerAdapter struct {
	inner Adapter
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker wraps adapter in a circuit breaker
func WithBreaker(adapter Adapter, cfg model.BreakerConfig, logger *zap.Logger) Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(adapter.Kind()),
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Missing credentials and caller cancellation say nothing about
			// the provider's health
			return err == nil ||
				errors.Is(err, ErrNotConfigured) ||
				errors.Is(err, context.Canceled)
		},
	})

	return &breakerAdapter{inner: adapter, cb: cb}
}

func (b *breakerAdapter) Kind() model.ProviderKind {
	return b.inner.Kind()
}

func (b *breakerAdapter) Fetch(ctx context.Context, q Query) ([]Finding, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Fetch(ctx, q)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, eris.Wrap(ErrCircuitOpen, err.Error())
		}
		return nil, err
	}
	findings, _ := out.([]Finding)
	return findings, nil
}

// State exposes the breaker state for health reporting
func (b *breakerAdapter) State() gobreaker.State {
	return b.cb.State()
}
