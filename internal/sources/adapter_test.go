package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/compintel/internal/model"
)

// stubAdapter is a scripted adapter
type stubAdapter struct {
	kind     model.ProviderKind
	findings []Finding
	err      error
	delay    time.Duration
	panicMsg string
	calls    int
}

func (s *stubAdapter) Kind() model.ProviderKind { return s.kind }

func (s *stubAdapter) Fetch(ctx context.Context, q Query) ([]Finding, error) {
	s.calls++
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.findings, s.err
}

func TestRun_Success(t *testing.T) {
	adapter := &stubAdapter{kind: model.ProviderProtocolTVL, findings: []Finding{{Title: "Aave"}}, delay: 10 * time.Millisecond}

	before := time.Now()
	res := Run(context.Background(), adapter, Query{}, time.Second)

	assert.True(t, res.OK())
	assert.False(t, res.FetchedAt.Before(before.Add(10*time.Millisecond)), "fetchedAt is taken when the adapter returns")
	assert.Equal(t, model.ProviderProtocolTVL, res.Kind)
	assert.Len(t, res.Findings, 1)
}

func TestRun_Timeout(t *testing.T) {
	adapter := &stubAdapter{kind: model.ProviderWebSearch, delay: time.Second}

	res := Run(context.Background(), adapter, Query{}, 20*time.Millisecond)

	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, ErrTimeout)
	assert.Contains(t, res.Err.Error(), "deadline exceeded")
	assert.Empty(t, res.Findings)
	assert.Less(t, res.Elapsed, 500*time.Millisecond)
}

func TestRun_RecoversPanic(t *testing.T) {
	adapter := &stubAdapter{kind: model.ProviderTokenSecurity, panicMsg: "nil map"}

	res := Run(context.Background(), adapter, Query{}, time.Second)

	require.False(t, res.OK())
	assert.Contains(t, res.Err.Error(), "panicked")
	assert.Equal(t, model.ProviderTokenSecurity, res.Kind)
}

func TestRun_Error(t *testing.T) {
	adapter := &stubAdapter{
		kind:     model.ProviderTokenMarketData,
		findings: []Finding{{Title: "partial"}},
		err:      errors.New("connection refused"),
	}

	res := Run(context.Background(), adapter, Query{}, time.Second)

	require.False(t, res.OK())
	assert.Empty(t, res.Findings, "failed adapters contribute no findings")
	assert.True(t, res.FetchedAt.IsZero())
	assert.Equal(t, res.Err, res.GetError())
}

func TestRun_NotConfigured(t *testing.T) {
	adapter := &stubAdapter{kind: model.ProviderWebSearch, err: ErrNotConfigured}

	res := Run(context.Background(), adapter, Query{}, time.Second)

	assert.ErrorIs(t, res.Err, ErrNotConfigured)
}

func TestWithBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubAdapter{kind: model.ProviderProtocolTVL, err: errors.New("502")}
	adapter := WithBreaker(inner, model.BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := adapter.Fetch(context.Background(), Query{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}

	_, err := adapter.Fetch(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, 2, inner.calls, "open breaker must not reach the provider")
	assert.Equal(t, model.ProviderProtocolTVL, adapter.Kind())
}

func TestWithBreaker_IgnoresNotConfigured(t *testing.T) {
	inner := &stubAdapter{kind: model.ProviderWebSearch, err: ErrNotConfigured}
	adapter := WithBreaker(inner, model.BreakerConfig{ConsecutiveFailures: 1, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		_, err := adapter.Fetch(context.Background(), Query{})
		assert.ErrorIs(t, err, ErrNotConfigured)
	}
	assert.Equal(t, 3, inner.calls)
}

func TestWithBreaker_PassesFindings(t *testing.T) {
	inner := &stubAdapter{kind: model.ProviderOnChainLiquidity, findings: []Finding{{Title: "pair"}}}
	adapter := WithBreaker(inner, model.BreakerConfig{}, nil)

	findings, err := adapter.Fetch(context.Background(), Query{})

	require.NoError(t, err)
	assert.Equal(t, []Finding{{Title: "pair"}}, findings)
}
