// Package sources implements the evidence provider adapters. Every adapter
// is independent: one failing or being unconfigured never affects another.
package sources

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/compintel/internal/model"
)

// ErrNotConfigured is returned by adapters missing a key or endpoint
var ErrNotConfigured = eris.New("provider not configured")

// Adapter translates one external capability into findings
type Adapter interface {
	Kind() model.ProviderKind
	Fetch(ctx context.Context, q Query) ([]Finding, error)
}

// Finding is one raw fact. Ids, truncation and reliability are assigned
// later by the evidence collector.
type Finding struct {
	Title   string
	Snippet string
	URL     string
}

// Result is the outcome of one guarded adapter run
type Result struct {
	Kind     model.ProviderKind
	Findings []Finding
	Err      error
	Elapsed  time.Duration
	// FetchedAt is when the adapter returned its findings
	FetchedAt time.Time
}

// OK reports whether the adapter completed without error
func (r *Result) OK() bool {
	return r.Err == nil
}

// GetError returns the adapter error, if any
func (r *Result) GetError() error {
	return r.Err
}

// Run invokes adapter under its own timeout. It never returns an error
// and never panics: every failure lands in Result.Err with no findings.
func Run(ctx context.Context, adapter Adapter, q Query, timeout time.Duration) (res *Result) {
	start := time.Now()
	res = &Result{Kind: adapter.Kind()}

	defer func() {
		if r := recover(); r != nil {
			res.Findings = nil
			res.Err = eris.Errorf("%s adapter panicked: %v", adapter.Kind(), r)
		}
		res.Elapsed = time.Since(start)
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	findings, err := adapter.Fetch(ctx, q)
	if err == nil {
		// A well-behaved adapter honours ctx, but do not trust late returns
		err = ctx.Err()
	}
	if err != nil {
		res.Err = classify(ctx, err)
		return res
	}

	res.Findings = findings
	res.FetchedAt = time.Now()
	return res
}

// ErrTimeout marks an adapter that exceeded its budget
var ErrTimeout = eris.New("provider timed out")

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return eris.Wrap(ErrTimeout, err.Error())
	}
	return err
}
