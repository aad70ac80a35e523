package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/compintel/internal/evidence"
	"github.com/ppiankov/compintel/internal/model"
	"github.com/ppiankov/compintel/internal/router"
	"github.com/ppiankov/compintel/internal/sources"
	"github.com/ppiankov/compintel/internal/worker"
)

// adapterJob runs one adapter through the boundary guard
type adapterJob struct {
	adapter sources.Adapter
	query   sources.Query
	timeout time.Duration
}

func (j *adapterJob) Execute(ctx context.Context) worker.Result {
	return sources.Run(ctx, j.adapter, j.query, j.timeout)
}

// gather fans the route's adapters out over a worker pool, joins on all of
// them and freezes the evidence pack. Findings are added in route order so
// ids do not depend on completion order.
func (p *Pipeline) gather(ctx context.Context, route router.Route, q sources.Query, log *zap.Logger) *model.EvidencePack {
	collector := evidence.NewCollector(p.opts.Limits, p.now)

	pool := worker.NewPool(ctx, p.opts.AdapterWorkers)
	pool.Start()

	var unavailable []model.ProviderKind
	for _, kind := range route.Providers {
		adapter, ok := p.sources.Get(kind)
		if !ok {
			log.Warn("no adapter registered", zap.String("provider", string(kind)))
			unavailable = append(unavailable, kind)
			continue
		}
		if !pool.Submit(&adapterJob{adapter: adapter, query: q, timeout: p.opts.AdapterTimeout}) {
			unavailable = append(unavailable, kind)
		}
	}

	byKind := make(map[model.ProviderKind]*sources.Result)
	for _, r := range pool.Wait() {
		if res, ok := r.(*sources.Result); ok {
			byKind[res.Kind] = res
		}
	}

	for _, kind := range route.Providers {
		if _, ok := p.sources.Get(kind); !ok {
			continue
		}
		res := byKind[kind]
		if res == nil {
			// Queued but never run: the request context ended first
			unavailable = appendUnique(unavailable, kind)
			p.metrics.RecordAdapter(kind, false, 0, 0)
			continue
		}
		if !res.OK() {
			log.Warn("evidence provider unavailable",
				zap.String("provider", string(kind)),
				zap.Duration("elapsed", res.Elapsed),
				zap.Error(res.Err))
			unavailable = appendUnique(unavailable, kind)
			p.metrics.RecordAdapter(kind, false, 0, res.Elapsed)
			continue
		}

		added := 0
		for _, f := range res.Findings {
			if collector.AddAt(kind, f.Title, f.Snippet, f.URL, res.FetchedAt) != "" {
				added++
			}
		}
		p.metrics.RecordAdapter(kind, true, added, res.Elapsed)
		log.Debug("evidence collected",
			zap.String("provider", string(kind)),
			zap.Int("items", added),
			zap.Duration("elapsed", res.Elapsed))
	}

	return collector.Pack(unavailable)
}

func appendUnique(kinds []model.ProviderKind, kind model.ProviderKind) []model.ProviderKind {
	for _, k := range kinds {
		if k == kind {
			return kinds
		}
	}
	return append(kinds, kind)
}
