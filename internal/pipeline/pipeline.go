// Package pipeline runs one competitive evaluation end to end.
package pipeline

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/compintel/internal/evidence"
	"github.com/ppiankov/compintel/internal/grounding"
	"github.com/ppiankov/compintel/internal/llm"
	"github.com/ppiankov/compintel/internal/memo"
	"github.com/ppiankov/compintel/internal/metrics"
	"github.com/ppiankov/compintel/internal/model"
	"github.com/ppiankov/compintel/internal/prompt"
	"github.com/ppiankov/compintel/internal/router"
	"github.com/ppiankov/compintel/internal/sources"
	"github.com/ppiankov/compintel/internal/worker"
)

// Options holds the per-request bounds
type Options struct {
	AdapterTimeout time.Duration
	AdapterWorkers int
	Validity       time.Duration
	Limits         evidence.Limits
	Prompt         prompt.Options
}

// DefaultOptions returns the stock bounds
func DefaultOptions() Options {
	return Options{
		AdapterTimeout: 5 * time.Second,
		AdapterWorkers: 5,
		Validity:       72 * time.Hour,
		Limits:         evidence.DefaultLimits(),
		Prompt:         prompt.DefaultOptions(),
	}
}

// Deps are the collaborators of a pipeline. Router, Sources and Invoker are
// required; the rest fall back to defaults.
type Deps struct {
	Router     *router.Router
	Sources    *sources.Registry
	Invoker    *llm.Invoker
	Normalizer *grounding.Normalizer
	Metrics    *metrics.Collector
	Logger     *zap.Logger
	Now        func() time.Time
}

// Pipeline orchestrates route, gather, synthesize, parse, ground and assemble
type Pipeline struct {
	router     *router.Router
	sources    *sources.Registry
	invoker    *llm.Invoker
	normalizer *grounding.Normalizer
	metrics    *metrics.Collector
	logger     *zap.Logger
	now        func() time.Time
	opts       Options
}

// New creates a pipeline from explicit collaborators
func New(deps Deps, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = def.AdapterTimeout
	}
	if opts.AdapterWorkers <= 0 {
		opts.AdapterWorkers = def.AdapterWorkers
	}
	if opts.Validity <= 0 {
		opts.Validity = def.Validity
	}
	if deps.Router == nil {
		deps.Router = router.Default()
	}
	if deps.Sources == nil {
		deps.Sources = sources.NewRegistry()
	}
	if deps.Invoker == nil {
		deps.Invoker = llm.NewInvoker(nil, 0, deps.Logger)
	}
	if deps.Normalizer == nil {
		deps.Normalizer = grounding.NewNormalizer(grounding.DefaultOptions(), nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Pipeline{
		router:     deps.Router,
		sources:    deps.Sources,
		invoker:    deps.Invoker,
		normalizer: deps.Normalizer,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
		opts:       opts,
	}
}

// NewPipeline wires a pipeline from the resolved configuration
func NewPipeline(cfg *model.Config, logger *zap.Logger, m *metrics.Collector) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, eris.Wrap(err, "initialize LLM provider")
	}
	if provider == nil {
		logger.Warn("no LLM provider configured, evaluations will return llm_not_configured")
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize, cfg.RateLimiting.IdleTTL)
	fetcher := sources.NewFetcher(cfg.HTTP, limiter)

	normalizer := grounding.NewNormalizer(grounding.Options{
		MaxClaims:      cfg.Engine.MaxClaims,
		MaxBackfillIDs: cfg.Engine.MaxBackfillIDs,
		MaxTextLen:     cfg.Engine.ClaimMaxLen,
	}, grounding.MatcherByName(cfg.Engine.ProjectMatcher))

	return New(Deps{
		Router:     router.Default(),
		Sources:    sources.NewDefaultRegistry(cfg.Sources, fetcher, logger),
		Invoker:    llm.NewInvoker(provider, cfg.Engine.SynthesisTimeout, logger),
		Normalizer: normalizer,
		Metrics:    m,
		Logger:     logger,
	}, Options{
		AdapterTimeout: cfg.Sources.Timeout,
		AdapterWorkers: cfg.Concurrency.AdapterWorkers,
		Validity:       time.Duration(cfg.Engine.ValidityHours) * time.Hour,
		Limits: evidence.Limits{
			TitleMaxLen:   cfg.Engine.TitleMaxLen,
			SnippetMaxLen: cfg.Engine.SnippetMaxLen,
		},
		Prompt: prompt.Options{MaxEvidenceHints: cfg.Engine.MaxEvidenceHints},
	}), nil
}

// Router returns the category router
func (p *Pipeline) Router() *router.Router {
	return p.router
}

// Sources returns the adapter registry
func (p *Pipeline) Sources() *sources.Registry {
	return p.sources
}

// Invoker returns the synthesis invoker
func (p *Pipeline) Invoker() *llm.Invoker {
	return p.invoker
}

// Evaluate runs one evaluation. It never returns nil and never panics:
// every failure becomes a not_available outcome with a reason code.
func (p *Pipeline) Evaluate(ctx context.Context, req model.EvaluationRequest) (out *model.Outcome) {
	start := p.now()
	requestID := uuid.NewString()
	log := p.logger.With(zap.String("request_id", requestID))
	metricCategory := "unsupported"

	defer func() {
		if r := recover(); r != nil {
			log.Error("evaluation panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			out = model.NotAvailable(model.ReasonInternal)
		}
		p.metrics.RecordOutcome(metricCategory, out, p.now().Sub(start))
		log.Info("evaluation finished",
			zap.String("status", string(out.Status)),
			zap.String("reason", out.Reason),
			zap.Duration("elapsed", p.now().Sub(start)))
	}()

	// 1. route
	route, err := p.router.Resolve(req.Category)
	if err != nil {
		category := strings.TrimSpace(req.Category)
		log.Info("unsupported category", zap.String("category", category))
		return model.NotAvailable(model.ReasonUnsupportedCategory + ":" + category)
	}
	metricCategory = route.Category
	log = log.With(zap.String("category", route.Category))

	if !p.invoker.Configured() {
		return model.NotAvailable(model.ReasonLLMNotConfigured)
	}

	// 2. gather evidence
	idea := req.Idea()
	pack := p.gather(ctx, route, sources.NewQuery(idea, route.Category), log)

	// 3. synthesize
	pr := prompt.Build(idea, route, pack, p.opts.Prompt)
	synthStart := p.now()
	raw, err := p.invoker.Invoke(ctx, pr)
	p.metrics.RecordSynthesis(p.invoker.ProviderName(), err, p.now().Sub(synthStart))
	if err != nil {
		return model.NotAvailable(synthesisReason(err))
	}
	if strings.TrimSpace(raw) == "" {
		log.Warn("model returned an empty payload")
		return model.NotAvailable(model.ReasonEmptyPayload)
	}

	// 4. parse
	parsed := memo.Parse(raw)
	switch parsed.Kind {
	case memo.KindParseError:
		log.Warn("model payload is not JSON", zap.Error(parsed.Err))
		return model.NotAvailable(model.ReasonInvalidPayload)
	case memo.KindSchemaError:
		log.Warn("model payload failed schema check", zap.Error(parsed.Err))
		return model.NotAvailable(model.ReasonInvalidSchema)
	}

	// 5. ground
	claims, stats := p.normalizer.Normalize(parsed.RawClaims, pack, parsed.Memo.ReferenceProjects)
	p.metrics.RecordClaims(claims, stats.DroppedIDs)
	log.Debug("claims normalized",
		zap.Int("raw", stats.RawClaims),
		zap.Int("kept", len(claims)),
		zap.Int("dropped_ids", stats.DroppedIDs),
		zap.Int("backfilled", stats.Backfilled),
		zap.Bool("fallback", stats.Fallback))

	// 6. assemble
	return p.assemble(requestID, route, parsed.Memo, claims, pack)
}

// synthesisReason maps an invoker error to its reason code
func synthesisReason(err error) string {
	switch {
	case errors.Is(err, llm.ErrSynthesisTimeout):
		return model.ReasonSynthesisTimeout
	case errors.Is(err, llm.ErrNotConfigured):
		return model.ReasonLLMNotConfigured
	default:
		return model.ReasonSynthesisFailed + ": " + err.Error()
	}
}
