// Package router maps a requested category to the providers it consults
// and the synthesis instructions it uses.
package router

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/compintel/internal/model"
)

// ErrUnsupportedCategory is returned for categories outside the allow-list
var ErrUnsupportedCategory = eris.New("unsupported category")

// Route is everything the pipeline needs to know about one category
type Route struct {
	Category    string               `json:"category"`
	Label       string               `json:"label"`
	Description string               `json:"description"`
	Providers   []model.ProviderKind `json:"providers"` // Invocation order, also evidence id order
	Instruction string               `json:"-"`         // Category-specific synthesis guidance
}

// Router resolves categories
type Router struct {
	routes map[string]Route
}

// New creates a router over the given routes
func New(routes ...Route) *Router {
	r := &Router{routes: make(map[string]Route, len(routes))}
	for _, route := range routes {
		r.routes[normalize(route.Category)] = route
	}
	return r
}

// Default returns the router with the built-in categories
func Default() *Router {
	return New(DefaultRoutes()...)
}

// Resolve returns the route for category. Matching ignores case and
// surrounding whitespace.
func (r *Router) Resolve(category string) (Route, error) {
	route, ok := r.routes[normalize(category)]
	if !ok {
		return Route{}, eris.Wrapf(ErrUnsupportedCategory, "category %q", category)
	}
	return route, nil
}

// Routes lists the supported routes sorted by category
func (r *Router) Routes() []Route {
	routes := make([]Route, 0, len(r.routes))
	for _, route := range r.routes {
		routes = append(routes, route)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Category < routes[j].Category })
	return routes
}

func normalize(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// DefaultRoutes returns the built-in category allow-list
func DefaultRoutes() []Route {
	return []Route{
		{
			Category:    "narrative-asset",
			Label:       "Speculative / narrative asset",
			Description: "Tokens whose value is driven by narrative, community and market attention",
			Providers: []model.ProviderKind{
				model.ProviderWebSearch,
				model.ProviderTokenMarketData,
				model.ProviderOnChainLiquidity,
				model.ProviderTokenSecurity,
			},
			Instruction: `You are evaluating a speculative, narrative-driven token idea.
Judge crowdedness by how many live tokens chase the same narrative and how
much market cap and DEX liquidity they already hold. Treat contract risk
flags (honeypot, mintable supply, closed source) as strong negative signals
about the competitor set. Distinguish genuine traction (sustained liquidity,
volume) from short-lived hype.`,
		},
		{
			Category:    "protocol-liquidity",
			Label:       "DeFi protocol / liquidity",
			Description: "Protocols competing for deposited capital and trading liquidity",
			Providers: []model.ProviderKind{
				model.ProviderWebSearch,
				model.ProviderProtocolTVL,
				model.ProviderOnChainLiquidity,
			},
			Instruction: `You are evaluating a DeFi protocol idea that competes for deposited capital.
Judge crowdedness by the number of incumbent protocols in the same category
and the TVL they hold. Differentiation must be explained in terms of capital
efficiency, risk isolation, chain coverage or user experience, not branding.
Compare the idea's success metric against the incumbents' actual TVL.`,
		},
		{
			Category:    "agent-software",
			Label:       "Agent / software product",
			Description: "AI agents, developer tools and other software products",
			Providers: []model.ProviderKind{
				model.ProviderWebSearch,
			},
			Instruction: `You are evaluating a software or AI agent product idea.
Judge crowdedness by the number of shipped products solving the same job and
how mature they are. Differentiation must name the specific workflow or user
segment the incumbents serve poorly. Funding and user numbers are only facts
when they appear in the evidence.`,
		},
	}
}
