package model

import (
	"sort"
	"time"
)

// EvidenceItem is one atomic fact fetched from one provider
type EvidenceItem struct {
	ID              string          `json:"id"`              // {providerKind}_{sequence}, unique per request
	ProviderKind    ProviderKind    `json:"providerKind"`    // Which provider produced the fact
	Title           string          `json:"title"`           // Truncated at collection time
	Snippet         string          `json:"snippet"`         // Truncated at collection time
	URL             string          `json:"url,omitempty"`   // Optional reference link
	FetchedAt       time.Time       `json:"fetchedAt"`       // When the fact was retrieved
	ReliabilityTier ReliabilityTier `json:"reliabilityTier"` // Always ReliabilityFor(ProviderKind)
}

// ProviderKind identifies an evidence source category.
// The string value doubles as the evidence id prefix.
type ProviderKind string

const (
	ProviderWebSearch        ProviderKind = "web"       // Freeform web search results
	ProviderProtocolTVL      ProviderKind = "tvl"       // Protocol TVL aggregator
	ProviderOnChainLiquidity ProviderKind = "liquidity" // DEX pair liquidity
	ProviderTokenMarketData  ProviderKind = "market"    // Token price / market cap
	ProviderTokenSecurity    ProviderKind = "security"  // Token contract risk flags
	ProviderSystem           ProviderKind = "system"    // Engine-generated filler
)

// DisplayName returns a human-readable provider name
func (k ProviderKind) DisplayName() string {
	switch k {
	case ProviderWebSearch:
		return "WebSearch"
	case ProviderProtocolTVL:
		return "ProtocolTVL"
	case ProviderOnChainLiquidity:
		return "OnChainLiquidity"
	case ProviderTokenMarketData:
		return "TokenMarketData"
	case ProviderTokenSecurity:
		return "TokenSecurity"
	case ProviderSystem:
		return "System"
	default:
		return string(k)
	}
}

// ReliabilityTier is a static weight attached to every evidence item
type ReliabilityTier string

const (
	ReliabilityHigh   ReliabilityTier = "high"
	ReliabilityMedium ReliabilityTier = "medium"
	ReliabilityLow    ReliabilityTier = "low"
)

var reliabilityByKind = map[ProviderKind]ReliabilityTier{
	ProviderProtocolTVL:      ReliabilityHigh,
	ProviderOnChainLiquidity: ReliabilityHigh,
	ProviderTokenMarketData:  ReliabilityHigh,
	ProviderTokenSecurity:    ReliabilityHigh,
	ProviderWebSearch:        ReliabilityMedium,
	ProviderSystem:           ReliabilityLow,
}

// ReliabilityFor returns the tier for a provider kind. Unknown kinds are low.
func ReliabilityFor(kind ProviderKind) ReliabilityTier {
	if tier, ok := reliabilityByKind[kind]; ok {
		return tier
	}
	return ReliabilityLow
}

// EvidencePack is the complete evidence set of one request.
// It is the single source of truth for which evidence ids are real.
type EvidencePack struct {
	Evidence           []EvidenceItem `json:"evidence"`
	UnavailableSources []ProviderKind `json:"unavailableSources"`
	GeneratedAt        time.Time      `json:"generatedAt"`

	index map[string]int
}

// NewEvidencePack freezes items into a pack. Items and the unavailable set
// are copied; the unavailable set is de-duplicated and sorted.
func NewEvidencePack(items []EvidenceItem, unavailable []ProviderKind, generatedAt time.Time) *EvidencePack {
	evidence := make([]EvidenceItem, len(items))
	copy(evidence, items)

	index := make(map[string]int, len(evidence))
	for i, item := range evidence {
		index[item.ID] = i
	}

	seen := make(map[ProviderKind]bool)
	sources := make([]ProviderKind, 0, len(unavailable))
	for _, kind := range unavailable {
		if !seen[kind] {
			seen[kind] = true
			sources = append(sources, kind)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	return &EvidencePack{
		Evidence:           evidence,
		UnavailableSources: sources,
		GeneratedAt:        generatedAt,
		index:              index,
	}
}

// Has reports whether id names an item in the pack
func (p *EvidencePack) Has(id string) bool {
	if p == nil {
		return false
	}
	if p.index == nil {
		// Pack decoded from JSON rather than built by NewEvidencePack
		for _, item := range p.Evidence {
			if item.ID == id {
				return true
			}
		}
		return false
	}
	_, ok := p.index[id]
	return ok
}

// Get returns the item with the given id
func (p *EvidencePack) Get(id string) (EvidenceItem, bool) {
	if p == nil {
		return EvidenceItem{}, false
	}
	for _, item := range p.Evidence {
		if item.ID == id {
			return item, true
		}
	}
	return EvidenceItem{}, false
}

// Len returns the number of evidence items
func (p *EvidencePack) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Evidence)
}

// IsUnavailable reports whether kind was recorded as unavailable
func (p *EvidencePack) IsUnavailable(kind ProviderKind) bool {
	if p == nil {
		return false
	}
	for _, k := range p.UnavailableSources {
		if k == kind {
			return true
		}
	}
	return false
}
