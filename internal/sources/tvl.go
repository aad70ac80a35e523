package sources

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/compintel/internal/model"
)

// protocolListMaxBytes caps the DeFiLlama /protocols download, which lists
// every tracked protocol and runs to several megabytes
const protocolListMaxBytes = 64 << 20

// ProtocolTVL ranks DeFiLlama protocols matching the idea by locked value
type ProtocolTVL struct {
	fetcher    *Fetcher
	baseURL    string
	disabled   bool
	maxResults int
}

// NewProtocolTVL creates the protocol TVL adapter
func NewProtocolTVL(fetcher *Fetcher, cfg model.EndpointConfig, maxResults int) *ProtocolTVL {
	return &ProtocolTVL{
		fetcher:    fetcher,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		disabled:   cfg.Disabled,
		maxResults: maxResults,
	}
}

type llamaProtocol struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Chains      []string `json:"chains"`
	TVL         float64  `json:"tvl"`
	Change1D    *float64 `json:"change_1d"`
}

func (p *ProtocolTVL) Kind() model.ProviderKind { return model.ProviderProtocolTVL }

func (p *ProtocolTVL) Fetch(ctx context.Context, q Query) ([]Finding, error) {
	if p.disabled || p.baseURL == "" {
		return nil, eris.Wrap(ErrNotConfigured, "protocol tvl: disabled")
	}

	var protocols []llamaProtocol
	if err := p.fetcher.GetJSONLimit(ctx, p.baseURL+"/protocols", nil, &protocols, protocolListMaxBytes); err != nil {
		return nil, eris.Wrap(err, "protocol tvl")
	}

	type scored struct {
		protocol llamaProtocol
		score    int
	}
	var matches []scored
	for _, proto := range protocols {
		if proto.TVL <= 0 {
			continue
		}
		if s := matchScore(q.Keywords, proto.Name, proto.Category, proto.Description); s > 0 {
			matches = append(matches, scored{protocol: proto, score: s})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].protocol.TVL > matches[j].protocol.TVL
	})

	var findings []Finding
	for _, m := range matches {
		proto := m.protocol
		change := ""
		if proto.Change1D != nil {
			change = "24h change " + formatPercent(*proto.Change1D)
		}
		chains := ""
		if len(proto.Chains) > 0 {
			shown := proto.Chains
			if len(shown) > 4 {
				shown = shown[:4]
			}
			chains = "chains: " + strings.Join(shown, ", ")
		}

		findings = append(findings, Finding{
			Title:   fmt.Sprintf("%s (%s) TVL %s", proto.Name, proto.Category, formatUSD(proto.TVL)),
			Snippet: joinParts("TVL "+formatUSD(proto.TVL), change, chains),
			URL:     "https://defillama.com/protocol/" + proto.Slug,
		})
		if p.maxResults > 0 && len(findings) == p.maxResults {
			break
		}
	}
	return findings, nil
}

// matchScore counts keywords found in any field. Category hits weigh double.
func matchScore(keywords []string, name, category, description string) int {
	name = strings.ToLower(name)
	category = strings.ToLower(category)
	description = strings.ToLower(description)

	score := 0
	for _, kw := range keywords {
		switch {
		case strings.Contains(category, kw):
			score += 2
		case strings.Contains(name, kw), strings.Contains(description, kw):
			score++
		}
	}
	return score
}
