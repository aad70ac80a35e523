package sources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/compintel/internal/model"
)

// goplusChains maps DexScreener chain ids to GoPlus chain ids
var goplusChains = map[string]string{
	"ethereum":  "1",
	"bsc":       "56",
	"polygon":   "137",
	"arbitrum":  "42161",
	"optimism":  "10",
	"base":      "8453",
	"avalanche": "43114",
}

// TokenSecurity reports contract risk flags for tokens matching the idea.
// Tokens are resolved through DexScreener, then checked on GoPlus.
type TokenSecurity struct {
	fetcher    *Fetcher
	dex        *dexScreener
	baseURL    string
	disabled   bool
	maxResults int
}

// NewTokenSecurity creates the token security adapter
func NewTokenSecurity(fetcher *Fetcher, cfg model.EndpointConfig, dexCfg model.EndpointConfig, maxResults int) *TokenSecurity {
	return &TokenSecurity{
		fetcher:    fetcher,
		dex:        &dexScreener{fetcher: fetcher, baseURL: strings.TrimRight(dexCfg.BaseURL, "/")},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		disabled:   cfg.Disabled || dexCfg.Disabled,
		maxResults: maxResults,
	}
}

type goplusResponse struct {
	Code    int                         `json:"code"`
	Message string                      `json:"message"`
	Result  map[string]goplusTokenFlags `json:"result"`
}

type goplusTokenFlags struct {
	TokenName    string `json:"token_name"`
	TokenSymbol  string `json:"token_symbol"`
	IsHoneypot   string `json:"is_honeypot"`
	IsOpenSource string `json:"is_open_source"`
	IsMintable   string `json:"is_mintable"`
	IsProxy      string `json:"is_proxy"`
	BuyTax       string `json:"buy_tax"`
	SellTax      string `json:"sell_tax"`
	HolderCount  string `json:"holder_count"`
}

type tokenRef struct {
	chain   string // GoPlus chain id
	address string
	symbol  string
}

func (s *TokenSecurity) Kind() model.ProviderKind { return model.ProviderTokenSecurity }

func (s *TokenSecurity) Fetch(ctx context.Context, q Query) ([]Finding, error) {
	if s.disabled || s.baseURL == "" || s.dex.baseURL == "" {
		return nil, eris.Wrap(ErrNotConfigured, "token security: disabled")
	}

	pairs, err := s.dex.search(ctx, q.Term())
	if err != nil {
		return nil, eris.Wrap(err, "token security: resolve tokens")
	}

	tokens := s.resolveTokens(pairs)
	if len(tokens) == 0 {
		return nil, nil
	}

	byChain := make(map[string][]tokenRef)
	for _, t := range tokens {
		byChain[t.chain] = append(byChain[t.chain], t)
	}
	chains := make([]string, 0, len(byChain))
	for chain := range byChain {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	var findings []Finding
	for _, chain := range chains {
		refs := byChain[chain]
		addrs := make([]string, len(refs))
		for i, r := range refs {
			addrs[i] = r.address
		}

		reqURL := fmt.Sprintf("%s/api/v1/token_security/%s?contract_addresses=%s",
			s.baseURL, chain, url.QueryEscape(strings.Join(addrs, ",")))

		var resp goplusResponse
		if err := s.fetcher.GetJSON(ctx, reqURL, nil, &resp); err != nil {
			return nil, eris.Wrapf(err, "token security: chain %s", chain)
		}
		if resp.Code != 1 {
			return nil, eris.Errorf("token security: goplus code %d: %s", resp.Code, resp.Message)
		}

		for _, ref := range refs {
			flags, ok := resp.Result[ref.address]
			if !ok {
				continue
			}
			findings = append(findings, securityFinding(ref, flags))
		}
	}
	return findings, nil
}

// resolveTokens picks distinct base tokens on supported chains, deepest
// liquidity first
func (s *TokenSecurity) resolveTokens(pairs []dexPair) []tokenRef {
	limit := s.maxResults
	if limit <= 0 {
		limit = 5
	}

	var refs []tokenRef
	seen := make(map[string]bool)
	for _, pair := range pairs {
		chain, ok := goplusChains[pair.ChainID]
		if !ok || pair.BaseToken.Address == "" {
			continue
		}
		addr := strings.ToLower(pair.BaseToken.Address)
		key := chain + ":" + addr
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, tokenRef{chain: chain, address: addr, symbol: pair.BaseToken.Symbol})
		if len(refs) == limit {
			break
		}
	}
	return refs
}

func securityFinding(ref tokenRef, flags goplusTokenFlags) Finding {
	name := flags.TokenSymbol
	if name == "" {
		name = ref.symbol
	}

	risk := "no major risk flags"
	if flags.IsHoneypot == "1" {
		risk = "HONEYPOT"
	} else if flags.IsMintable == "1" || flags.IsOpenSource == "0" {
		risk = "elevated risk"
	}

	holders := ""
	if flags.HolderCount != "" {
		holders = "holders " + flags.HolderCount
	}

	return Finding{
		Title: fmt.Sprintf("%s contract security: %s", name, risk),
		Snippet: joinParts(
			"honeypot: "+yesNo(flags.IsHoneypot),
			"open source: "+yesNo(flags.IsOpenSource),
			"mintable: "+yesNo(flags.IsMintable),
			"proxy: "+yesNo(flags.IsProxy),
			taxPart("buy tax", flags.BuyTax),
			taxPart("sell tax", flags.SellTax),
			holders,
		),
		URL: fmt.Sprintf("https://gopluslabs.io/token-security/%s/%s", ref.chain, ref.address),
	}
}

func taxPart(label, v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return label + " " + v
}
