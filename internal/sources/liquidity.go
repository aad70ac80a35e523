package sources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/compintel/internal/model"
)

// OnChainLiquidity reports the deepest DEX pairs for the idea's keywords
type OnChainLiquidity struct {
	dex        *dexScreener
	disabled   bool
	maxResults int
}

// NewOnChainLiquidity creates the on-chain liquidity adapter
func NewOnChainLiquidity(fetcher *Fetcher, cfg model.EndpointConfig, maxResults int) *OnChainLiquidity {
	return &OnChainLiquidity{
		dex:        &dexScreener{fetcher: fetcher, baseURL: strings.TrimRight(cfg.BaseURL, "/")},
		disabled:   cfg.Disabled,
		maxResults: maxResults,
	}
}

func (o *OnChainLiquidity) Kind() model.ProviderKind { return model.ProviderOnChainLiquidity }

func (o *OnChainLiquidity) Fetch(ctx context.Context, q Query) ([]Finding, error) {
	if o.disabled || o.dex.baseURL == "" {
		return nil, eris.Wrap(ErrNotConfigured, "on-chain liquidity: disabled")
	}

	pairs, err := o.dex.search(ctx, q.Term())
	if err != nil {
		return nil, eris.Wrap(err, "on-chain liquidity")
	}

	var findings []Finding
	for _, pair := range pairs {
		if pair.Liquidity.USD <= 0 {
			continue
		}
		volume := ""
		if pair.Volume.H24 > 0 {
			volume = "24h volume " + formatUSD(pair.Volume.H24)
		}
		price := ""
		if v, err := strconv.ParseFloat(pair.PriceUSD, 64); err == nil && v > 0 {
			price = "price " + formatUSD(v)
		}
		fdv := ""
		if pair.FDV > 0 {
			fdv = "FDV " + formatUSD(pair.FDV)
		}

		findings = append(findings, Finding{
			Title:   fmt.Sprintf("%s/%s on %s (%s)", pair.BaseToken.Symbol, pair.QuoteToken.Symbol, pair.DexID, pair.ChainID),
			Snippet: joinParts("liquidity "+formatUSD(pair.Liquidity.USD), volume, price, fdv),
			URL:     pair.URL,
		})
		if o.maxResults > 0 && len(findings) == o.maxResults {
			break
		}
	}
	return findings, nil
}

// dexScreener is the pair search client shared by the liquidity and
// security adapters
type dexScreener struct {
	fetcher *Fetcher
	baseURL string
}

type dexPair struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	URL         string   `json:"url"`
	PairAddress string   `json:"pairAddress"`
	BaseToken   dexToken `json:"baseToken"`
	QuoteToken  dexToken `json:"quoteToken"`
	PriceUSD    string   `json:"priceUsd"`
	Liquidity   struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	FDV float64 `json:"fdv"`
}

type dexToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// search returns pairs ordered by USD liquidity, deepest first
func (d *dexScreener) search(ctx context.Context, term string) ([]dexPair, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}

	var resp struct {
		Pairs []dexPair `json:"pairs"`
	}
	reqURL := d.baseURL + "/latest/dex/search?q=" + url.QueryEscape(term)
	if err := d.fetcher.GetJSON(ctx, reqURL, nil, &resp); err != nil {
		return nil, err
	}

	sort.SliceStable(resp.Pairs, func(i, j int) bool {
		return resp.Pairs[i].Liquidity.USD > resp.Pairs[j].Liquidity.USD
	})
	return resp.Pairs, nil
}
