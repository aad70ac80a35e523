package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/compintel/internal/model"
)

// TokenMarketData looks up market cap and price for tokens matching the idea
type TokenMarketData struct {
	fetcher    *Fetcher
	apiKey     string
	baseURL    string
	maxResults int
}

// NewTokenMarketData creates the token market data adapter. The CoinGecko
// key is optional; the public tier works without one.
func NewTokenMarketData(fetcher *Fetcher, cfg model.CoinGeckoConfig, maxResults int) *TokenMarketData {
	return &TokenMarketData{
		fetcher:    fetcher,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: maxResults,
	}
}

type geckoSearchResponse struct {
	Coins []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"coins"`
}

type geckoMarket struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	CurrentPrice             float64  `json:"current_price"`
	MarketCap                float64  `json:"market_cap"`
	MarketCapRank            *int     `json:"market_cap_rank"`
	TotalVolume              float64  `json:"total_volume"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

func (m *TokenMarketData) Kind() model.ProviderKind { return model.ProviderTokenMarketData }

func (m *TokenMarketData) Fetch(ctx context.Context, q Query) ([]Finding, error) {
	if m.baseURL == "" {
		return nil, eris.Wrap(ErrNotConfigured, "token market data: no endpoint")
	}
	term := q.Term()
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}

	var headers map[string]string
	if m.apiKey != "" {
		headers = map[string]string{"x-cg-demo-api-key": m.apiKey}
	}

	var search geckoSearchResponse
	if err := m.fetcher.GetJSON(ctx, m.baseURL+"/search?query="+url.QueryEscape(term), headers, &search); err != nil {
		return nil, eris.Wrap(err, "token market data: search")
	}

	limit := m.maxResults
	if limit <= 0 {
		limit = 5
	}
	var ids []string
	for _, coin := range search.Coins {
		if coin.ID == "" {
			continue
		}
		ids = append(ids, coin.ID)
		if len(ids) == limit {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var markets []geckoMarket
	marketsURL := fmt.Sprintf("%s/coins/markets?vs_currency=usd&ids=%s", m.baseURL, url.QueryEscape(strings.Join(ids, ",")))
	if err := m.fetcher.GetJSON(ctx, marketsURL, headers, &markets); err != nil {
		return nil, eris.Wrap(err, "token market data: markets")
	}

	var findings []Finding
	for _, mk := range markets {
		rank := ""
		if mk.MarketCapRank != nil {
			rank = fmt.Sprintf("rank #%d", *mk.MarketCapRank)
		}
		change := ""
		if mk.PriceChangePercentage24h != nil {
			change = "24h change " + formatPercent(*mk.PriceChangePercentage24h)
		}
		volume := ""
		if mk.TotalVolume > 0 {
			volume = "24h volume " + formatUSD(mk.TotalVolume)
		}

		findings = append(findings, Finding{
			Title:   fmt.Sprintf("%s (%s) market cap %s", mk.Name, strings.ToUpper(mk.Symbol), formatUSD(mk.MarketCap)),
			Snippet: joinParts("market cap "+formatUSD(mk.MarketCap), rank, "price "+formatUSD(mk.CurrentPrice), volume, change),
			URL:     "https://www.coingecko.com/en/coins/" + mk.ID,
		})
	}
	return findings, nil
}
