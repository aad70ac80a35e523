package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/compintel/internal/evidence"
	"github.com/ppiankov/compintel/internal/model"
)

// WebSearch queries the Jina search API for recent coverage of the idea
type WebSearch struct {
	fetcher    *Fetcher
	apiKey     string
	baseURL    string
	maxResults int
}

// NewWebSearch creates the web search adapter
func NewWebSearch(fetcher *Fetcher, cfg model.WebSearchConfig, maxResults int) *WebSearch {
	return &WebSearch{
		fetcher:    fetcher,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: maxResults,
	}
}

type jinaSearchResponse struct {
	Code int `json:"code"`
	Data []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Content     string `json:"content"`
		Description string `json:"description"`
	} `json:"data"`
}

func (w *WebSearch) Kind() model.ProviderKind { return model.ProviderWebSearch }

func (w *WebSearch) Fetch(ctx context.Context, q Query) ([]Finding, error) {
	if w.apiKey == "" || w.baseURL == "" {
		return nil, eris.Wrap(ErrNotConfigured, "web search: no api key")
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, nil
	}

	reqURL := w.baseURL + "/" + url.PathEscape(q.Text)
	headers := map[string]string{
		"Authorization":  "Bearer " + w.apiKey,
		"X-Respond-With": "no-content",
	}

	var resp jinaSearchResponse
	if err := w.fetcher.GetJSON(ctx, reqURL, headers, &resp); err != nil {
		// Jina answers 422 when nothing matched
		if IsStatus(err, http.StatusUnprocessableEntity) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "web search")
	}

	var findings []Finding
	for _, r := range resp.Data {
		snippet := r.Description
		if strings.TrimSpace(snippet) == "" {
			snippet = r.Content
		}
		f := Finding{
			Title:   evidence.PlainText(r.Title),
			Snippet: evidence.PlainText(snippet),
			URL:     r.URL,
		}
		if f.Title == "" && f.Snippet == "" {
			continue
		}
		findings = append(findings, f)
		if w.maxResults > 0 && len(findings) == w.maxResults {
			break
		}
	}
	return findings, nil
}
