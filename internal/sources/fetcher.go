package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/compintel/internal/model"
	"github.com/ppiankov/compintel/internal/util"
	"github.com/ppiankov/compintel/internal/worker"
)

// ErrBodyTooLarge is returned when a response exceeds the fetcher's cap
var ErrBodyTooLarge = eris.New("response body too large")

// StatusError is a non-2xx upstream response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Fetcher is the HTTP plumbing shared by all adapters
type Fetcher struct {
	httpClient *http.Client
	limiter    *worker.Limiter
	userAgent  string
	maxBytes   int64
}

// NewFetcher builds a proxy-aware fetcher. limiter may be nil.
func NewFetcher(cfg model.HTTPConfig, limiter *worker.Limiter) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 4_000_000
	}

	return &Fetcher{
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return eris.New("stopped after 3 redirects")
				}
				return nil
			},
		},
		limiter:   limiter,
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
	}
}

// NewFetcherWithClient wraps an existing client, mainly for tests
func NewFetcherWithClient(hc *http.Client, limiter *worker.Limiter) *Fetcher {
	return &Fetcher{httpClient: hc, limiter: limiter, maxBytes: 4_000_000}
}

// GetJSON performs a GET and decodes the JSON body into out.
// The request is bound to ctx so adapter timeouts cancel the transport.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	return f.GetJSONLimit(ctx, rawURL, headers, out, f.maxBytes)
}

// GetJSONLimit is GetJSON with a per-call body cap. A body longer than
// maxBytes fails with ErrBodyTooLarge instead of being cut short.
func (f *Fetcher) GetJSONLimit(ctx context.Context, rawURL string, headers map[string]string, out any, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = f.maxBytes
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return eris.Wrap(err, "read body")
	}
	tooLarge := int64(len(body)) > maxBytes

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return &StatusError{Code: resp.StatusCode, Body: snippet}
	}
	if tooLarge {
		return eris.Wrapf(ErrBodyTooLarge, "%s exceeds %d bytes", req.URL.Host, maxBytes)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

// IsStatus reports whether err is an upstream response with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
