// Package evidence builds the per-request evidence pack.
package evidence

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/compintel/internal/model"
)

// Limits bounds the text stored per evidence item
type Limits struct {
	TitleMaxLen   int
	SnippetMaxLen int
}

// DefaultLimits returns the stock truncation bounds
func DefaultLimits() Limits {
	return Limits{TitleMaxLen: 120, SnippetMaxLen: 280}
}

// Collector is the append-only builder used while adapters run.
// It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	limits   Limits
	now      func() time.Time
	items    []model.EvidenceItem
	counters map[model.ProviderKind]int
	frozen   bool
}

// NewCollector creates an empty collector. now may be nil.
func NewCollector(limits Limits, now func() time.Time) *Collector {
	defaults := DefaultLimits()
	if limits.TitleMaxLen <= 0 {
		limits.TitleMaxLen = defaults.TitleMaxLen
	}
	if limits.SnippetMaxLen <= 0 {
		limits.SnippetMaxLen = defaults.SnippetMaxLen
	}
	if now == nil {
		now = time.Now
	}
	return &Collector{
		limits:   limits,
		now:      now,
		counters: make(map[model.ProviderKind]int),
	}
}

// Add records one fact retrieved now and returns its id. Findings with
// neither a title nor a snippet, and any Add after Pack, are dropped and
// return "".
func (c *Collector) Add(kind model.ProviderKind, title, snippet, url string) string {
	return c.AddAt(kind, title, snippet, url, time.Time{})
}

// AddAt is Add for a fact retrieved at fetchedAt. A zero fetchedAt means now.
func (c *Collector) AddAt(kind model.ProviderKind, title, snippet, url string, fetchedAt time.Time) string {
	title = Truncate(CollapseSpace(title), c.limits.TitleMaxLen)
	snippet = Truncate(CollapseSpace(snippet), c.limits.SnippetMaxLen)
	if title == "" && snippet == "" {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return ""
	}

	if fetchedAt.IsZero() {
		fetchedAt = c.now()
	}

	c.counters[kind]++
	id := fmt.Sprintf("%s_%d", kind, c.counters[kind])

	c.items = append(c.items, model.EvidenceItem{
		ID:              id,
		ProviderKind:    kind,
		Title:           title,
		Snippet:         snippet,
		URL:             strings.TrimSpace(url),
		FetchedAt:       fetchedAt,
		ReliabilityTier: model.ReliabilityFor(kind),
	})

	return id
}

// Len returns the number of items collected so far
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Pack freezes the collector into an immutable evidence pack
func (c *Collector) Pack(unavailable []model.ProviderKind) *model.EvidencePack {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.frozen = true
	return model.NewEvidencePack(c.items, unavailable, c.now())
}

// CollapseSpace trims s and folds every whitespace run into one space
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most maxLen runes, ending in "..." when cut
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:maxLen-3]), isSpace) + "..."
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
