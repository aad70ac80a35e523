package evidence

import (
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/compintel/internal/model"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestCollector_AddAssignsPerKindIDs(t *testing.T) {
	c := NewCollector(DefaultLimits(), fixedNow)

	assert.Equal(t, "tvl_1", c.Add(model.ProviderProtocolTVL, "Aave", "TVL $12B", ""))
	assert.Equal(t, "tvl_2", c.Add(model.ProviderProtocolTVL, "Compound", "TVL $2B", ""))
	assert.Equal(t, "web_1", c.Add(model.ProviderWebSearch, "Lending news", "", "https://example.com"))

	pack := c.Pack(nil)
	require.Equal(t, 3, pack.Len())
	assert.True(t, pack.Has("tvl_2"))
	assert.True(t, pack.Has("web_1"))
	assert.Equal(t, fixedNow(), pack.GeneratedAt)
}

func TestCollector_ReliabilityFromKind(t *testing.T) {
	c := NewCollector(DefaultLimits(), fixedNow)
	c.Add(model.ProviderOnChainLiquidity, "WETH/USDC", "liquidity $40M", "")
	c.Add(model.ProviderWebSearch, "Blog", "post", "")

	pack := c.Pack(nil)
	assert.Equal(t, model.ReliabilityHigh, pack.Evidence[0].ReliabilityTier)
	assert.Equal(t, model.ReliabilityMedium, pack.Evidence[1].ReliabilityTier)
}

func TestCollector_TruncatesAtInsertion(t *testing.T) {
	c := NewCollector(DefaultLimits(), fixedNow)
	c.Add(model.ProviderWebSearch, strings.Repeat("t", 500), strings.Repeat("é", 500), "")

	item := c.Pack(nil).Evidence[0]
	assert.LessOrEqual(t, utf8.RuneCountInString(item.Title), 120)
	assert.LessOrEqual(t, utf8.RuneCountInString(item.Snippet), 280)
	assert.True(t, strings.HasSuffix(item.Title, "..."))
	assert.True(t, utf8.ValidString(item.Snippet))
}

func TestCollector_CustomLimits(t *testing.T) {
	c := NewCollector(Limits{TitleMaxLen: 10, SnippetMaxLen: 20}, fixedNow)
	c.Add(model.ProviderWebSearch, "a very long title indeed", "short", "")

	item := c.Pack(nil).Evidence[0]
	assert.Equal(t, "a very...", item.Title)
	assert.Equal(t, "short", item.Snippet)
}

func TestCollector_SkipsEmptyFindings(t *testing.T) {
	c := NewCollector(DefaultLimits(), fixedNow)

	assert.Equal(t, "", c.Add(model.ProviderWebSearch, "  ", "\n\t", ""))
	assert.Equal(t, "web_1", c.Add(model.ProviderWebSearch, "real", "", ""))
	assert.Equal(t, 1, c.Len())
}

func TestCollector_PackIsFrozen(t *testing.T) {
	c := NewCollector(DefaultLimits(), fixedNow)
	c.Add(model.ProviderWebSearch, "one", "", "")

	pack := c.Pack([]model.ProviderKind{model.ProviderProtocolTVL})
	assert.Equal(t, "", c.Add(model.ProviderWebSearch, "two", "", ""))
	assert.Equal(t, 1, pack.Len())
	assert.Equal(t, []model.ProviderKind{model.ProviderProtocolTVL}, pack.UnavailableSources)
}

func TestCollector_ConcurrentAddsProduceUniqueIDs(t *testing.T) {
	c := NewCollector(DefaultLimits(), nil)

	var wg sync.WaitGroup
	ids := make(chan string, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- c.Add(model.ProviderWebSearch, "title", "snippet", "")
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, 200)
	assert.True(t, seen["web_200"])
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is longer than ten", 10, "this is..."},
		{"abcdef", 2, "ab"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.max), "Truncate(%q, %d)", tt.in, tt.max)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  already   plain\ntext ", "already plain text"},
		{"tags", "<p>Aave <b>v3</b> launches</p>", "Aave v3 launches"},
		{"script dropped", "<div>keep<script>alert('x')</script></div>", "keep"},
		{"entities", "fees &amp; yields", "fees & yields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}

func TestCollector_AddAtKeepsRetrievalTime(t *testing.T) {
	c := NewCollector(DefaultLimits(), fixedNow)
	fetched := fixedNow().Add(-2 * time.Second)

	c.AddAt(model.ProviderProtocolTVL, "Aave", "TVL $12B", "", fetched)
	c.AddAt(model.ProviderProtocolTVL, "Compound", "TVL $2B", "", time.Time{})

	pack := c.Pack(nil)
	assert.Equal(t, fetched, pack.Evidence[0].FetchedAt)
	assert.Equal(t, fixedNow(), pack.Evidence[1].FetchedAt, "zero time falls back to the collector clock")
	assert.Equal(t, fixedNow(), pack.GeneratedAt)
}
