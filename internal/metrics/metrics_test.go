package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/compintel/internal/model"
)

func TestRecordOutcome(t *testing.T) {
	c := NewCollector("test")

	c.RecordOutcome("narrative-asset", &model.Outcome{Status: model.StatusOK}, time.Second)
	c.RecordOutcome("bogus", model.NotAvailable("unsupported_category:bogus"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Outcomes.WithLabelValues("narrative-asset", "ok", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Outcomes.WithLabelValues("bogus", "not_available", "unsupported_category")))
}

func TestRecordAdapterAndClaims(t *testing.T) {
	c := NewCollector("test")

	c.RecordAdapter(model.ProviderProtocolTVL, true, 3, 10*time.Millisecond)
	c.RecordAdapter(model.ProviderWebSearch, false, 0, time.Millisecond)
	c.RecordClaims([]model.Claim{
		{Support: model.SupportCorroborated},
		{Support: model.SupportUncorroborated},
		{Support: model.SupportUncorroborated},
	}, 2)
	c.RecordSynthesis("mock", errors.New("boom"), time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.AdapterFetches.WithLabelValues("tvl", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AdapterFetches.WithLabelValues("web", "unavailable")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.EvidenceItems.WithLabelValues("tvl")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Claims.WithLabelValues("uncorroborated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.DroppedIDs))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordOutcome("x", &model.Outcome{}, time.Second)
	c.RecordAdapter(model.ProviderWebSearch, true, 1, time.Second)
	c.RecordSynthesis("x", nil, time.Second)
	c.RecordClaims(nil, 1)
	c.RecordHTTP("GET", "/health", 200, time.Second)
	assert.Nil(t, c.Registry())
}

func TestHandler(t *testing.T) {
	c := NewCollector("compintel")
	c.RecordHTTP(http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `compintel_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestReasonCode(t *testing.T) {
	assert.Equal(t, "unsupported_category", ReasonCode("unsupported_category:foo"))
	assert.Equal(t, "synthesis_failed", ReasonCode("synthesis_failed: dial tcp: refused"))
	assert.Equal(t, "invalid_llm_payload", ReasonCode("invalid_llm_payload"))
	assert.Equal(t, "", ReasonCode(""))
}
