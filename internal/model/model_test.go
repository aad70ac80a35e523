package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestReliabilityFor(t *testing.T) {
	tests := []struct {
		kind ProviderKind
		want ReliabilityTier
	}{
		{ProviderProtocolTVL, ReliabilityHigh},
		{ProviderOnChainLiquidity, ReliabilityHigh},
		{ProviderTokenMarketData, ReliabilityHigh},
		{ProviderTokenSecurity, ReliabilityHigh},
		{ProviderWebSearch, ReliabilityMedium},
		{ProviderSystem, ReliabilityLow},
		{ProviderKind("bogus"), ReliabilityLow},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := ReliabilityFor(tt.kind); got != tt.want {
				t.Errorf("ReliabilityFor(%s) = %s, want %s", tt.kind, got, tt.want)
			}
		})
	}
}

func TestNewEvidencePack_UnavailableIsSet(t *testing.T) {
	pack := NewEvidencePack(nil, []ProviderKind{ProviderWebSearch, ProviderProtocolTVL, ProviderWebSearch}, time.Now())

	if len(pack.UnavailableSources) != 2 {
		t.Fatalf("Expected 2 unavailable sources, got %v", pack.UnavailableSources)
	}
	if pack.UnavailableSources[0] != ProviderProtocolTVL || pack.UnavailableSources[1] != ProviderWebSearch {
		t.Errorf("Expected sorted set [tvl web], got %v", pack.UnavailableSources)
	}
	if !pack.IsUnavailable(ProviderWebSearch) {
		t.Error("Expected web to be unavailable")
	}
}

func TestEvidencePack_Has(t *testing.T) {
	items := []EvidenceItem{{ID: "tvl_1"}, {ID: "web_1"}}
	pack := NewEvidencePack(items, nil, time.Now())

	// Mutating the input must not affect the frozen pack
	items[0].ID = "changed"

	if !pack.Has("tvl_1") || !pack.Has("web_1") {
		t.Error("Expected pack to contain tvl_1 and web_1")
	}
	if pack.Has("tvl_9") {
		t.Error("Expected tvl_9 to be absent")
	}
	if pack.Len() != 2 {
		t.Errorf("Expected 2 items, got %d", pack.Len())
	}
}

func TestEvidencePack_HasAfterJSONRoundTrip(t *testing.T) {
	pack := NewEvidencePack([]EvidenceItem{{ID: "web_1"}}, nil, time.Now())
	data, err := json.Marshal(pack)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded EvidencePack
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Has("web_1") {
		t.Error("Expected decoded pack to resolve web_1 without an index")
	}
}

func TestEvidencePack_NilSafe(t *testing.T) {
	var pack *EvidencePack
	if pack.Has("x") || pack.Len() != 0 || pack.IsUnavailable(ProviderWebSearch) {
		t.Error("Expected nil pack to behave as empty")
	}
}

func TestReferenceProject_HasRealMetric(t *testing.T) {
	tests := []struct {
		name    string
		project ReferenceProject
		want    bool
	}{
		{"no metrics", ReferenceProject{Name: "A"}, false},
		{"all sentinels", ReferenceProject{Name: "A", Metrics: &ProjectMetrics{MarketCap: "N/A", TVL: "-", DailyUsers: "unknown", Funding: " "}}, false},
		{"sentinel case-insensitive", ReferenceProject{Name: "A", Metrics: &ProjectMetrics{Revenue: "Unknown"}}, false},
		{"real tvl", ReferenceProject{Name: "A", Metrics: &ProjectMetrics{TVL: "$1.2B"}}, true},
		{"real funding among sentinels", ReferenceProject{Name: "A", Metrics: &ProjectMetrics{TVL: "N/A", Funding: "$4M seed"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.project.HasRealMetric(); got != tt.want {
				t.Errorf("HasRealMetric() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSupportFor(t *testing.T) {
	if SupportFor(nil) != SupportUncorroborated {
		t.Error("Expected nil ids to be uncorroborated")
	}
	if SupportFor([]string{"web_1"}) != SupportCorroborated {
		t.Error("Expected non-empty ids to be corroborated")
	}
}

func TestOutcome_IsStale(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	outcome := &Outcome{
		Status:     StatusOK,
		Provenance: &Provenance{ValidUntil: now.Add(72 * time.Hour)},
	}

	if outcome.IsStale(now) {
		t.Error("Expected fresh outcome")
	}
	if !outcome.IsStale(now.Add(73 * time.Hour)) {
		t.Error("Expected stale outcome after validity window")
	}
	if !NotAvailable("x").IsStale(now) {
		t.Error("Expected not_available outcome without provenance to be stale")
	}
}

func TestEvaluationRequest_Idea(t *testing.T) {
	req := EvaluationRequest{
		Description:   "desc",
		Scope:         "scope",
		SuccessMetric: "metric",
		TargetMetric:  "target",
		Category:      "agent-software",
	}
	idea := req.Idea()
	if idea.Description != "desc" || idea.Scope != "scope" || idea.SuccessMetric != "metric" || idea.TargetMetric != "target" {
		t.Errorf("Unexpected idea: %+v", idea)
	}
}
