package model

import (
	"strings"
	"time"
)

// CompetitiveMemo is the structured competitive assessment of one idea
type CompetitiveMemo struct {
	CategoryLabel     string             `json:"categoryLabel"`
	CrowdednessLevel  string             `json:"crowdednessLevel"`
	Summary           string             `json:"summary"`
	ReferenceProjects []ReferenceProject `json:"referenceProjects"`
	Difficulty        Verdict            `json:"difficulty"`
	Differentiation   Verdict            `json:"differentiation"`
	NoiseVsSignal     string             `json:"noiseVsSignal"`
	EvaluatorNotes    string             `json:"evaluatorNotes"`
	Claims            []Claim            `json:"claims"`
	Timestamp         time.Time          `json:"timestamp"`
}

// Verdict pairs a short verdict with its explanation
type Verdict struct {
	Verdict     string `json:"verdict"`
	Explanation string `json:"explanation"`
}

// ReferenceProject is a competitor named in the memo
type ReferenceProject struct {
	Name     string          `json:"name"`
	Platform string          `json:"platform"`
	Note     string          `json:"note"`
	Metrics  *ProjectMetrics `json:"metrics,omitempty"`
}

// ProjectMetrics holds display strings, not numbers
type ProjectMetrics struct {
	MarketCap  string `json:"marketCap,omitempty"`
	TVL        string `json:"tvl,omitempty"`
	DailyUsers string `json:"dailyUsers,omitempty"`
	Funding    string `json:"funding,omitempty"`
	Revenue    string `json:"revenue,omitempty"`
}

// MetricField is a labelled metric value
type MetricField struct {
	Label string
	Value string
}

// Fields returns the metric values in display order
func (m *ProjectMetrics) Fields() []MetricField {
	if m == nil {
		return nil
	}
	return []MetricField{
		{Label: "market cap", Value: m.MarketCap},
		{Label: "TVL", Value: m.TVL},
		{Label: "daily users", Value: m.DailyUsers},
		{Label: "funding", Value: m.Funding},
		{Label: "revenue", Value: m.Revenue},
	}
}

// RealFields returns only the metric fields holding a real value
func (m *ProjectMetrics) RealFields() []MetricField {
	var real []MetricField
	for _, f := range m.Fields() {
		if IsRealMetricValue(f.Value) {
			real = append(real, f)
		}
	}
	return real
}

// HasRealMetric reports whether at least one metric carries a real value
func (p ReferenceProject) HasRealMetric() bool {
	return len(p.Metrics.RealFields()) > 0
}

// IsRealMetricValue rejects the sentinel empty values models emit
func IsRealMetricValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "-", "n/a", "unknown":
		return false
	}
	return true
}
