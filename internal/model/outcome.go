package model

import "time"

// Status is the top-level result discriminator
type Status string

const (
	StatusOK           Status = "ok"
	StatusNotAvailable Status = "not_available"
)

// Reason codes for not_available outcomes
const (
	ReasonUnsupportedCategory = "unsupported_category"
	ReasonLLMNotConfigured    = "llm_not_configured"
	ReasonSynthesisTimeout    = "synthesis_timeout"
	ReasonSynthesisFailed     = "synthesis_failed"
	ReasonEmptyPayload        = "empty_llm_payload"
	ReasonInvalidPayload      = "invalid_llm_payload"
	ReasonInvalidSchema       = "invalid_schema_returned"
	ReasonInternal            = "internal_error"
)

// Outcome is the only shape callers of the engine ever see.
// Status ok carries Memo, EvidencePack and Provenance; not_available carries Reason.
type Outcome struct {
	Status       Status           `json:"status"`
	Reason       string           `json:"reason,omitempty"`
	Memo         *CompetitiveMemo `json:"memo,omitempty"`
	EvidencePack *EvidencePack    `json:"evidencePack,omitempty"`
	Provenance   *Provenance      `json:"provenance,omitempty"`
}

// Provenance records where a memo came from and how long it stays fresh
type Provenance struct {
	RequestID          string         `json:"requestId"`
	Category           string         `json:"category"`
	EvidenceCount      int            `json:"evidenceCount"`
	UnavailableSources []ProviderKind `json:"unavailableSources"`
	GeneratedAt        time.Time      `json:"generatedAt"`
	ValidUntil         time.Time      `json:"validUntil"`
}

// NotAvailable builds a failure outcome
func NotAvailable(reason string) *Outcome {
	return &Outcome{
		Status: StatusNotAvailable,
		Reason: reason,
	}
}

// IsOK returns true for successful outcomes
func (o *Outcome) IsOK() bool {
	return o != nil && o.Status == StatusOK
}

// IsStale reports whether the outcome is past its validity window
func (o *Outcome) IsStale(now time.Time) bool {
	if o == nil || o.Provenance == nil {
		return true
	}
	return now.After(o.Provenance.ValidUntil)
}
