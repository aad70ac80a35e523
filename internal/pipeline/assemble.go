package pipeline

import (
	"github.com/ppiankov/compintel/internal/model"
	"github.com/ppiankov/compintel/internal/router"
)

// assemble bundles a successful evaluation with its provenance
func (p *Pipeline) assemble(requestID string, route router.Route, m *model.CompetitiveMemo, claims []model.Claim, pack *model.EvidencePack) *model.Outcome {
	now := p.now().UTC()

	m.Claims = claims
	m.Timestamp = now

	return &model.Outcome{
		Status:       model.StatusOK,
		Memo:         m,
		EvidencePack: pack,
		Provenance: &model.Provenance{
			RequestID:          requestID,
			Category:           route.Category,
			EvidenceCount:      pack.Len(),
			UnavailableSources: pack.UnavailableSources,
			GeneratedAt:        now,
			ValidUntil:         now.Add(p.opts.Validity),
		},
	}
}
