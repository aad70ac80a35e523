// Package grounding reconciles model-asserted claims with the evidence
// actually fetched for the request.
//
// Corroboration is computed from evidence id membership only. Nothing the
// model says about support is trusted.
package grounding

import (
	"fmt"
	"strings"

	"github.com/ppiankov/compintel/internal/evidence"
	"github.com/ppiankov/compintel/internal/memo"
	"github.com/ppiankov/compintel/internal/model"
)

// FallbackClaimText is emitted when no claim survives normalization
const FallbackClaimText = "Competitive positioning is uncertain due to limited grounded evidence."

// Options bounds the normalized claim list
type Options struct {
	MaxClaims      int
	MaxBackfillIDs int
	MaxTextLen     int
}

// DefaultOptions returns the standard bounds
func DefaultOptions() Options {
	return Options{
		MaxClaims:      12,
		MaxBackfillIDs: 3,
		MaxTextLen:     220,
	}
}

// Stats describes what normalization did to the model output
type Stats struct {
	RawClaims    int // Claims received from the model
	SkippedEmpty int // Raw claims without text
	DroppedIDs   int // Cited ids not present in the pack
	Backfilled   int // Claims synthesized from reference project metrics
	Fallback     bool
	Duplicates   int
	Truncated    int // Claims cut by MaxClaims
}

// Normalizer turns raw claims into the final bounded claim list
type Normalizer struct {
	opts    Options
	matcher ProjectMatcher
}

// NewNormalizer creates a normalizer. Zero option values take defaults and
// a nil matcher means SubstringMatcher.
func NewNormalizer(opts Options, matcher ProjectMatcher) *Normalizer {
	def := DefaultOptions()
	if opts.MaxClaims <= 0 {
		opts.MaxClaims = def.MaxClaims
	}
	if opts.MaxBackfillIDs <= 0 {
		opts.MaxBackfillIDs = def.MaxBackfillIDs
	}
	if opts.MaxTextLen <= 0 {
		opts.MaxTextLen = def.MaxTextLen
	}
	if matcher == nil {
		matcher = SubstringMatcher{}
	}
	return &Normalizer{opts: opts, matcher: matcher}
}

// Normalize filters cited ids against the pack, backfills claims for
// reference projects with real metrics, guarantees a non-empty result,
// de-duplicates by normalized text and bounds the list.
func (n *Normalizer) Normalize(raw []memo.RawClaim, pack *model.EvidencePack, projects []model.ReferenceProject) ([]model.Claim, Stats) {
	stats := Stats{RawClaims: len(raw)}
	claims := make([]model.Claim, 0, len(raw)+len(projects)+1)

	// 1. filter and rewrite
	for _, rc := range raw {
		text := n.text(rc.Text)
		if text == "" {
			stats.SkippedEmpty++
			continue
		}
		ids, dropped := filterIDs(rc.EvidenceIDs, pack)
		stats.DroppedIDs += dropped
		claims = append(claims, newClaim(text, claimType(rc.ClaimType), ids))
	}

	// 2. backfill reference projects that carry metrics but no claim
	for _, project := range projects {
		if !project.HasRealMetric() {
			continue
		}
		if n.matcher.IsProjectMentioned(project, claims) {
			continue
		}
		ids := n.findEvidence(project.Name, pack)
		ct := model.ClaimTypeInference
		if len(ids) > 0 {
			ct = model.ClaimTypeFact
		}
		claims = append(claims, newClaim(n.text(metricsSummary(project)), ct, ids))
		stats.Backfilled++
	}

	// 3. never empty
	if len(claims) == 0 {
		claims = append(claims, newClaim(FallbackClaimText, model.ClaimTypeInference, nil))
		stats.Fallback = true
	}

	// 4. dedupe on normalized text, first occurrence wins
	seen := make(map[string]bool, len(claims))
	unique := claims[:0]
	for _, c := range claims {
		key := strings.ToLower(strings.TrimSpace(c.Text))
		if seen[key] {
			stats.Duplicates++
			continue
		}
		seen[key] = true
		unique = append(unique, c)
	}

	// 5. bound
	if len(unique) > n.opts.MaxClaims {
		stats.Truncated = len(unique) - n.opts.MaxClaims
		unique = unique[:n.opts.MaxClaims]
	}

	return unique, stats
}

func (n *Normalizer) text(s string) string {
	return evidence.Truncate(evidence.CollapseSpace(s), n.opts.MaxTextLen)
}

// findEvidence returns up to MaxBackfillIDs ids whose title or snippet
// contains name, in pack order
func (n *Normalizer) findEvidence(name string, pack *model.EvidencePack) []string {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" || pack == nil {
		return nil
	}
	var ids []string
	for _, item := range pack.Evidence {
		if strings.Contains(strings.ToLower(item.Title), needle) ||
			strings.Contains(strings.ToLower(item.Snippet), needle) {
			ids = append(ids, item.ID)
			if len(ids) >= n.opts.MaxBackfillIDs {
				break
			}
		}
	}
	return ids
}

// filterIDs keeps ids present in the pack, once each, in cited order
func filterIDs(cited []string, pack *model.EvidencePack) ([]string, int) {
	ids := make([]string, 0, len(cited))
	seen := make(map[string]bool, len(cited))
	dropped := 0
	for _, id := range cited {
		id = strings.TrimSpace(id)
		if seen[id] {
			continue
		}
		seen[id] = true
		if !pack.Has(id) {
			dropped++
			continue
		}
		ids = append(ids, id)
	}
	return ids, dropped
}

func claimType(s string) model.ClaimType {
	if strings.EqualFold(strings.TrimSpace(s), string(model.ClaimTypeFact)) {
		return model.ClaimTypeFact
	}
	return model.ClaimTypeInference
}

func newClaim(text string, ct model.ClaimType, ids []string) model.Claim {
	if ids == nil {
		ids = []string{}
	}
	return model.Claim{
		Text:        text,
		ClaimType:   ct,
		EvidenceIDs: ids,
		Support:     model.SupportFor(ids),
	}
}

func metricsSummary(project model.ReferenceProject) string {
	parts := make([]string, 0, 5)
	for _, f := range project.Metrics.RealFields() {
		parts = append(parts, fmt.Sprintf("%s %s", f.Label, strings.TrimSpace(f.Value)))
	}

	subject := project.Name
	if project.Platform != "" {
		subject = fmt.Sprintf("%s (%s)", project.Name, project.Platform)
	}
	return fmt.Sprintf("%s reports %s.", subject, strings.Join(parts, ", "))
}
