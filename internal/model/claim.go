package model

// Claim is one assertion in a competitive memo
type Claim struct {
	Text        string    `json:"text"`        // At most 220 characters
	ClaimType   ClaimType `json:"claimType"`   // fact or inference
	EvidenceIDs []string  `json:"evidenceIds"` // Only ids present in the evidence pack
	Support     Support   `json:"support"`     // Derived from EvidenceIDs, never from model output
}

// ClaimType categorizes the nature of the claim
type ClaimType string

const (
	ClaimTypeFact      ClaimType = "fact"      // Cites fetched evidence
	ClaimTypeInference ClaimType = "inference" // Reasoned, no citation required
)

// Support records whether a claim is backed by fetched evidence
type Support string

const (
	SupportCorroborated   Support = "corroborated"
	SupportUncorroborated Support = "uncorroborated"
)

// SupportFor derives support from a filtered id set
func SupportFor(evidenceIDs []string) Support {
	if len(evidenceIDs) > 0 {
		return SupportCorroborated
	}
	return SupportUncorroborated
}

// IsCorroborated returns true when the claim cites at least one evidence id
func (c Claim) IsCorroborated() bool {
	return c.Support == SupportCorroborated
}
