package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source is the provenance of evidence. Its credibility score is derived
// from its own evidence-outcome statistics, recomputed in batch rather than
// on every evidence write.
type Source struct {
	ID                      uuid.UUID `json:"id"`
	Name                    string    `json:"name,omitempty"`
	CredibilityScore        float64   `json:"credibility_score"`
	TotalEvidenceCount      int       `json:"total_evidence_count"`
	VerifiedEvidenceCount   int       `json:"verified_evidence_count"`
	ChallengedEvidenceCount int       `json:"challenged_evidence_count"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// SourceStats are the raw counts a credibility recompute starts from.
type SourceStats struct {
	TotalEvidence      int
	VerifiedEvidence   int
	ChallengedEvidence int
}
