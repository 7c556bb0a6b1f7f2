package domain

import (
	"time"

	"github.com/google/uuid"
)

type EvidenceKind string

const (
	EvidenceSupporting EvidenceKind = "supporting"
	EvidenceRefuting   EvidenceKind = "refuting"
)

func ValidEvidenceKind(k string) bool {
	switch EvidenceKind(k) {
	case EvidenceSupporting, EvidenceRefuting:
		return true
	}
	return false
}

type PeerReviewStatus string

const (
	PeerReviewNone     PeerReviewStatus = "none"
	PeerReviewAccepted PeerReviewStatus = "accepted"
	PeerReviewDisputed PeerReviewStatus = "disputed"
	PeerReviewRejected PeerReviewStatus = "rejected"
)

func ValidPeerReviewStatus(s string) bool {
	switch PeerReviewStatus(s) {
	case PeerReviewNone, PeerReviewAccepted, PeerReviewDisputed, PeerReviewRejected:
		return true
	}
	return false
}

// Multiplier returns the weight adjustment for a peer-review outcome.
func (s PeerReviewStatus) Multiplier() float64 {
	switch s {
	case PeerReviewAccepted:
		return 1.2
	case PeerReviewDisputed:
		return 0.8
	case PeerReviewRejected:
		return 0.5
	default:
		return 1.0
	}
}

// Evidence is one item attached to exactly one claim, either supporting or
// refuting it. Evidence is never destroyed; soft deletion keeps the audit
// trail intact while removing the item from aggregation.
type Evidence struct {
	ID                uuid.UUID        `json:"id"`
	TargetClaimID     uuid.UUID        `json:"target_claim_id"`
	Kind              EvidenceKind     `json:"kind"`
	BaseWeight        float64          `json:"base_weight"`
	Confidence        float64          `json:"confidence"`
	TemporalRelevance float64          `json:"temporal_relevance"`
	SourceID          uuid.UUID        `json:"source_id"`
	PeerReviewStatus  PeerReviewStatus `json:"peer_review_status"`
	Verified          bool             `json:"verified"`
	DeletedAt         *time.Time       `json:"deleted_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}
