package domain

import (
	"time"

	"github.com/google/uuid"
)

// Claim is a scored unit in the knowledge graph: a node or a relationship.
// Locked claims carry a permanent score of 1.0 and are immune to recompute.
type Claim struct {
	ID           uuid.UUID `json:"id"`
	CurrentScore float64   `json:"current_score"`
	Locked       bool      `json:"locked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ClaimScore is the externally visible score breakdown for a claim.
type ClaimScore struct {
	ClaimID         uuid.UUID `json:"claim_id"`
	Score           float64   `json:"score"`
	Consensus       float64   `json:"consensus"`
	ChallengeImpact float64   `json:"challenge_impact"`
	OpenChallenges  int       `json:"open_challenges"`
	Locked          bool      `json:"locked"`
}

// ScoreChangeEpsilon is the minimum absolute score delta that is persisted.
// Smaller movements are treated as rounding noise: no update, no history entry.
const ScoreChangeEpsilon = 0.01

// LockedScore is the score a claim is pinned to once promoted to locked.
const LockedScore = 1.0
