package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChallengeStatus string

const (
	ChallengeOpen     ChallengeStatus = "open"
	ChallengeResolved ChallengeStatus = "resolved"
)

type ChallengeResolution string

const (
	ResolutionAccepted          ChallengeResolution = "accepted"
	ResolutionPartiallyAccepted ChallengeResolution = "partially_accepted"
	ResolutionRejected          ChallengeResolution = "rejected"
)

type ChallengeType string

const (
	ChallengeFactual  ChallengeType = "factual"
	ChallengeSourcing ChallengeType = "sourcing"
	ChallengeScope    ChallengeType = "scope"
)

func ValidChallengeType(t string) bool {
	switch ChallengeType(t) {
	case ChallengeFactual, ChallengeSourcing, ChallengeScope:
		return true
	}
	return false
}

// MinReputationRequired is the reputation floor for opening a dispute of
// this type. Sourcing disputes demand the most standing since they
// implicate a source across every claim it backs.
func (t ChallengeType) MinReputationRequired() int {
	switch t {
	case ChallengeSourcing:
		return 250
	case ChallengeFactual:
		return 100
	default:
		return 50
	}
}

// Challenge is a formal dispute against a claim. Lifecycle is strictly
// open -> resolved; resolution and veracity impact are fixed permanently at
// resolve time and a resolved challenge is never reopened.
type Challenge struct {
	ID                  uuid.UUID            `json:"id"`
	TargetClaimID       uuid.UUID            `json:"target_claim_id"`
	ChallengerID        uuid.UUID            `json:"challenger_id"`
	Type                ChallengeType        `json:"type"`
	Status              ChallengeStatus      `json:"status"`
	Resolution          *ChallengeResolution `json:"resolution,omitempty"`
	AcceptanceThreshold float64              `json:"acceptance_threshold"`
	MaxImpact           float64              `json:"max_impact"`
	VeracityImpact      float64              `json:"veracity_impact"`
	VotingDeadline      time.Time            `json:"voting_deadline"`
	ResolvedAt          *time.Time           `json:"resolved_at,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
}

type VoteValue string

const (
	VoteSupport VoteValue = "support"
	VoteReject  VoteValue = "reject"
	VoteAbstain VoteValue = "abstain"
)

func ValidVoteValue(v string) bool {
	switch VoteValue(v) {
	case VoteSupport, VoteReject, VoteAbstain:
		return true
	}
	return false
}

// Vote is one user's position on a challenge. A user holds at most one vote
// per challenge; casting again replaces the prior vote. The weight is
// snapshotted from the voter's reputation tier at cast time.
type Vote struct {
	ChallengeID uuid.UUID `json:"challenge_id"`
	UserID      uuid.UUID `json:"user_id"`
	Value       VoteValue `json:"value"`
	Weight      float64   `json:"weight"`
	Reasoning   string    `json:"reasoning,omitempty"`
	CastAt      time.Time `json:"cast_at"`
}

// Tally is the weighted outcome of a challenge's votes so far. Abstentions
// count toward VoteCount but not toward TotalWeight.
type Tally struct {
	ChallengeID   uuid.UUID `json:"challenge_id"`
	SupportWeight float64   `json:"support_weight"`
	TotalWeight   float64   `json:"total_weight"`
	SupportPct    float64   `json:"support_pct"`
	VoteCount     int       `json:"vote_count"`
}
