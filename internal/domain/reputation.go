package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReputationTier string

const (
	TierNovice      ReputationTier = "novice"
	TierContributor ReputationTier = "contributor"
	TierTrusted     ReputationTier = "trusted"
	TierExpert      ReputationTier = "expert"
	TierAuthority   ReputationTier = "authority"
)

// ComputeTier buckets a cumulative reputation score into a tier.
func ComputeTier(score int) ReputationTier {
	switch {
	case score >= 10000:
		return TierAuthority
	case score >= 2000:
		return TierExpert
	case score >= 500:
		return TierTrusted
	case score >= 100:
		return TierContributor
	default:
		return TierNovice
	}
}

// VoteWeight is the influence a voter in this tier carries on a challenge.
func (t ReputationTier) VoteWeight() float64 {
	switch t {
	case TierAuthority:
		return 5.0
	case TierExpert:
		return 3.0
	case TierTrusted:
		return 2.0
	case TierContributor:
		return 1.5
	default:
		return 1.0
	}
}

func AllTiers() []ReputationTier {
	return []ReputationTier{TierNovice, TierContributor, TierTrusted, TierExpert, TierAuthority}
}

// UserReputation is one user's standing in the platform. The tier is a pure
// function of ReputationScore and is recomputed on read, never stored drift.
type UserReputation struct {
	UserID              uuid.UUID `json:"user_id"`
	ReputationScore     int       `json:"reputation_score"`
	ChallengesToday     int       `json:"challenges_today"`
	DailyLimit          int       `json:"daily_limit"`
	Banned              bool      `json:"banned"`
	ChallengesSubmitted int       `json:"challenges_submitted"`
	ChallengesAccepted  int       `json:"challenges_accepted"`
	ChallengesRejected  int       `json:"challenges_rejected"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (u *UserReputation) Tier() ReputationTier {
	return ComputeTier(u.ReputationScore)
}

func (u *UserReputation) VoteWeight() float64 {
	return u.Tier().VoteWeight()
}

// AccuracyRate is the share of this user's challenges that were accepted.
func (u *UserReputation) AccuracyRate() float64 {
	if u.ChallengesSubmitted == 0 {
		return 0
	}
	return float64(u.ChallengesAccepted) / float64(u.ChallengesSubmitted)
}
