package domain

import (
	"context"

	"github.com/google/uuid"
)

type ClaimStore interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	// ApplyScore persists newScore and the matching history entry in a
	// single transaction, holding a row lock on the claim for the duration.
	// When |newScore - currentScore| <= ScoreChangeEpsilon nothing is
	// written and changed is false. Locked claims are refused.
	ApplyScore(ctx context.Context, claimID uuid.UUID, newScore float64, reason HistoryReason, trigType EntityType, trigID uuid.UUID) (oldScore float64, changed bool, err error)
	// PromoteToLocked pins the claim at LockedScore and appends the
	// promotion history entry, both in one transaction.
	PromoteToLocked(ctx context.Context, claimID, approverID uuid.UUID) (oldScore float64, err error)
	// AddDependency records that claimID cites evidenceClaimID as evidence.
	// Direct two-claim cycles are rejected at write time.
	AddDependency(ctx context.Context, claimID, evidenceClaimID uuid.UUID) error
	// ListDependents returns the claims that cite claimID as evidence.
	ListDependents(ctx context.Context, claimID uuid.UUID) ([]uuid.UUID, error)
}

type EvidenceStore interface {
	Create(ctx context.Context, e *Evidence) error
	GetByID(ctx context.Context, id uuid.UUID) (*Evidence, error)
	Update(ctx context.Context, e *Evidence) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// ListVerifiedByClaim returns verified, non-deleted evidence for a claim.
	ListVerifiedByClaim(ctx context.Context, claimID uuid.UUID) ([]Evidence, error)
}

type SourceStore interface {
	Create(ctx context.Context, s *Source) error
	GetByID(ctx context.Context, id uuid.UUID) (*Source, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	// Stats recounts the source's evidence outcomes from the evidence table.
	Stats(ctx context.Context, sourceID uuid.UUID) (*SourceStats, error)
	// ConsensusAlignment measures how often the source's verified evidence
	// agrees with the current consensus direction of the claims it targets.
	ConsensusAlignment(ctx context.Context, sourceID uuid.UUID) (float64, error)
	UpdateCredibility(ctx context.Context, sourceID uuid.UUID, stats *SourceStats, credibility float64) error
}

type ChallengeStore interface {
	Create(ctx context.Context, c *Challenge) error
	GetByID(ctx context.Context, id uuid.UUID) (*Challenge, error)
	CountOpenByClaim(ctx context.Context, claimID uuid.UUID) (int, error)
	Resolve(ctx context.Context, id uuid.UUID, resolution ChallengeResolution, impact float64) error
	// UpsertVote inserts or replaces the (challenge, user) vote.
	UpsertVote(ctx context.Context, v *Vote) error
	Tally(ctx context.Context, challengeID uuid.UUID) (*Tally, error)
}

type ReputationStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserReputation, error)
	// ReserveChallengeSlot atomically re-checks the eligibility gates and
	// bumps the daily and lifetime submitted counters in one statement.
	// A user that is banned, at the daily limit, below minScore, or
	// missing reserves nothing and gets ErrNotFound.
	ReserveChallengeSlot(ctx context.Context, userID uuid.UUID, minScore int) error
	// ApplyResolutionOutcome credits or debits the challenger once their
	// challenge resolves. Accepted and partially accepted both count as
	// accepted here.
	ApplyResolutionOutcome(ctx context.Context, userID uuid.UUID, accepted bool) error
	ResetDailyCounters(ctx context.Context) (int64, error)
}

type HistoryStore interface {
	Append(ctx context.Context, e *ScoreHistoryEntry) error
	GetByClaim(ctx context.Context, claimID uuid.UUID) ([]ScoreHistoryEntry, error)
}
