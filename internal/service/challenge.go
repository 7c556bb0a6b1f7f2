package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knograph/veracity/internal/domain"
	"github.com/knograph/veracity/internal/metrics"
	"github.com/knograph/veracity/internal/store"
)

const (
	DefaultAcceptanceThreshold = 0.6
	DefaultMaxImpact           = 0.3
	DefaultVotingPeriod        = 72 * time.Hour
)

// ChallengeService manages the formal dispute lifecycle: open, accumulate
// reputation-weighted votes, resolve exactly once.
type ChallengeService struct {
	challengeStore domain.ChallengeStore
	claimStore     domain.ClaimStore
	reputation     *ReputationService
	veracity       *VeracityService
	logger         *zap.Logger
}

func NewChallengeService(chs domain.ChallengeStore, cs domain.ClaimStore, rep *ReputationService, ver *VeracityService, logger *zap.Logger) *ChallengeService {
	return &ChallengeService{
		challengeStore: chs,
		claimStore:     cs,
		reputation:     rep,
		veracity:       ver,
		logger:         logger,
	}
}

// Create opens a dispute against a claim. Eligibility is enforced by the
// atomic slot reservation: a banned, rate-limited, or under-reputed
// challenger leaves no challenge row behind.
func (s *ChallengeService) Create(ctx context.Context, c *domain.Challenge) error {
	if !domain.ValidChallengeType(string(c.Type)) {
		return ErrInvalidChallengeType
	}
	if c.AcceptanceThreshold == 0 {
		c.AcceptanceThreshold = DefaultAcceptanceThreshold
	}
	if c.AcceptanceThreshold < 0.5 || c.AcceptanceThreshold > 1.0 {
		return ErrInvalidThreshold
	}
	if c.MaxImpact == 0 {
		c.MaxImpact = DefaultMaxImpact
	}
	if c.VotingDeadline.IsZero() {
		c.VotingDeadline = time.Now().Add(DefaultVotingPeriod)
	}

	claim, err := s.claimStore.GetByID(ctx, c.TargetClaimID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClaimNotFound
		}
		return err
	}
	if claim.Locked {
		return ErrAlreadyLocked
	}

	// Reserving the slot runs the gates and the counter bump as one
	// conditional write, ahead of the insert: a failed reserve leaves no
	// challenge row, and a failed insert never reports success with an
	// uncounted challenge.
	if err := s.reputation.ReserveChallengeSlot(ctx, c.ChallengerID, c.Type); err != nil {
		return err
	}

	if err := s.challengeStore.Create(ctx, c); err != nil {
		return err
	}

	s.logger.Info("challenge opened",
		zap.String("challenge_id", c.ID.String()),
		zap.String("claim_id", c.TargetClaimID.String()),
		zap.String("type", string(c.Type)))

	if _, err := s.veracity.Recompute(ctx, c.TargetClaimID, domain.ReasonChallengeOpened, domain.EntityChallenge, c.ID); err != nil {
		s.logger.Warn("recompute after challenge open failed",
			zap.String("claim_id", c.TargetClaimID.String()),
			zap.Error(err))
	}
	return nil
}

func (s *ChallengeService) Get(ctx context.Context, id uuid.UUID) (*domain.Challenge, error) {
	c, err := s.challengeStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return c, nil
}

// CastVote upserts the user's position on an open challenge. The vote
// weight is snapshotted from the voter's current reputation tier; changing
// tier later does not retroactively reweight the vote.
func (s *ChallengeService) CastVote(ctx context.Context, challengeID, userID uuid.UUID, value string, reasoning string) (*domain.Tally, error) {
	if !domain.ValidVoteValue(value) {
		return nil, ErrInvalidVote
	}

	c, err := s.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.ChallengeResolved {
		return nil, ErrInvalidVote
	}

	voter, err := s.reputation.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if voter.Banned {
		return nil, ErrBanned
	}

	vote := &domain.Vote{
		ChallengeID: challengeID,
		UserID:      userID,
		Value:       domain.VoteValue(value),
		Weight:      voter.VoteWeight(),
		Reasoning:   reasoning,
	}
	if err := s.challengeStore.UpsertVote(ctx, vote); err != nil {
		return nil, err
	}

	s.logger.Debug("vote cast",
		zap.String("challenge_id", challengeID.String()),
		zap.String("user_id", userID.String()),
		zap.String("value", value),
		zap.Float64("weight", vote.Weight))

	return s.challengeStore.Tally(ctx, challengeID)
}

// Tally returns the current weighted standing of a challenge.
func (s *ChallengeService) Tally(ctx context.Context, challengeID uuid.UUID) (*domain.Tally, error) {
	if _, err := s.Get(ctx, challengeID); err != nil {
		return nil, err
	}
	return s.challengeStore.Tally(ctx, challengeID)
}

// Resolve closes the voting period and fixes the outcome permanently.
// Calling it on an already-resolved challenge is a no-op returning the
// recorded state. Before the deadline a forcing resolver is required.
func (s *ChallengeService) Resolve(ctx context.Context, challengeID uuid.UUID, resolverID *uuid.UUID) (*domain.Challenge, error) {
	c, err := s.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.ChallengeResolved {
		return c, nil
	}
	if resolverID == nil && time.Now().Before(c.VotingDeadline) {
		return nil, ErrVotingOpen
	}

	tally, err := s.challengeStore.Tally(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	resolution, impact := resolveOutcome(tally.SupportPct, c.AcceptanceThreshold, c.MaxImpact)

	if err := s.challengeStore.Resolve(ctx, challengeID, resolution, impact); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost the race to another resolver; return what they decided.
			return s.Get(ctx, challengeID)
		}
		return nil, err
	}
	metrics.ChallengeResolutionsTotal.WithLabelValues(string(resolution)).Inc()

	if err := s.reputation.ApplyResolutionOutcome(ctx, c.ChallengerID, resolution); err != nil {
		s.logger.Warn("failed to apply resolution outcome to challenger",
			zap.String("user_id", c.ChallengerID.String()),
			zap.Error(err))
	}

	s.logger.Info("challenge resolved",
		zap.String("challenge_id", challengeID.String()),
		zap.String("resolution", string(resolution)),
		zap.Float64("support_pct", tally.SupportPct),
		zap.Float64("veracity_impact", impact))

	if _, err := s.veracity.Recompute(ctx, c.TargetClaimID, domain.ReasonChallengeResolved, domain.EntityChallenge, challengeID); err != nil {
		s.logger.Warn("recompute after challenge resolution failed",
			zap.String("claim_id", c.TargetClaimID.String()),
			zap.Error(err))
	}

	return s.Get(ctx, challengeID)
}

// resolveOutcome maps a weighted support percentage to the challenge
// resolution and its permanent veracity impact. Outcomes are asymmetric: a
// rejected challenge carries no impact at all.
func resolveOutcome(supportPct, threshold, maxImpact float64) (domain.ChallengeResolution, float64) {
	switch {
	case supportPct >= threshold:
		return domain.ResolutionAccepted, -maxImpact * supportPct
	case supportPct >= threshold/2:
		return domain.ResolutionPartiallyAccepted, -maxImpact * supportPct * 0.5
	default:
		return domain.ResolutionRejected, 0
	}
}
