package service

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knograph/veracity/internal/domain"
	"github.com/knograph/veracity/internal/metrics"
	"github.com/knograph/veracity/internal/store"
)

const (
	// OpenChallengePenalty is subtracted per open challenge against a claim.
	OpenChallengePenalty = 0.05
	// MaxChallengePenalty bounds the total open-challenge penalty.
	MaxChallengePenalty = 0.5
)

// ChallengeImpact is the score penalty for the given number of open
// challenges, bounded at -MaxChallengePenalty.
func ChallengeImpact(openChallenges int) float64 {
	return math.Max(-MaxChallengePenalty, -OpenChallengePenalty*float64(openChallenges))
}

// VeracityService is the central orchestrator: it recomputes a claim's score
// from consensus plus challenge impact whenever evidence, challenges, or
// votes change, enforces the locked invariant, and hands propagation to the
// cascade worker.
type VeracityService struct {
	claimStore     domain.ClaimStore
	challengeStore domain.ChallengeStore
	historyStore   domain.HistoryStore
	consensus      *ConsensusService
	cascade        *CascadeService
	logger         *zap.Logger
}

func NewVeracityService(cs domain.ClaimStore, chs domain.ChallengeStore, hs domain.HistoryStore, consensus *ConsensusService, logger *zap.Logger) *VeracityService {
	return &VeracityService{
		claimStore:     cs,
		challengeStore: chs,
		historyStore:   hs,
		consensus:      consensus,
		logger:         logger,
	}
}

// SetCascade wires the propagation worker. Without one, recomputes stay
// local to the triggering claim.
func (s *VeracityService) SetCascade(c *CascadeService) {
	s.cascade = c
}

// GetScore returns the persisted score with its current breakdown.
func (s *VeracityService) GetScore(ctx context.Context, claimID uuid.UUID) (*domain.ClaimScore, error) {
	claim, err := s.claimStore.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}

	b, err := s.consensus.Compute(ctx, claimID)
	if err != nil {
		return nil, err
	}

	open, err := s.challengeStore.CountOpenByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	score := claim.CurrentScore
	if claim.Locked {
		score = domain.LockedScore
	}

	return &domain.ClaimScore{
		ClaimID:         claimID,
		Score:           score,
		Consensus:       b.Consensus,
		ChallengeImpact: ChallengeImpact(open),
		OpenChallenges:  open,
		Locked:          claim.Locked,
	}, nil
}

// Recompute recalculates the claim's score from current evidence and
// challenge state, persists it when the change is material, and enqueues
// dependent claims. Idempotent: unchanged inputs produce identical scores.
func (s *VeracityService) Recompute(ctx context.Context, claimID uuid.UUID, reason domain.HistoryReason, trigType domain.EntityType, trigID uuid.UUID) (*domain.Claim, error) {
	claim, err := s.recomputeOnce(ctx, claimID, reason, trigType, trigID)
	if err != nil {
		return nil, err
	}

	if s.cascade != nil {
		s.cascade.Propagate(claimID)
	}
	return claim, nil
}

// recomputeOnce runs a single local recompute with no propagation. The
// cascade worker uses it directly so it can carry its own visited set.
func (s *VeracityService) recomputeOnce(ctx context.Context, claimID uuid.UUID, reason domain.HistoryReason, trigType domain.EntityType, trigID uuid.UUID) (*domain.Claim, error) {
	claim, err := s.claimStore.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	if claim.Locked {
		metrics.RecomputesTotal.WithLabelValues("locked").Inc()
		return nil, ErrAlreadyLocked
	}

	b, err := s.consensus.Compute(ctx, claimID)
	if err != nil {
		metrics.RecomputesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	open, err := s.challengeStore.CountOpenByClaim(ctx, claimID)
	if err != nil {
		metrics.RecomputesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	newScore := clamp01(b.Consensus + ChallengeImpact(open))

	oldScore, changed, err := s.claimStore.ApplyScore(ctx, claimID, newScore, reason, trigType, trigID)
	if err != nil {
		if errors.Is(err, store.ErrClaimLocked) {
			// Locked between the read and the row lock.
			metrics.RecomputesTotal.WithLabelValues("locked").Inc()
			return nil, ErrAlreadyLocked
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		metrics.RecomputesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if changed {
		metrics.RecomputesTotal.WithLabelValues("changed").Inc()
		s.logger.Info("claim score updated",
			zap.String("claim_id", claimID.String()),
			zap.Float64("old_score", oldScore),
			zap.Float64("new_score", newScore),
			zap.String("reason", string(reason)))
	} else {
		metrics.RecomputesTotal.WithLabelValues("unchanged").Inc()
		newScore = oldScore
	}

	claim.CurrentScore = newScore
	return claim, nil
}

// PromoteToLocked permanently fixes the claim's score at 1.0. This is an
// explicit administrative action; no formula output ever locks a claim.
func (s *VeracityService) PromoteToLocked(ctx context.Context, claimID, approverID uuid.UUID) (*domain.Claim, error) {
	oldScore, err := s.claimStore.PromoteToLocked(ctx, claimID, approverID)
	if err != nil {
		if errors.Is(err, store.ErrClaimLocked) {
			return nil, ErrAlreadyLocked
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}

	s.logger.Info("claim promoted to locked",
		zap.String("claim_id", claimID.String()),
		zap.String("approver_id", approverID.String()),
		zap.Float64("old_score", oldScore))

	return s.claimStore.GetByID(ctx, claimID)
}

// RegisterClaim adds a claim to the scoring graph. New claims start at the
// neutral 0.5 until evidence arrives.
func (s *VeracityService) RegisterClaim(ctx context.Context, c *domain.Claim) error {
	c.Locked = false
	c.CurrentScore = NeutralConsensus
	if err := s.claimStore.Create(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrClaimExists
		}
		return err
	}
	return nil
}

// AddDependency records that claimID cites evidenceClaimID as supporting
// material, making claimID a cascade target whenever the cited claim's
// score moves.
func (s *VeracityService) AddDependency(ctx context.Context, claimID, evidenceClaimID uuid.UUID) error {
	for _, id := range []uuid.UUID{claimID, evidenceClaimID} {
		if _, err := s.claimStore.GetByID(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrClaimNotFound
			}
			return err
		}
	}
	return s.claimStore.AddDependency(ctx, claimID, evidenceClaimID)
}

// History returns the claim's full audit trail, oldest first.
func (s *VeracityService) History(ctx context.Context, claimID uuid.UUID) ([]domain.ScoreHistoryEntry, error) {
	if _, err := s.claimStore.GetByID(ctx, claimID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return s.historyStore.GetByClaim(ctx, claimID)
}
