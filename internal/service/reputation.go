package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knograph/veracity/internal/domain"
	"github.com/knograph/veracity/internal/store"
)

type ReputationService struct {
	repStore domain.ReputationStore
	logger   *zap.Logger
}

func NewReputationService(rs domain.ReputationStore, logger *zap.Logger) *ReputationService {
	return &ReputationService{
		repStore: rs,
		logger:   logger,
	}
}

func (s *ReputationService) Get(ctx context.Context, userID uuid.UUID) (*domain.UserReputation, error) {
	u, err := s.repStore.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// CanChallenge is the eligibility gate for opening a dispute. Checks run in
// order: ban state, daily rate limit, then the type's reputation floor. It
// mutates nothing; a failed gate leaves no trace.
func (s *ReputationService) CanChallenge(ctx context.Context, userID uuid.UUID, challengeType domain.ChallengeType) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	if u.Banned {
		return ErrBanned
	}
	if u.ChallengesToday >= u.DailyLimit {
		return ErrRateLimitExceeded
	}
	if u.ReputationScore < challengeType.MinReputationRequired() {
		return ErrInsufficientReputation
	}
	return nil
}

// ReserveChallengeSlot claims one of the user's daily challenge slots. The
// store re-checks every gate inside the counter UPDATE itself, so a reserve
// that raced another create cannot exceed the daily limit. When the
// conditional write matches no rows, the gates are re-read to name the one
// that failed; a concurrent reserve taking the last slot surfaces as the
// rate limit.
func (s *ReputationService) ReserveChallengeSlot(ctx context.Context, userID uuid.UUID, challengeType domain.ChallengeType) error {
	err := s.repStore.ReserveChallengeSlot(ctx, userID, challengeType.MinReputationRequired())
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if gateErr := s.CanChallenge(ctx, userID, challengeType); gateErr != nil {
		return gateErr
	}
	return ErrRateLimitExceeded
}

// ApplyResolutionOutcome credits the challenger after their challenge
// resolves. Partially accepted counts as accepted.
func (s *ReputationService) ApplyResolutionOutcome(ctx context.Context, userID uuid.UUID, resolution domain.ChallengeResolution) error {
	accepted := resolution == domain.ResolutionAccepted || resolution == domain.ResolutionPartiallyAccepted
	if err := s.repStore.ApplyResolutionOutcome(ctx, userID, accepted); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// ResetDailyCounters zeroes the per-user challenge counters. Wired to the
// day-boundary schedule.
func (s *ReputationService) ResetDailyCounters(ctx context.Context) {
	n, err := s.repStore.ResetDailyCounters(ctx)
	if err != nil {
		s.logger.Error("failed to reset daily challenge counters", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("daily challenge counters reset", zap.Int64("users", n))
	}
}
