package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knograph/veracity/internal/domain"
	"github.com/knograph/veracity/internal/store"
)

const (
	// DefaultVerifiedRatio is assumed for sources with no evidence yet.
	DefaultVerifiedRatio = 0.2

	verifiedRatioWeight  = 0.4
	challengeRatioWeight = 0.3
	alignmentWeight      = 0.3
)

// CredibilityScore derives a source's credibility from its own
// evidence-outcome statistics. It deliberately never consults evidence
// weighting, which consumes credibility as an input.
func CredibilityScore(stats *domain.SourceStats, consensusAlignment float64) float64 {
	verifiedRatio := DefaultVerifiedRatio
	challengeRatio := 0.0
	if stats.TotalEvidence > 0 {
		verifiedRatio = float64(stats.VerifiedEvidence) / float64(stats.TotalEvidence)
		challengeRatio = float64(stats.ChallengedEvidence) / float64(stats.TotalEvidence)
	}

	return clamp01(verifiedRatio*verifiedRatioWeight +
		(1-challengeRatio)*challengeRatioWeight +
		consensusAlignment*alignmentWeight)
}

// CredibilityService recomputes source credibility as a batch statistic.
// It runs from the nightly schedule, never inline on evidence writes.
type CredibilityService struct {
	sourceStore domain.SourceStore
	logger      *zap.Logger
}

func NewCredibilityService(ss domain.SourceStore, logger *zap.Logger) *CredibilityService {
	return &CredibilityService{
		sourceStore: ss,
		logger:      logger,
	}
}

func (s *CredibilityService) RecomputeSource(ctx context.Context, sourceID uuid.UUID) (*domain.Source, error) {
	stats, err := s.sourceStore.Stats(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	alignment, err := s.sourceStore.ConsensusAlignment(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	credibility := CredibilityScore(stats, alignment)
	if err := s.sourceStore.UpdateCredibility(ctx, sourceID, stats, credibility); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}

	s.logger.Debug("source credibility recomputed",
		zap.String("source_id", sourceID.String()),
		zap.Float64("credibility", credibility),
		zap.Float64("alignment", alignment),
		zap.Int("total_evidence", stats.TotalEvidence))

	src, err := s.sourceStore.GetByID(ctx, sourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}
	return src, nil
}

// RunBatch recomputes credibility for every known source. Individual
// failures are logged and skipped so one bad source cannot stall the batch.
func (s *CredibilityService) RunBatch(ctx context.Context) int {
	ids, err := s.sourceStore.ListIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list sources for credibility batch", zap.Error(err))
		return 0
	}

	updated := 0
	for _, id := range ids {
		if _, err := s.RecomputeSource(ctx, id); err != nil {
			s.logger.Warn("credibility recompute failed",
				zap.String("source_id", id.String()),
				zap.Error(err))
			continue
		}
		updated++
	}

	if updated > 0 {
		s.logger.Info("credibility batch complete", zap.Int("sources_updated", updated))
	}
	return updated
}
