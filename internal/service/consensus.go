package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knograph/veracity/internal/domain"
	"github.com/knograph/veracity/internal/store"
)

// NeutralConsensus is the consensus of a claim with no verified evidence.
// Unreviewed claims sit at the midpoint rather than inflating themselves.
const NeutralConsensus = 0.5

// ConsensusBreakdown is the weighted evidence aggregation for one claim.
type ConsensusBreakdown struct {
	ClaimID          uuid.UUID `json:"claim_id"`
	SupportingWeight float64   `json:"supporting_weight"`
	RefutingWeight   float64   `json:"refuting_weight"`
	EvidenceCount    int       `json:"evidence_count"`
	Consensus        float64   `json:"consensus"`
}

type ConsensusService struct {
	evidenceStore domain.EvidenceStore
	sourceStore   domain.SourceStore
	logger        *zap.Logger
}

func NewConsensusService(es domain.EvidenceStore, ss domain.SourceStore, logger *zap.Logger) *ConsensusService {
	return &ConsensusService{
		evidenceStore: es,
		sourceStore:   ss,
		logger:        logger,
	}
}

// Compute aggregates the effective weights of all verified evidence for a
// claim. Only verified, non-deleted evidence participates.
func (s *ConsensusService) Compute(ctx context.Context, claimID uuid.UUID) (*ConsensusBreakdown, error) {
	items, err := s.evidenceStore.ListVerifiedByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	b := &ConsensusBreakdown{ClaimID: claimID}
	credibility := make(map[uuid.UUID]float64)

	for i := range items {
		e := &items[i]

		cred, ok := credibility[e.SourceID]
		if !ok {
			src, err := s.sourceStore.GetByID(ctx, e.SourceID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, fmt.Errorf("%w: evidence %s references missing source %s",
						ErrComputationInconsistency, e.ID, e.SourceID)
				}
				return nil, err
			}
			cred = src.CredibilityScore
			credibility[e.SourceID] = cred
		}

		w := EffectiveWeight(e, cred)
		switch e.Kind {
		case domain.EvidenceSupporting:
			b.SupportingWeight += w
		case domain.EvidenceRefuting:
			b.RefutingWeight += w
		}
		b.EvidenceCount++
	}

	total := b.SupportingWeight + b.RefutingWeight
	if total == 0 {
		b.Consensus = NeutralConsensus
	} else {
		b.Consensus = b.SupportingWeight / total
	}

	s.logger.Debug("consensus computed",
		zap.String("claim_id", claimID.String()),
		zap.Float64("supporting", b.SupportingWeight),
		zap.Float64("refuting", b.RefutingWeight),
		zap.Float64("consensus", b.Consensus),
		zap.Int("evidence_count", b.EvidenceCount))

	return b, nil
}
