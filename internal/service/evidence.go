package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knograph/veracity/internal/domain"
	"github.com/knograph/veracity/internal/store"
)

var (
	ErrEvidenceNotFound = errors.New("evidence not found")
	ErrInvalidEvidence  = errors.New("invalid evidence")
)

// EvidenceService owns the evidence ledger: create, update, and soft-delete,
// each followed by a recompute of the target claim.
type EvidenceService struct {
	evidenceStore domain.EvidenceStore
	claimStore    domain.ClaimStore
	sourceStore   domain.SourceStore
	veracity      *VeracityService
	logger        *zap.Logger
}

func NewEvidenceService(es domain.EvidenceStore, cs domain.ClaimStore, ss domain.SourceStore, ver *VeracityService, logger *zap.Logger) *EvidenceService {
	return &EvidenceService{
		evidenceStore: es,
		claimStore:    cs,
		sourceStore:   ss,
		veracity:      ver,
		logger:        logger,
	}
}

func validEvidenceFactors(e *domain.Evidence) bool {
	inRange := func(v float64) bool { return v >= 0 && v <= 1 }
	return inRange(e.BaseWeight) && inRange(e.Confidence) && inRange(e.TemporalRelevance)
}

func (s *EvidenceService) Create(ctx context.Context, e *domain.Evidence) error {
	if !domain.ValidEvidenceKind(string(e.Kind)) {
		return ErrInvalidEvidence
	}
	if e.PeerReviewStatus != "" && !domain.ValidPeerReviewStatus(string(e.PeerReviewStatus)) {
		return ErrInvalidEvidence
	}
	if !validEvidenceFactors(e) {
		return ErrInvalidEvidence
	}

	claim, err := s.claimStore.GetByID(ctx, e.TargetClaimID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClaimNotFound
		}
		return err
	}
	if claim.Locked {
		return ErrAlreadyLocked
	}

	if _, err := s.sourceStore.GetByID(ctx, e.SourceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSourceNotFound
		}
		return err
	}

	if err := s.evidenceStore.Create(ctx, e); err != nil {
		return err
	}

	s.recompute(ctx, e.TargetClaimID, e.ID)
	return nil
}

func (s *EvidenceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Evidence, error) {
	e, err := s.evidenceStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEvidenceNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EvidenceService) Update(ctx context.Context, e *domain.Evidence) error {
	if !domain.ValidEvidenceKind(string(e.Kind)) || !domain.ValidPeerReviewStatus(string(e.PeerReviewStatus)) {
		return ErrInvalidEvidence
	}
	if !validEvidenceFactors(e) {
		return ErrInvalidEvidence
	}

	existing, err := s.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	e.TargetClaimID = existing.TargetClaimID
	e.SourceID = existing.SourceID

	claim, err := s.claimStore.GetByID(ctx, existing.TargetClaimID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClaimNotFound
		}
		return err
	}
	if claim.Locked {
		return ErrAlreadyLocked
	}

	if err := s.evidenceStore.Update(ctx, e); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrEvidenceNotFound
		}
		return err
	}

	s.recompute(ctx, existing.TargetClaimID, e.ID)
	return nil
}

// Delete is a soft delete: the row survives for audit, the aggregation
// stops seeing it, and the claim recomputes.
func (s *EvidenceService) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	claim, err := s.claimStore.GetByID(ctx, existing.TargetClaimID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClaimNotFound
		}
		return err
	}
	if claim.Locked {
		return ErrAlreadyLocked
	}

	if err := s.evidenceStore.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrEvidenceNotFound
		}
		return err
	}

	s.recompute(ctx, existing.TargetClaimID, id)
	return nil
}

func (s *EvidenceService) recompute(ctx context.Context, claimID, evidenceID uuid.UUID) {
	if _, err := s.veracity.Recompute(ctx, claimID, domain.ReasonEvidenceChanged, domain.EntityEvidence, evidenceID); err != nil {
		s.logger.Warn("recompute after evidence change failed",
			zap.String("claim_id", claimID.String()),
			zap.String("evidence_id", evidenceID.String()),
			zap.Error(err))
	}
}
