package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knograph/veracity/internal/domain"
)

type EvidenceStore struct {
	db *pgxpool.Pool
}

func NewEvidenceStore(db *pgxpool.Pool) *EvidenceStore {
	return &EvidenceStore{db: db}
}

func (s *EvidenceStore) Create(ctx context.Context, e *domain.Evidence) error {
	if e.PeerReviewStatus == "" {
		e.PeerReviewStatus = domain.PeerReviewNone
	}
	if e.TemporalRelevance == 0 {
		e.TemporalRelevance = 1.0
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO evidence (target_claim_id, kind, base_weight, confidence, temporal_relevance, source_id, peer_review_status, verified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		e.TargetClaimID, e.Kind, e.BaseWeight, e.Confidence, e.TemporalRelevance,
		e.SourceID, e.PeerReviewStatus, e.Verified,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (s *EvidenceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Evidence, error) {
	e := &domain.Evidence{}
	err := s.db.QueryRow(ctx,
		`SELECT id, target_claim_id, kind, base_weight, confidence, temporal_relevance, source_id, peer_review_status, verified, deleted_at, created_at, updated_at
		 FROM evidence WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.TargetClaimID, &e.Kind, &e.BaseWeight, &e.Confidence, &e.TemporalRelevance,
		&e.SourceID, &e.PeerReviewStatus, &e.Verified, &e.DeletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EvidenceStore) Update(ctx context.Context, e *domain.Evidence) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE evidence
		 SET kind = $1, base_weight = $2, confidence = $3, temporal_relevance = $4,
		     peer_review_status = $5, verified = $6, updated_at = NOW()
		 WHERE id = $7 AND deleted_at IS NULL`,
		e.Kind, e.BaseWeight, e.Confidence, e.TemporalRelevance,
		e.PeerReviewStatus, e.Verified, e.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks the evidence deleted without destroying the row, keeping
// the audit trail intact.
func (s *EvidenceStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE evidence SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EvidenceStore) ListVerifiedByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.Evidence, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, target_claim_id, kind, base_weight, confidence, temporal_relevance, source_id, peer_review_status, verified, deleted_at, created_at, updated_at
		 FROM evidence
		 WHERE target_claim_id = $1 AND verified = TRUE AND deleted_at IS NULL
		 ORDER BY created_at ASC`,
		claimID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Evidence
	for rows.Next() {
		var e domain.Evidence
		if err := rows.Scan(&e.ID, &e.TargetClaimID, &e.Kind, &e.BaseWeight, &e.Confidence, &e.TemporalRelevance,
			&e.SourceID, &e.PeerReviewStatus, &e.Verified, &e.DeletedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
