package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knograph/veracity/internal/domain"
)

type SourceStore struct {
	db *pgxpool.Pool
}

func NewSourceStore(db *pgxpool.Pool) *SourceStore {
	return &SourceStore{db: db}
}

func (s *SourceStore) Create(ctx context.Context, src *domain.Source) error {
	if src.ID == uuid.Nil {
		src.ID = uuid.New()
	}
	if src.CredibilityScore == 0 {
		src.CredibilityScore = 0.5
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO sources (id, name, credibility_score)
		 VALUES ($1, $2, $3)
		 RETURNING updated_at`,
		src.ID, src.Name, src.CredibilityScore,
	).Scan(&src.UpdatedAt)
}

func (s *SourceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	src := &domain.Source{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, credibility_score, total_evidence_count, verified_evidence_count, challenged_evidence_count, updated_at
		 FROM sources WHERE id = $1`,
		id,
	).Scan(&src.ID, &src.Name, &src.CredibilityScore, &src.TotalEvidenceCount,
		&src.VerifiedEvidenceCount, &src.ChallengedEvidenceCount, &src.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return src, nil
}

func (s *SourceStore) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM sources`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats recounts the source's evidence outcomes from the evidence table
// itself rather than trusting incrementally maintained counters. Challenged
// evidence is evidence on a claim that currently has an open challenge.
func (s *SourceStore) Stats(ctx context.Context, sourceID uuid.UUID) (*domain.SourceStats, error) {
	stats := &domain.SourceStats{}
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE verified),
		        COUNT(*) FILTER (WHERE EXISTS (
		            SELECT 1 FROM challenges c
		            WHERE c.target_claim_id = e.target_claim_id AND c.status = 'open'
		        ))
		 FROM evidence e
		 WHERE e.source_id = $1 AND e.deleted_at IS NULL`,
		sourceID,
	).Scan(&stats.TotalEvidence, &stats.VerifiedEvidence, &stats.ChallengedEvidence)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ConsensusAlignment is the share of the source's verified evidence whose
// direction agrees with the current consensus direction of its claim. A
// claim sitting at exactly 0.5 contributes half agreement either way;
// sources with no verified evidence get a neutral 0.5.
func (s *SourceStore) ConsensusAlignment(ctx context.Context, sourceID uuid.UUID) (float64, error) {
	var alignment *float64
	err := s.db.QueryRow(ctx,
		`SELECT AVG(
		     CASE
		         WHEN c.current_score = 0.5 THEN 0.5
		         WHEN (e.kind = 'supporting') = (c.current_score > 0.5) THEN 1.0
		         ELSE 0.0
		     END)
		 FROM evidence e
		 JOIN claims c ON c.id = e.target_claim_id
		 WHERE e.source_id = $1 AND e.verified = TRUE AND e.deleted_at IS NULL`,
		sourceID,
	).Scan(&alignment)
	if err != nil {
		return 0, err
	}
	if alignment == nil {
		return 0.5, nil
	}
	return *alignment, nil
}

func (s *SourceStore) UpdateCredibility(ctx context.Context, sourceID uuid.UUID, stats *domain.SourceStats, credibility float64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE sources
		 SET credibility_score = $1, total_evidence_count = $2, verified_evidence_count = $3,
		     challenged_evidence_count = $4, updated_at = NOW()
		 WHERE id = $5`,
		credibility, stats.TotalEvidence, stats.VerifiedEvidence, stats.ChallengedEvidence, sourceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
