package store

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knograph/veracity/internal/domain"
)

const pgUniqueViolation = "23505"

type ClaimStore struct {
	db *pgxpool.Pool
}

func NewClaimStore(db *pgxpool.Pool) *ClaimStore {
	return &ClaimStore{db: db}
}

func (s *ClaimStore) Create(ctx context.Context, c *domain.Claim) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CurrentScore == 0 {
		c.CurrentScore = 0.5
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO claims (id, current_score, locked)
		 VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at`,
		c.ID, c.CurrentScore, c.Locked,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}

func (s *ClaimStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	c := &domain.Claim{}
	err := s.db.QueryRow(ctx,
		`SELECT id, current_score, locked, created_at, updated_at
		 FROM claims WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.CurrentScore, &c.Locked, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// ApplyScore updates the claim score and appends the history entry in one
// transaction. The claim row is locked for the duration so concurrent
// recomputes of the same claim serialize instead of losing updates.
func (s *ClaimStore) ApplyScore(ctx context.Context, claimID uuid.UUID, newScore float64, reason domain.HistoryReason, trigType domain.EntityType, trigID uuid.UUID) (float64, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oldScore float64
	var locked bool
	err = tx.QueryRow(ctx,
		`SELECT current_score, locked FROM claims WHERE id = $1 FOR UPDATE`,
		claimID,
	).Scan(&oldScore, &locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, ErrNotFound
		}
		return 0, false, err
	}
	if locked {
		return oldScore, false, ErrClaimLocked
	}

	delta := newScore - oldScore
	if math.Abs(delta) <= domain.ScoreChangeEpsilon {
		return oldScore, false, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE claims SET current_score = $1, updated_at = NOW() WHERE id = $2`,
		newScore, claimID,
	); err != nil {
		return oldScore, false, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO score_history (claim_id, old_score, new_score, delta, reason, triggering_entity_type, triggering_entity_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		claimID, oldScore, newScore, delta, reason, trigType, trigID,
	); err != nil {
		return oldScore, false, err
	}

	return oldScore, true, tx.Commit(ctx)
}

// PromoteToLocked pins the claim at 1.0 and marks it locked. The score write
// and the history entry commit together.
func (s *ClaimStore) PromoteToLocked(ctx context.Context, claimID, approverID uuid.UUID) (float64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oldScore float64
	var locked bool
	err = tx.QueryRow(ctx,
		`SELECT current_score, locked FROM claims WHERE id = $1 FOR UPDATE`,
		claimID,
	).Scan(&oldScore, &locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if locked {
		return oldScore, ErrClaimLocked
	}

	if _, err := tx.Exec(ctx,
		`UPDATE claims SET current_score = $1, locked = TRUE, updated_at = NOW() WHERE id = $2`,
		domain.LockedScore, claimID,
	); err != nil {
		return oldScore, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO score_history (claim_id, old_score, new_score, delta, reason, triggering_entity_type, triggering_entity_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		claimID, oldScore, domain.LockedScore, domain.LockedScore-oldScore,
		domain.ReasonPromotedToLocked, domain.EntityUser, approverID,
	); err != nil {
		return oldScore, err
	}

	return oldScore, tx.Commit(ctx)
}

func (s *ClaimStore) AddDependency(ctx context.Context, claimID, evidenceClaimID uuid.UUID) error {
	if claimID == evidenceClaimID {
		return ErrCyclicDependency
	}

	// Reject a direct two-claim cycle up front. Longer cycles are handled
	// by the cascade visited-set and depth bound.
	var reverse bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM claim_dependencies
		     WHERE claim_id = $1 AND evidence_claim_id = $2
		 )`,
		evidenceClaimID, claimID,
	).Scan(&reverse)
	if err != nil {
		return err
	}
	if reverse {
		return ErrCyclicDependency
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO claim_dependencies (claim_id, evidence_claim_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		claimID, evidenceClaimID,
	)
	return err
}

func (s *ClaimStore) ListDependents(ctx context.Context, claimID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT claim_id FROM claim_dependencies WHERE evidence_claim_id = $1`,
		claimID,
	)
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
