package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knograph/veracity/internal/domain"
)

type ChallengeStore struct {
	db *pgxpool.Pool
}

func NewChallengeStore(db *pgxpool.Pool) *ChallengeStore {
	return &ChallengeStore{db: db}
}

func (s *ChallengeStore) Create(ctx context.Context, c *domain.Challenge) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO challenges (target_claim_id, challenger_id, type, status, acceptance_threshold, max_impact, voting_deadline)
		 VALUES ($1, $2, $3, 'open', $4, $5, $6)
		 RETURNING id, status, created_at`,
		c.TargetClaimID, c.ChallengerID, c.Type, c.AcceptanceThreshold, c.MaxImpact, c.VotingDeadline,
	).Scan(&c.ID, &c.Status, &c.CreatedAt)
}

func (s *ChallengeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Challenge, error) {
	c := &domain.Challenge{}
	err := s.db.QueryRow(ctx,
		`SELECT id, target_claim_id, challenger_id, type, status, resolution, acceptance_threshold, max_impact, veracity_impact, voting_deadline, resolved_at, created_at
		 FROM challenges WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.TargetClaimID, &c.ChallengerID, &c.Type, &c.Status, &c.Resolution,
		&c.AcceptanceThreshold, &c.MaxImpact, &c.VeracityImpact, &c.VotingDeadline, &c.ResolvedAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ChallengeStore) CountOpenByClaim(ctx context.Context, claimID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM challenges WHERE target_claim_id = $1 AND status = 'open'`,
		claimID,
	).Scan(&count)
	return count, err
}

// Resolve transitions an open challenge to resolved. The WHERE clause keeps
// the transition one-way: a second resolve matches no rows.
func (s *ChallengeStore) Resolve(ctx context.Context, id uuid.UUID, resolution domain.ChallengeResolution, impact float64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE challenges
		 SET status = 'resolved', resolution = $1, veracity_impact = $2, resolved_at = NOW()
		 WHERE id = $3 AND status = 'open'`,
		resolution, impact, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertVote replaces any earlier vote by the same user on the same
// challenge. The snapshotted weight is overwritten along with the value.
func (s *ChallengeStore) UpsertVote(ctx context.Context, v *domain.Vote) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO challenge_votes (challenge_id, user_id, value, weight, reasoning)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (challenge_id, user_id)
		 DO UPDATE SET value = EXCLUDED.value, weight = EXCLUDED.weight,
		               reasoning = EXCLUDED.reasoning, cast_at = NOW()
		 RETURNING cast_at`,
		v.ChallengeID, v.UserID, v.Value, v.Weight, v.Reasoning,
	).Scan(&v.CastAt)
}

func (s *ChallengeStore) Tally(ctx context.Context, challengeID uuid.UUID) (*domain.Tally, error) {
	t := &domain.Tally{ChallengeID: challengeID}
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(weight) FILTER (WHERE value = 'support'), 0),
		        COALESCE(SUM(weight) FILTER (WHERE value <> 'abstain'), 0),
		        COUNT(*)
		 FROM challenge_votes WHERE challenge_id = $1`,
		challengeID,
	).Scan(&t.SupportWeight, &t.TotalWeight, &t.VoteCount)
	if err != nil {
		return nil, err
	}
	if t.TotalWeight > 0 {
		t.SupportPct = t.SupportWeight / t.TotalWeight
	}
	return t, nil
}
