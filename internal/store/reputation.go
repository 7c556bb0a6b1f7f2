package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knograph/veracity/internal/domain"
)

type ReputationStore struct {
	db *pgxpool.Pool
}

func NewReputationStore(db *pgxpool.Pool) *ReputationStore {
	return &ReputationStore{db: db}
}

func (s *ReputationStore) Get(ctx context.Context, userID uuid.UUID) (*domain.UserReputation, error) {
	u := &domain.UserReputation{}
	err := s.db.QueryRow(ctx,
		`SELECT user_id, reputation_score, challenges_today, daily_limit, banned,
		        challenges_submitted, challenges_accepted, challenges_rejected, updated_at
		 FROM user_reputation WHERE user_id = $1`,
		userID,
	).Scan(&u.UserID, &u.ReputationScore, &u.ChallengesToday, &u.DailyLimit, &u.Banned,
		&u.ChallengesSubmitted, &u.ChallengesAccepted, &u.ChallengesRejected, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// ReserveChallengeSlot folds the eligibility gates into the counter bump so
// two concurrent creates at the daily limit cannot both pass: the second
// UPDATE sees the incremented counter and matches no rows.
func (s *ReputationStore) ReserveChallengeSlot(ctx context.Context, userID uuid.UUID, minScore int) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE user_reputation
		 SET challenges_today = challenges_today + 1,
		     challenges_submitted = challenges_submitted + 1,
		     updated_at = NOW()
		 WHERE user_id = $1
		   AND NOT banned
		   AND challenges_today < daily_limit
		   AND reputation_score >= $2`,
		userID, minScore,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyResolutionOutcome adjusts the challenger's record once their
// challenge resolves: accepted (or partially accepted) earns +10 reputation.
func (s *ReputationStore) ApplyResolutionOutcome(ctx context.Context, userID uuid.UUID, accepted bool) error {
	var query string
	if accepted {
		query = `UPDATE user_reputation
		         SET reputation_score = reputation_score + 10,
		             challenges_accepted = challenges_accepted + 1,
		             updated_at = NOW()
		         WHERE user_id = $1`
	} else {
		query = `UPDATE user_reputation
		         SET challenges_rejected = challenges_rejected + 1,
		             updated_at = NOW()
		         WHERE user_id = $1`
	}

	tag, err := s.db.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetDailyCounters zeroes every user's challenges_today at the day
// boundary. Invoked by the scheduler, not by recompute paths.
func (s *ReputationStore) ResetDailyCounters(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE user_reputation SET challenges_today = 0, updated_at = NOW()
		 WHERE challenges_today > 0`,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
