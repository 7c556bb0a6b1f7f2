package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knograph/veracity/internal/domain"
)

// HistoryStore is append-only: entries are inserted, read back in order, and
// never updated or deleted.
type HistoryStore struct {
	db *pgxpool.Pool
}

func NewHistoryStore(db *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Append(ctx context.Context, e *domain.ScoreHistoryEntry) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO score_history (claim_id, old_score, new_score, delta, reason, triggering_entity_type, triggering_entity_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, changed_at`,
		e.ClaimID, e.OldScore, e.NewScore, e.Delta, e.Reason, e.TriggeringEntityType, e.TriggeringEntityID,
	).Scan(&e.ID, &e.ChangedAt)
}

func (s *HistoryStore) GetByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.ScoreHistoryEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, claim_id, old_score, new_score, delta, reason, triggering_entity_type, triggering_entity_id, changed_at
		 FROM score_history WHERE claim_id = $1
		 ORDER BY changed_at ASC, id ASC`,
		claimID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ScoreHistoryEntry
	for rows.Next() {
		var e domain.ScoreHistoryEntry
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.OldScore, &e.NewScore, &e.Delta,
			&e.Reason, &e.TriggeringEntityType, &e.TriggeringEntityID, &e.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
