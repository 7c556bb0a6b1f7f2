package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryReason describes why a claim's score transitioned.
type HistoryReason string

const (
	ReasonEvidenceChanged   HistoryReason = "evidence_changed"
	ReasonChallengeOpened   HistoryReason = "challenge_opened"
	ReasonChallengeResolved HistoryReason = "challenge_resolved"
	ReasonVoteCast          HistoryReason = "vote_cast"
	ReasonCascade           HistoryReason = "cascade"
	ReasonPromotedToLocked  HistoryReason = "promoted_to_locked"
	ReasonRecomputeFailed   HistoryReason = "recompute_failed"
	ReasonManual            HistoryReason = "manual"
)

// EntityType tags which kind of record triggered a score transition.
type EntityType string

const (
	EntityEvidence  EntityType = "evidence"
	EntityChallenge EntityType = "challenge"
	EntityVote      EntityType = "vote"
	EntityClaim     EntityType = "claim"
	EntityUser      EntityType = "user"
)

// ScoreHistoryEntry is one row of the append-only audit trail. Entries are
// never mutated or deleted.
type ScoreHistoryEntry struct {
	ID                   uuid.UUID     `json:"id"`
	ClaimID              uuid.UUID     `json:"claim_id"`
	OldScore             float64       `json:"old_score"`
	NewScore             float64       `json:"new_score"`
	Delta                float64       `json:"delta"`
	Reason               HistoryReason `json:"reason"`
	TriggeringEntityType EntityType    `json:"triggering_entity_type"`
	TriggeringEntityID   uuid.UUID     `json:"triggering_entity_id"`
	ChangedAt            time.Time     `json:"changed_at"`
}
