package service

import "errors"

var (
	ErrClaimNotFound     = errors.New("claim not found")
	ErrClaimExists       = errors.New("claim already exists")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrSourceNotFound    = errors.New("source not found")
	ErrUserNotFound      = errors.New("user reputation not found")

	// ErrAlreadyLocked rejects any mutation or recompute against a locked
	// claim. Locked claims stay at exactly 1.0.
	ErrAlreadyLocked = errors.New("claim is locked")

	// ErrInvalidVote covers malformed vote values and votes cast after a
	// challenge has resolved.
	ErrInvalidVote = errors.New("invalid vote")

	ErrInsufficientReputation = errors.New("insufficient reputation")
	ErrRateLimitExceeded      = errors.New("daily challenge limit exceeded")
	ErrBanned                 = errors.New("user is banned")

	ErrInvalidChallengeType = errors.New("invalid challenge type")
	ErrInvalidThreshold     = errors.New("acceptance threshold must be in [0.5, 1.0]")

	// ErrVotingOpen is returned when a resolve is requested before the
	// voting deadline without a forcing resolver.
	ErrVotingOpen = errors.New("voting period still open")

	// ErrComputationInconsistency marks a data-integrity defect: evidence
	// or a vote referencing a record that does not exist.
	ErrComputationInconsistency = errors.New("computation inconsistency")
)
