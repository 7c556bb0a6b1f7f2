package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knograph/veracity/internal/domain"
)

type challengeFixture struct {
	svc        *ChallengeService
	challenges *mockChallengeStore
	claims     *mockClaimStore
	reps       *mockReputationStore
	history    *mockHistoryStore
	claimID    uuid.UUID
}

func setupChallengeTest(t *testing.T) *challengeFixture {
	t.Helper()
	logger := zap.NewNop()

	history := newMockHistoryStore()
	claims := newMockClaimStore(history)
	challenges := newMockChallengeStore()
	reps := newMockReputationStore()
	evidence := newMockEvidenceStore()
	sources := newMockSourceStore()

	consensus := NewConsensusService(evidence, sources, logger)
	veracity := NewVeracityService(claims, challenges, history, consensus, logger)
	repSvc := NewReputationService(reps, logger)
	svc := NewChallengeService(challenges, claims, repSvc, veracity, logger)

	claim := &domain.Claim{CurrentScore: 0.5}
	_ = claims.Create(context.Background(), claim)

	return &challengeFixture{
		svc:        svc,
		challenges: challenges,
		claims:     claims,
		reps:       reps,
		history:    history,
		claimID:    claim.ID,
	}
}

func (f *challengeFixture) addUser(t *testing.T, score int) uuid.UUID {
	t.Helper()
	u := &domain.UserReputation{ReputationScore: score}
	f.reps.add(u)
	return u.UserID
}

// expireVoting moves the challenge's deadline into the past so it can be
// resolved without a forcing resolver.
func (f *challengeFixture) expireVoting(challengeID uuid.UUID) {
	f.challenges.mu.Lock()
	defer f.challenges.mu.Unlock()
	f.challenges.challenges[challengeID].VotingDeadline = time.Now().Add(-time.Hour)
}

func TestChallengeService_Create(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	challenger := f.addUser(t, 300)

	c := &domain.Challenge{
		TargetClaimID: f.claimID,
		ChallengerID:  challenger,
		Type:          domain.ChallengeFactual,
	}
	if err := f.svc.Create(ctx, c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.ID == uuid.Nil {
		t.Fatal("expected challenge ID to be set")
	}
	if c.AcceptanceThreshold != DefaultAcceptanceThreshold {
		t.Fatalf("expected default threshold, got %v", c.AcceptanceThreshold)
	}
	if c.MaxImpact != DefaultMaxImpact {
		t.Fatalf("expected default max impact, got %v", c.MaxImpact)
	}
	if c.VotingDeadline.IsZero() {
		t.Fatal("expected a voting deadline")
	}

	u, _ := f.reps.Get(ctx, challenger)
	if u.ChallengesToday != 1 || u.ChallengesSubmitted != 1 {
		t.Fatalf("expected submission counters bumped, got today=%d submitted=%d", u.ChallengesToday, u.ChallengesSubmitted)
	}

	// The open challenge drags the claim below neutral.
	claim, _ := f.claims.GetByID(ctx, f.claimID)
	if math.Abs(claim.CurrentScore-0.45) > 1e-9 {
		t.Fatalf("expected score 0.45 with one open challenge, got %v", claim.CurrentScore)
	}
}

func TestChallengeService_Create_InvalidType(t *testing.T) {
	f := setupChallengeTest(t)
	challenger := f.addUser(t, 300)

	err := f.svc.Create(context.Background(), &domain.Challenge{
		TargetClaimID: f.claimID,
		ChallengerID:  challenger,
		Type:          "vibes",
	})
	if !errors.Is(err, ErrInvalidChallengeType) {
		t.Fatalf("expected ErrInvalidChallengeType, got %v", err)
	}
}

func TestChallengeService_Create_InvalidThreshold(t *testing.T) {
	f := setupChallengeTest(t)
	challenger := f.addUser(t, 300)

	err := f.svc.Create(context.Background(), &domain.Challenge{
		TargetClaimID:       f.claimID,
		ChallengerID:        challenger,
		Type:                domain.ChallengeFactual,
		AcceptanceThreshold: 0.4,
	})
	if !errors.Is(err, ErrInvalidThreshold) {
		t.Fatalf("expected ErrInvalidThreshold, got %v", err)
	}
}

func TestChallengeService_Create_LockedClaim(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	challenger := f.addUser(t, 300)

	_, _ = f.claims.PromoteToLocked(ctx, f.claimID, uuid.New())

	err := f.svc.Create(ctx, &domain.Challenge{
		TargetClaimID: f.claimID,
		ChallengerID:  challenger,
		Type:          domain.ChallengeFactual,
	})
	if !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("expected ErrAlreadyLocked, got %v", err)
	}
}

func TestChallengeService_Create_RateLimited(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()

	user := &domain.UserReputation{ReputationScore: 300, ChallengesToday: 5, DailyLimit: 5}
	f.reps.add(user)

	err := f.svc.Create(ctx, &domain.Challenge{
		TargetClaimID: f.claimID,
		ChallengerID:  user.UserID,
		Type:          domain.ChallengeFactual,
	})
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
	// The gate must fire before any write: no challenge row exists.
	if len(f.challenges.challenges) != 0 {
		t.Fatalf("expected no challenge record, got %d", len(f.challenges.challenges))
	}
}

func TestChallengeService_Create_ReserveFailureLeavesNoRow(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	challenger := f.addUser(t, 300)

	f.reps.reserveErr = errors.New("storage unavailable")

	err := f.svc.Create(ctx, &domain.Challenge{
		TargetClaimID: f.claimID,
		ChallengerID:  challenger,
		Type:          domain.ChallengeFactual,
	})
	if err == nil {
		t.Fatal("expected create to fail when the slot reservation fails")
	}
	// A failed counter write aborts the create entirely: no challenge row,
	// no half-applied counters.
	if len(f.challenges.challenges) != 0 {
		t.Fatalf("expected no challenge record, got %d", len(f.challenges.challenges))
	}
	u, err := f.reps.Get(ctx, challenger)
	if err != nil {
		t.Fatalf("failed to read reputation: %v", err)
	}
	if u.ChallengesToday != 0 || u.ChallengesSubmitted != 0 {
		t.Fatalf("expected untouched counters, got today=%d submitted=%d",
			u.ChallengesToday, u.ChallengesSubmitted)
	}
}

func TestChallengeService_CastVote_SnapshotsWeight(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	challenger := f.addUser(t, 300)

	c := &domain.Challenge{TargetClaimID: f.claimID, ChallengerID: challenger, Type: domain.ChallengeFactual}
	_ = f.svc.Create(ctx, c)

	voter := f.addUser(t, 1500) // trusted, weight 2.0
	tally, err := f.svc.CastVote(ctx, c.ID, voter, "support", "solid refutation")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tally.SupportWeight != 2.0 || tally.TotalWeight != 2.0 {
		t.Fatalf("expected snapshot weight 2.0, got support=%v total=%v", tally.SupportWeight, tally.TotalWeight)
	}

	// A later reputation change must not reweight the cast vote.
	f.reps.mu.Lock()
	f.reps.users[voter].ReputationScore = 50000
	f.reps.mu.Unlock()

	tally, _ = f.svc.Tally(ctx, c.ID)
	if tally.SupportWeight != 2.0 {
		t.Fatalf("expected vote weight to stay 2.0 after tier change, got %v", tally.SupportWeight)
	}
}

func TestChallengeService_CastVote_Upsert(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	challenger := f.addUser(t, 300)

	c := &domain.Challenge{TargetClaimID: f.claimID, ChallengerID: challenger, Type: domain.ChallengeFactual}
	_ = f.svc.Create(ctx, c)

	voter := f.addUser(t, 300)
	_, _ = f.svc.CastVote(ctx, c.ID, voter, "support", "")
	tally, err := f.svc.CastVote(ctx, c.ID, voter, "reject", "changed my mind")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tally.VoteCount != 1 {
		t.Fatalf("expected a single vote after recast, got %d", tally.VoteCount)
	}
	if tally.SupportWeight != 0 {
		t.Fatalf("expected no support weight after recast, got %v", tally.SupportWeight)
	}
}

func TestChallengeService_CastVote_Invalid(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	challenger := f.addUser(t, 300)

	c := &domain.Challenge{TargetClaimID: f.claimID, ChallengerID: challenger, Type: domain.ChallengeFactual}
	_ = f.svc.Create(ctx, c)
	voter := f.addUser(t, 300)

	if _, err := f.svc.CastVote(ctx, c.ID, voter, "maybe", ""); !errors.Is(err, ErrInvalidVote) {
		t.Fatalf("expected ErrInvalidVote for bad value, got %v", err)
	}

	banned := &domain.UserReputation{ReputationScore: 300, Banned: true}
	f.reps.add(banned)
	if _, err := f.svc.CastVote(ctx, c.ID, banned.UserID, "support", ""); !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned, got %v", err)
	}
}

func TestChallengeService_CastVote_AfterResolve(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	challenger := f.addUser(t, 300)

	c := &domain.Challenge{TargetClaimID: f.claimID, ChallengerID: challenger, Type: domain.ChallengeFactual}
	_ = f.svc.Create(ctx, c)
	f.expireVoting(c.ID)
	if _, err := f.svc.Resolve(ctx, c.ID, nil); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	voter := f.addUser(t, 300)
	_, err := f.svc.CastVote(ctx, c.ID, voter, "support", "")
	if !errors.Is(err, ErrInvalidVote) {
		t.Fatalf("expected ErrInvalidVote after resolution, got %v", err)
	}
}

func TestChallengeService_Resolve_BeforeDeadline(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	challenger := f.addUser(t, 300)

	c := &domain.Challenge{TargetClaimID: f.claimID, ChallengerID: challenger, Type: domain.ChallengeFactual}
	_ = f.svc.Create(ctx, c)

	if _, err := f.svc.Resolve(ctx, c.ID, nil); !errors.Is(err, ErrVotingOpen) {
		t.Fatalf("expected ErrVotingOpen, got %v", err)
	}

	// A forcing resolver may close early.
	resolverID := uuid.New()
	resolved, err := f.svc.Resolve(ctx, c.ID, &resolverID)
	if err != nil {
		t.Fatalf("expected forced resolve to succeed, got %v", err)
	}
	if resolved.Status != domain.ChallengeResolved {
		t.Fatalf("expected resolved status, got %s", resolved.Status)
	}
}

func TestChallengeService_Resolve_Accepted(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	challenger := f.addUser(t, 300)

	c := &domain.Challenge{TargetClaimID: f.claimID, ChallengerID: challenger, Type: domain.ChallengeFactual}
	_ = f.svc.Create(ctx, c)

	// Weighted support of 6.5 against 3.5 tallies to 0.65.
	for _, score := range []int{1500, 1500, 300, 50} {
		_, _ = f.svc.CastVote(ctx, c.ID, f.addUser(t, score), "support", "")
	}
	for _, score := range []int{1500, 300} {
		_, _ = f.svc.CastVote(ctx, c.ID, f.addUser(t, score), "reject", "")
	}

	f.expireVoting(c.ID)
	resolved, err := f.svc.Resolve(ctx, c.ID, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resolved.Resolution == nil || *resolved.Resolution != domain.ResolutionAccepted {
		t.Fatalf("expected accepted resolution, got %v", resolved.Resolution)
	}
	if math.Abs(resolved.VeracityImpact-(-0.195)) > 1e-9 {
		t.Fatalf("expected veracity impact -0.195, got %v", resolved.VeracityImpact)
	}

	// The accepted outcome credits the challenger.
	u, _ := f.reps.Get(ctx, challenger)
	if u.ReputationScore != 310 || u.ChallengesAccepted != 1 {
		t.Fatalf("expected +10 and one accepted, got score=%d accepted=%d", u.ReputationScore, u.ChallengesAccepted)
	}

	// With the challenge closed the claim recovers to neutral.
	claim, _ := f.claims.GetByID(ctx, f.claimID)
	if math.Abs(claim.CurrentScore-0.5) > 1e-9 {
		t.Fatalf("expected score back at 0.5, got %v", claim.CurrentScore)
	}
}

func TestChallengeService_Resolve_Idempotent(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	challenger := f.addUser(t, 300)

	c := &domain.Challenge{TargetClaimID: f.claimID, ChallengerID: challenger, Type: domain.ChallengeFactual}
	_ = f.svc.Create(ctx, c)
	f.expireVoting(c.ID)

	first, err := f.svc.Resolve(ctx, c.ID, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := f.svc.Resolve(ctx, c.ID, nil)
	if err != nil {
		t.Fatalf("expected second resolve to be a no-op, got %v", err)
	}
	if *first.Resolution != *second.Resolution || first.VeracityImpact != second.VeracityImpact {
		t.Fatal("expected identical recorded outcome on repeat resolve")
	}

	// The challenger's counters moved exactly once.
	u, _ := f.reps.Get(ctx, challenger)
	if u.ChallengesAccepted+u.ChallengesRejected != 1 {
		t.Fatalf("expected a single resolution outcome, got %d", u.ChallengesAccepted+u.ChallengesRejected)
	}
}

func TestResolveOutcome(t *testing.T) {
	tests := []struct {
		name       string
		supportPct float64
		threshold  float64
		maxImpact  float64
		want       domain.ChallengeResolution
		wantImpact float64
	}{
		{"accepted at threshold", 0.6, 0.6, 0.3, domain.ResolutionAccepted, -0.18},
		{"accepted above threshold", 0.65, 0.6, 0.3, domain.ResolutionAccepted, -0.195},
		{"partial above half threshold", 0.5, 0.6, 0.3, domain.ResolutionPartiallyAccepted, -0.075},
		{"partial at half threshold", 0.3, 0.6, 0.3, domain.ResolutionPartiallyAccepted, -0.045},
		{"rejected below half threshold", 0.29, 0.6, 0.3, domain.ResolutionRejected, 0},
		{"rejected with no support", 0, 0.6, 0.3, domain.ResolutionRejected, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolution, impact := resolveOutcome(tt.supportPct, tt.threshold, tt.maxImpact)
			if resolution != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, resolution)
			}
			if math.Abs(impact-tt.wantImpact) > 1e-9 {
				t.Fatalf("expected impact %v, got %v", tt.wantImpact, impact)
			}
		})
	}
}
