package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/knograph/veracity/internal/domain"
	"github.com/knograph/veracity/internal/store"
)

// mockClaimStore implements domain.ClaimStore for testing. History entries
// written by ApplyScore and PromoteToLocked land in the shared history mock,
// mirroring the single-transaction behavior of the real store.
type mockClaimStore struct {
	mu      sync.Mutex
	claims  map[uuid.UUID]*domain.Claim
	deps    map[uuid.UUID][]uuid.UUID // evidence_claim_id -> dependents
	history *mockHistoryStore

	// applyFailures makes ApplyScore fail that many times per claim.
	applyFailures map[uuid.UUID]int
	applyErr      error
}

func newMockClaimStore(h *mockHistoryStore) *mockClaimStore {
	return &mockClaimStore{
		claims:        make(map[uuid.UUID]*domain.Claim),
		deps:          make(map[uuid.UUID][]uuid.UUID),
		history:       h,
		applyFailures: make(map[uuid.UUID]int),
	}
}

func (m *mockClaimStore) Create(ctx context.Context, c *domain.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if _, exists := m.claims[c.ID]; exists {
		return store.ErrDuplicate
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.claims[c.ID] = c
	return nil
}

func (m *mockClaimStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockClaimStore) ApplyScore(ctx context.Context, claimID uuid.UUID, newScore float64, reason domain.HistoryReason, trigType domain.EntityType, trigID uuid.UUID) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := m.applyFailures[claimID]; n > 0 {
		m.applyFailures[claimID] = n - 1
		if m.applyErr != nil {
			return 0, false, m.applyErr
		}
		return 0, false, errors.New("storage unavailable")
	}

	c, ok := m.claims[claimID]
	if !ok {
		return 0, false, store.ErrNotFound
	}
	if c.Locked {
		return 0, false, store.ErrClaimLocked
	}

	oldScore := c.CurrentScore
	if math.Abs(newScore-oldScore) <= domain.ScoreChangeEpsilon {
		return oldScore, false, nil
	}

	c.CurrentScore = newScore
	c.UpdatedAt = time.Now()
	m.history.append(&domain.ScoreHistoryEntry{
		ClaimID:              claimID,
		OldScore:             oldScore,
		NewScore:             newScore,
		Delta:                newScore - oldScore,
		Reason:               reason,
		TriggeringEntityType: trigType,
		TriggeringEntityID:   trigID,
	})
	return oldScore, true, nil
}

func (m *mockClaimStore) PromoteToLocked(ctx context.Context, claimID, approverID uuid.UUID) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.claims[claimID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if c.Locked {
		return 0, store.ErrClaimLocked
	}

	oldScore := c.CurrentScore
	c.CurrentScore = domain.LockedScore
	c.Locked = true
	m.history.append(&domain.ScoreHistoryEntry{
		ClaimID:              claimID,
		OldScore:             oldScore,
		NewScore:             domain.LockedScore,
		Delta:                domain.LockedScore - oldScore,
		Reason:               domain.ReasonPromotedToLocked,
		TriggeringEntityType: domain.EntityUser,
		TriggeringEntityID:   approverID,
	})
	return oldScore, nil
}

func (m *mockClaimStore) AddDependency(ctx context.Context, claimID, evidenceClaimID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if claimID == evidenceClaimID {
		return store.ErrCyclicDependency
	}
	for _, dep := range m.deps[claimID] {
		if dep == evidenceClaimID {
			return store.ErrCyclicDependency
		}
	}
	m.deps[evidenceClaimID] = append(m.deps[evidenceClaimID], claimID)
	return nil
}

func (m *mockClaimStore) ListDependents(ctx context.Context, claimID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.deps[claimID]...), nil
}

// addEdge wires a dependency without the cycle check, for tests exercising
// cascade termination on cyclic graphs.
func (m *mockClaimStore) addEdge(evidenceClaimID, dependentID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deps[evidenceClaimID] = append(m.deps[evidenceClaimID], dependentID)
}

// mockEvidenceStore implements domain.EvidenceStore for testing.
type mockEvidenceStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Evidence
}

func newMockEvidenceStore() *mockEvidenceStore {
	return &mockEvidenceStore{items: make(map[uuid.UUID]*domain.Evidence)}
}

func (m *mockEvidenceStore) Create(ctx context.Context, e *domain.Evidence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	if e.PeerReviewStatus == "" {
		e.PeerReviewStatus = domain.PeerReviewNone
	}
	if e.TemporalRelevance == 0 {
		e.TemporalRelevance = 1.0
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.items[e.ID] = e
	return nil
}

func (m *mockEvidenceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockEvidenceStore) Update(ctx context.Context, e *domain.Evidence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[e.ID]
	if !ok || existing.DeletedAt != nil {
		return store.ErrNotFound
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now()
	m.items[e.ID] = e
	return nil
}

func (m *mockEvidenceStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[id]
	if !ok || e.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now()
	e.DeletedAt = &now
	return nil
}

func (m *mockEvidenceStore) ListVerifiedByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []domain.Evidence
	for _, e := range m.items {
		if e.TargetClaimID == claimID && e.Verified && e.DeletedAt == nil {
			results = append(results, *e)
		}
	}
	return results, nil
}

// mockSourceStore implements domain.SourceStore for testing. Stats and
// alignment are settable directly rather than derived from evidence rows.
type mockSourceStore struct {
	mu        sync.Mutex
	sources   map[uuid.UUID]*domain.Source
	stats     map[uuid.UUID]*domain.SourceStats
	alignment map[uuid.UUID]float64
}

func newMockSourceStore() *mockSourceStore {
	return &mockSourceStore{
		sources:   make(map[uuid.UUID]*domain.Source),
		stats:     make(map[uuid.UUID]*domain.SourceStats),
		alignment: make(map[uuid.UUID]float64),
	}
}

func (m *mockSourceStore) Create(ctx context.Context, s *domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.sources[s.ID] = s
	return nil
}

func (m *mockSourceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSourceStore) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id := range m.sources {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockSourceStore) Stats(ctx context.Context, sourceID uuid.UUID) (*domain.SourceStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.stats[sourceID]; ok {
		cp := *st
		return &cp, nil
	}
	return &domain.SourceStats{}, nil
}

func (m *mockSourceStore) ConsensusAlignment(ctx context.Context, sourceID uuid.UUID) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.alignment[sourceID]; ok {
		return a, nil
	}
	return 0.5, nil
}

func (m *mockSourceStore) UpdateCredibility(ctx context.Context, sourceID uuid.UUID, stats *domain.SourceStats, credibility float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[sourceID]
	if !ok {
		return store.ErrNotFound
	}
	s.CredibilityScore = credibility
	s.TotalEvidenceCount = stats.TotalEvidence
	s.VerifiedEvidenceCount = stats.VerifiedEvidence
	s.ChallengedEvidenceCount = stats.ChallengedEvidence
	s.UpdatedAt = time.Now()
	return nil
}

// mockChallengeStore implements domain.ChallengeStore for testing.
type mockChallengeStore struct {
	mu         sync.Mutex
	challenges map[uuid.UUID]*domain.Challenge
	votes      map[uuid.UUID]map[uuid.UUID]*domain.Vote
}

func newMockChallengeStore() *mockChallengeStore {
	return &mockChallengeStore{
		challenges: make(map[uuid.UUID]*domain.Challenge),
		votes:      make(map[uuid.UUID]map[uuid.UUID]*domain.Vote),
	}
}

func (m *mockChallengeStore) Create(ctx context.Context, c *domain.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.Status = domain.ChallengeOpen
	c.CreatedAt = time.Now()
	m.challenges[c.ID] = c
	return nil
}

func (m *mockChallengeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockChallengeStore) CountOpenByClaim(ctx context.Context, claimID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.challenges {
		if c.TargetClaimID == claimID && c.Status == domain.ChallengeOpen {
			count++
		}
	}
	return count, nil
}

func (m *mockChallengeStore) Resolve(ctx context.Context, id uuid.UUID, resolution domain.ChallengeResolution, impact float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[id]
	if !ok || c.Status != domain.ChallengeOpen {
		return store.ErrNotFound
	}
	now := time.Now()
	c.Status = domain.ChallengeResolved
	c.Resolution = &resolution
	c.VeracityImpact = impact
	c.ResolvedAt = &now
	return nil
}

func (m *mockChallengeStore) UpsertVote(ctx context.Context, v *domain.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.votes[v.ChallengeID]; !ok {
		m.votes[v.ChallengeID] = make(map[uuid.UUID]*domain.Vote)
	}
	v.CastAt = time.Now()
	m.votes[v.ChallengeID][v.UserID] = v
	return nil
}

func (m *mockChallengeStore) Tally(ctx context.Context, challengeID uuid.UUID) (*domain.Tally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &domain.Tally{ChallengeID: challengeID}
	for _, v := range m.votes[challengeID] {
		t.VoteCount++
		if v.Value == domain.VoteAbstain {
			continue
		}
		t.TotalWeight += v.Weight
		if v.Value == domain.VoteSupport {
			t.SupportWeight += v.Weight
		}
	}
	if t.TotalWeight > 0 {
		t.SupportPct = t.SupportWeight / t.TotalWeight
	}
	return t, nil
}

// mockReputationStore implements domain.ReputationStore for testing.
type mockReputationStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.UserReputation

	// reserveErr makes ReserveChallengeSlot fail without touching state.
	reserveErr error
}

func newMockReputationStore() *mockReputationStore {
	return &mockReputationStore{users: make(map[uuid.UUID]*domain.UserReputation)}
}

func (m *mockReputationStore) add(u *domain.UserReputation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	if u.DailyLimit == 0 {
		u.DailyLimit = 5
	}
	m.users[u.UserID] = u
}

func (m *mockReputationStore) Get(ctx context.Context, userID uuid.UUID) (*domain.UserReputation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockReputationStore) ReserveChallengeSlot(ctx context.Context, userID uuid.UUID, minScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserveErr != nil {
		return m.reserveErr
	}
	u, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if u.Banned || u.ChallengesToday >= u.DailyLimit || u.ReputationScore < minScore {
		return store.ErrNotFound
	}
	u.ChallengesToday++
	u.ChallengesSubmitted++
	return nil
}

func (m *mockReputationStore) ApplyResolutionOutcome(ctx context.Context, userID uuid.UUID, accepted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if accepted {
		u.ReputationScore += 10
		u.ChallengesAccepted++
	} else {
		u.ChallengesRejected++
	}
	return nil
}

func (m *mockReputationStore) ResetDailyCounters(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.ChallengesToday != 0 {
			u.ChallengesToday = 0
			n++
		}
	}
	return n, nil
}

// mockHistoryStore implements domain.HistoryStore for testing.
type mockHistoryStore struct {
	mu      sync.Mutex
	entries []domain.ScoreHistoryEntry
}

func newMockHistoryStore() *mockHistoryStore {
	return &mockHistoryStore{}
}

func (m *mockHistoryStore) append(e *domain.ScoreHistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	e.ChangedAt = time.Now()
	m.entries = append(m.entries, *e)
}

func (m *mockHistoryStore) Append(ctx context.Context, e *domain.ScoreHistoryEntry) error {
	m.append(e)
	return nil
}

func (m *mockHistoryStore) GetByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.ScoreHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []domain.ScoreHistoryEntry
	for _, e := range m.entries {
		if e.ClaimID == claimID {
			results = append(results, e)
		}
	}
	return results, nil
}

func (m *mockHistoryStore) countByReason(claimID uuid.UUID, reason domain.HistoryReason) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.entries {
		if e.ClaimID == claimID && e.Reason == reason {
			count++
		}
	}
	return count
}
