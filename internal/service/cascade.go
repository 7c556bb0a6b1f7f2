package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knograph/veracity/internal/domain"
	"github.com/knograph/veracity/internal/metrics"
)

const (
	DefaultCascadeMaxDepth    = 10
	DefaultCascadeMaxAttempts = 3
	DefaultCascadeQueueSize   = 1024

	cascadeJobTimeout = 30 * time.Second
	cascadeRetryDelay = 500 * time.Millisecond
)

type cascadeJob struct {
	claimID uuid.UUID
	origin  uuid.UUID
	depth   int
	attempt int
	// visited is shared by every job of one propagation run; only the
	// single worker goroutine mutates it after the run is enqueued.
	visited map[uuid.UUID]struct{}
}

// CascadeService propagates score recomputation to dependent claims
// asynchronously, so the triggering transaction stays short and cross-claim
// lock ordering never deadlocks. A per-run visited set plus a depth bound
// keep propagation terminating on cyclic claim graphs.
type CascadeService struct {
	claimStore   domain.ClaimStore
	historyStore domain.HistoryStore
	veracity     *VeracityService
	logger       *zap.Logger

	maxDepth    int
	maxAttempts int

	queue  chan cascadeJob
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewCascadeService(cs domain.ClaimStore, hs domain.HistoryStore, logger *zap.Logger) *CascadeService {
	return &CascadeService{
		claimStore:   cs,
		historyStore: hs,
		logger:       logger,
		maxDepth:     DefaultCascadeMaxDepth,
		maxAttempts:  DefaultCascadeMaxAttempts,
		queue:        make(chan cascadeJob, DefaultCascadeQueueSize),
		stopCh:       make(chan struct{}),
	}
}

// SetVeracity wires the orchestrator. Set once before Start.
func (s *CascadeService) SetVeracity(v *VeracityService) {
	s.veracity = v
}

func (s *CascadeService) SetMaxDepth(d int) {
	if d > 0 {
		s.maxDepth = d
	}
}

func (s *CascadeService) SetMaxAttempts(a int) {
	if a > 0 {
		s.maxAttempts = a
	}
}

func (s *CascadeService) SetQueueSize(n int) {
	if n > 0 {
		s.queue = make(chan cascadeJob, n)
	}
}

func (s *CascadeService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("cascade worker started",
			zap.Int("max_depth", s.maxDepth),
			zap.Int("max_attempts", s.maxAttempts))

		for {
			select {
			case job := <-s.queue:
				s.process(job)
			case <-s.stopCh:
				s.logger.Info("cascade worker stopped")
				return
			}
		}
	}()
}

func (s *CascadeService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Propagate starts a cascade run from the claim whose score just changed.
// The origin itself is marked visited so a cycle cannot recompute it again
// within the same run.
func (s *CascadeService) Propagate(origin uuid.UUID) {
	visited := map[uuid.UUID]struct{}{origin: {}}
	s.enqueueDependents(origin, origin, 0, visited)
}

func (s *CascadeService) enqueueDependents(claimID, origin uuid.UUID, depth int, visited map[uuid.UUID]struct{}) {
	if depth >= s.maxDepth {
		s.logger.Warn("cascade depth bound reached",
			zap.String("claim_id", claimID.String()),
			zap.String("origin", origin.String()),
			zap.Int("depth", depth))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cascadeJobTimeout)
	defer cancel()

	dependents, err := s.claimStore.ListDependents(ctx, claimID)
	if err != nil {
		s.logger.Error("failed to list dependent claims",
			zap.String("claim_id", claimID.String()),
			zap.Error(err))
		return
	}

	for _, dep := range dependents {
		if _, seen := visited[dep]; seen {
			continue
		}
		visited[dep] = struct{}{}
		s.push(cascadeJob{
			claimID: dep,
			origin:  origin,
			depth:   depth + 1,
			visited: visited,
		})
	}
}

func (s *CascadeService) push(job cascadeJob) {
	select {
	case s.queue <- job:
	default:
		metrics.CascadeDroppedTotal.Inc()
		s.logger.Warn("cascade queue full, dropping job",
			zap.String("claim_id", job.claimID.String()),
			zap.String("origin", job.origin.String()))

		// A dropped job is lost work, same as an exhausted retry: it
		// lands in the claim's history so operators see it there, not
		// only in the logs.
		ctx, cancel := context.WithTimeout(context.Background(), cascadeJobTimeout)
		defer cancel()
		s.appendFailureEntry(ctx, job)
	}
}

func (s *CascadeService) process(job cascadeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), cascadeJobTimeout)
	defer cancel()

	_, err := s.veracity.recomputeOnce(ctx, job.claimID, domain.ReasonCascade, domain.EntityClaim, job.origin)
	switch {
	case err == nil:
		metrics.CascadeDepth.Observe(float64(job.depth))
		s.enqueueDependents(job.claimID, job.origin, job.depth, job.visited)

	case errors.Is(err, ErrAlreadyLocked), errors.Is(err, ErrClaimNotFound):
		// Terminal for this branch; the committed score of the origin is
		// unaffected.
		s.logger.Debug("cascade skipped claim",
			zap.String("claim_id", job.claimID.String()),
			zap.Error(err))

	default:
		job.attempt++
		if job.attempt < s.maxAttempts {
			// Re-enqueue on a timer instead of sleeping in the worker,
			// so one flaky claim does not stall every queued job behind
			// it.
			delay := cascadeRetryDelay * time.Duration(job.attempt)
			time.AfterFunc(delay, func() {
				select {
				case <-s.stopCh:
				default:
					s.push(job)
				}
			})
			return
		}
		s.recordFailure(ctx, job, err)
	}
}

// recordFailure surfaces an exhausted cascade retry in the score history so
// operators see it instead of it vanishing into logs.
func (s *CascadeService) recordFailure(ctx context.Context, job cascadeJob, cause error) {
	metrics.CascadeFailuresTotal.Inc()
	s.logger.Error("cascade recompute failed after retries",
		zap.String("claim_id", job.claimID.String()),
		zap.String("origin", job.origin.String()),
		zap.Int("attempts", job.attempt),
		zap.Error(cause))

	s.appendFailureEntry(ctx, job)
}

func (s *CascadeService) appendFailureEntry(ctx context.Context, job cascadeJob) {
	entry := &domain.ScoreHistoryEntry{
		ClaimID:              job.claimID,
		Reason:               domain.ReasonRecomputeFailed,
		TriggeringEntityType: domain.EntityClaim,
		TriggeringEntityID:   job.origin,
	}
	if err := s.historyStore.Append(ctx, entry); err != nil {
		s.logger.Error("failed to record cascade failure",
			zap.String("claim_id", job.claimID.String()),
			zap.Error(err))
	}
}
