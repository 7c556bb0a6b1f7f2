package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/knograph/veracity/internal/api/handlers"
	mw "github.com/knograph/veracity/internal/api/middleware"
	"github.com/knograph/veracity/internal/config"
	"github.com/knograph/veracity/internal/domain"
	"github.com/knograph/veracity/internal/service"
	"github.com/knograph/veracity/internal/store"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Cascade   *service.CascadeService
	Scheduler *cron.Cron
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	claimStore := store.NewClaimStore(db)
	evidenceStore := store.NewEvidenceStore(db)
	sourceStore := store.NewSourceStore(db)
	challengeStore := store.NewChallengeStore(db)
	reputationStore := store.NewReputationStore(db)
	historyStore := store.NewHistoryStore(db)

	// Services
	consensusSvc := service.NewConsensusService(evidenceStore, sourceStore, logger)
	veracitySvc := service.NewVeracityService(claimStore, challengeStore, historyStore, consensusSvc, logger)
	cascadeSvc := service.NewCascadeService(claimStore, historyStore, logger)
	cascadeSvc.SetMaxDepth(config.CascadeMaxDepth())
	cascadeSvc.SetQueueSize(config.CascadeQueueSize())
	cascadeSvc.SetMaxAttempts(config.CascadeMaxAttempts())
	credibilitySvc := service.NewCredibilityService(sourceStore, logger)
	reputationSvc := service.NewReputationService(reputationStore, logger)
	evidenceSvc := service.NewEvidenceService(evidenceStore, claimStore, sourceStore, veracitySvc, logger)
	challengeSvc := service.NewChallengeService(challengeStore, claimStore, reputationSvc, veracitySvc, logger)

	// Wire the cascade worker and the veracity service together: recomputes
	// trigger propagation, and the worker recomputes dependents.
	veracitySvc.SetCascade(cascadeSvc)
	cascadeSvc.SetVeracity(veracitySvc)

	// Handlers
	claimHandler := handlers.NewClaimHandler(veracitySvc)
	evidenceHandler := handlers.NewEvidenceHandler(evidenceSvc)
	challengeHandler := handlers.NewChallengeHandler(challengeSvc)
	reputationHandler := handlers.NewReputationHandler(reputationSvc)
	sourceHandler := handlers.NewSourceHandler(credibilitySvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Cascade:   cascadeSvc,
		Scheduler: cron.New(),
	}

	// Scheduled maintenance: nightly source credibility refresh and the
	// daily challenge counter reset.
	if _, err := app.Scheduler.AddFunc(config.CredibilityCron(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		credibilitySvc.RunBatch(ctx)
	}); err != nil {
		logger.Error("failed to schedule credibility batch", zap.Error(err))
	}
	if _, err := app.Scheduler.AddFunc(config.CounterResetCron(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		reputationSvc.ResetDailyCounters(ctx)
	}); err != nil {
		logger.Error("failed to schedule counter reset", zap.Error(err))
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Claims
		r.Route("/claims", func(r chi.Router) {
			r.Post("/", claimHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/score", claimHandler.GetScore)
				r.Get("/history", claimHandler.GetHistory)
				r.Post("/recompute", claimHandler.Recompute)
				r.Post("/lock", claimHandler.Lock)
				r.Post("/dependencies", claimHandler.AddDependency)
			})
		})

		// Evidence
		r.Route("/evidence", func(r chi.Router) {
			r.Post("/", evidenceHandler.Create)
			r.Put("/{id}", evidenceHandler.Update)
			r.Delete("/{id}", evidenceHandler.Delete)
		})

		// Challenges
		r.Route("/challenges", func(r chi.Router) {
			r.Post("/", challengeHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", challengeHandler.Get)
				r.Post("/votes", challengeHandler.CastVote)
				r.Post("/resolve", challengeHandler.Resolve)
			})
		})

		// Reputation
		r.Get("/users/{id}/reputation", reputationHandler.Get)

		// Sources
		r.Post("/sources/{id}/recompute-credibility", sourceHandler.RecomputeCredibility)
	})

	return app
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// Ensure stores satisfy the domain interfaces at compile time.
var (
	_ domain.ClaimStore      = (*store.ClaimStore)(nil)
	_ domain.EvidenceStore   = (*store.EvidenceStore)(nil)
	_ domain.SourceStore     = (*store.SourceStore)(nil)
	_ domain.ChallengeStore  = (*store.ChallengeStore)(nil)
	_ domain.ReputationStore = (*store.ReputationStore)(nil)
	_ domain.HistoryStore    = (*store.HistoryStore)(nil)
)
