package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/knograph/veracity/internal/domain"
	"github.com/knograph/veracity/internal/service"
)

type ReputationHandler struct {
	svc *service.ReputationService
}

func NewReputationHandler(svc *service.ReputationService) *ReputationHandler {
	return &ReputationHandler{svc: svc}
}

type reputationResponse struct {
	UserID              uuid.UUID             `json:"user_id"`
	Score               int                   `json:"score"`
	Tier                domain.ReputationTier `json:"tier"`
	VoteWeight          float64               `json:"vote_weight"`
	AccuracyRate        float64               `json:"accuracy_rate"`
	ChallengesSubmitted int                   `json:"challenges_submitted"`
	ChallengesAccepted  int                   `json:"challenges_accepted"`
	ChallengesRejected  int                   `json:"challenges_rejected"`
	ChallengesToday     int                   `json:"challenges_today"`
	Banned              bool                  `json:"banned"`
}

func (h *ReputationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	rep, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load reputation")
		return
	}

	writeJSON(w, http.StatusOK, reputationResponse{
		UserID:              rep.UserID,
		Score:               rep.ReputationScore,
		Tier:                rep.Tier(),
		VoteWeight:          rep.VoteWeight(),
		AccuracyRate:        rep.AccuracyRate(),
		ChallengesSubmitted: rep.ChallengesSubmitted,
		ChallengesAccepted:  rep.ChallengesAccepted,
		ChallengesRejected:  rep.ChallengesRejected,
		ChallengesToday:     rep.ChallengesToday,
		Banned:              rep.Banned,
	})
}
