package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/knograph/veracity/internal/domain"
	"github.com/knograph/veracity/internal/service"
)

type ChallengeHandler struct {
	svc *service.ChallengeService
}

func NewChallengeHandler(svc *service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{svc: svc}
}

type createChallengeRequest struct {
	TargetClaimID       string   `json:"target_claim_id"`
	ChallengerID        string   `json:"challenger_id"`
	Type                string   `json:"type"`
	AcceptanceThreshold *float64 `json:"acceptance_threshold,omitempty"`
	MaxImpact           *float64 `json:"max_impact,omitempty"`
}

func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claimID, err := uuid.Parse(req.TargetClaimID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target_claim_id")
		return
	}
	challengerID, err := uuid.Parse(req.ChallengerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid challenger_id")
		return
	}

	c := &domain.Challenge{
		TargetClaimID: claimID,
		ChallengerID:  challengerID,
		Type:          domain.ChallengeType(req.Type),
	}
	if req.AcceptanceThreshold != nil {
		c.AcceptanceThreshold = *req.AcceptanceThreshold
	}
	if req.MaxImpact != nil {
		c.MaxImpact = *req.MaxImpact
	}

	if err := h.svc.Create(r.Context(), c); err != nil {
		writeChallengeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid challenge id")
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeChallengeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type castVoteRequest struct {
	UserID    string `json:"user_id"`
	Value     string `json:"value"`
	Reasoning string `json:"reasoning,omitempty"`
}

func (h *ChallengeHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	challengeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid challenge id")
		return
	}

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	tally, err := h.svc.CastVote(r.Context(), challengeID, userID, req.Value, req.Reasoning)
	if err != nil {
		writeChallengeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

type resolveChallengeRequest struct {
	ResolverID string `json:"resolver_id,omitempty"`
}

func (h *ChallengeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	challengeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid challenge id")
		return
	}

	var req resolveChallengeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var resolverID *uuid.UUID
	if req.ResolverID != "" {
		id, err := uuid.Parse(req.ResolverID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid resolver_id")
			return
		}
		resolverID = &id
	}

	c, err := h.svc.Resolve(r.Context(), challengeID, resolverID)
	if err != nil {
		writeChallengeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeChallengeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidChallengeType),
		errors.Is(err, service.ErrInvalidThreshold),
		errors.Is(err, service.ErrInvalidVote):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBanned),
		errors.Is(err, service.ErrInsufficientReputation):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrRateLimitExceeded):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, service.ErrVotingOpen):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrChallengeNotFound),
		errors.Is(err, service.ErrClaimNotFound),
		errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyLocked):
		writeError(w, http.StatusConflict, "claim is locked")
	default:
		writeError(w, http.StatusInternalServerError, "challenge operation failed")
	}
}
