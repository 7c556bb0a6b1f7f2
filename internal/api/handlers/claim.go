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

type ClaimHandler struct {
	svc *service.VeracityService
}

func NewClaimHandler(svc *service.VeracityService) *ClaimHandler {
	return &ClaimHandler{svc: svc}
}

type createClaimRequest struct {
	ID string `json:"id,omitempty"`
}

func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claim := &domain.Claim{}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid claim id")
			return
		}
		claim.ID = id
	}

	if err := h.svc.RegisterClaim(r.Context(), claim); err != nil {
		if errors.Is(err, service.ErrClaimExists) {
			writeError(w, http.StatusConflict, "claim already exists: "+claim.ID.String())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create claim")
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

func (h *ClaimHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	claimID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	score, err := h.svc.GetScore(r.Context(), claimID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClaimNotFound):
			writeError(w, http.StatusNotFound, "claim not found")
		case errors.Is(err, service.ErrComputationInconsistency):
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to get score")
		}
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (h *ClaimHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	claimID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	entries, err := h.svc.History(r.Context(), claimID)
	if err != nil {
		if errors.Is(err, service.ErrClaimNotFound) {
			writeError(w, http.StatusNotFound, "claim not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"claim_id": claimID,
		"entries":  entries,
		"count":    len(entries),
	})
}

type recomputeRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *ClaimHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	claimID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	var req recomputeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	reason := domain.HistoryReason(req.Reason)
	if reason == "" {
		reason = domain.ReasonManual
	}

	claim, err := h.svc.Recompute(r.Context(), claimID, reason, domain.EntityClaim, claimID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClaimNotFound):
			writeError(w, http.StatusNotFound, "claim not found")
		case errors.Is(err, service.ErrAlreadyLocked):
			writeError(w, http.StatusConflict, "claim is locked")
		default:
			writeError(w, http.StatusInternalServerError, "recompute failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

type lockRequest struct {
	ApproverID string `json:"approver_id"`
}

func (h *ClaimHandler) Lock(w http.ResponseWriter, r *http.Request) {
	claimID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	approverID, err := uuid.Parse(req.ApproverID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid approver_id")
		return
	}

	claim, err := h.svc.PromoteToLocked(r.Context(), claimID, approverID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClaimNotFound):
			writeError(w, http.StatusNotFound, "claim not found")
		case errors.Is(err, service.ErrAlreadyLocked):
			writeError(w, http.StatusConflict, "claim is already locked")
		default:
			writeError(w, http.StatusInternalServerError, "failed to lock claim")
		}
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

type addDependencyRequest struct {
	EvidenceClaimID string `json:"evidence_claim_id"`
}

func (h *ClaimHandler) AddDependency(w http.ResponseWriter, r *http.Request) {
	claimID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	var req addDependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	evidenceClaimID, err := uuid.Parse(req.EvidenceClaimID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid evidence_claim_id")
		return
	}

	if err := h.svc.AddDependency(r.Context(), claimID, evidenceClaimID); err != nil {
		switch {
		case errors.Is(err, service.ErrClaimNotFound):
			writeError(w, http.StatusNotFound, "claim not found")
		case errors.Is(err, service.ErrComputationInconsistency):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}
