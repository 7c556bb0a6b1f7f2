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

type EvidenceHandler struct {
	svc *service.EvidenceService
}

func NewEvidenceHandler(svc *service.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{svc: svc}
}

type evidenceRequest struct {
	TargetClaimID     string  `json:"target_claim_id"`
	Kind              string  `json:"kind"`
	BaseWeight        float64 `json:"base_weight"`
	Confidence        float64 `json:"confidence"`
	TemporalRelevance float64 `json:"temporal_relevance"`
	SourceID          string  `json:"source_id"`
	PeerReviewStatus  string  `json:"peer_review_status,omitempty"`
	Verified          bool    `json:"verified"`
}

func (h *EvidenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req evidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claimID, err := uuid.Parse(req.TargetClaimID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target_claim_id")
		return
	}
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid source_id")
		return
	}

	e := &domain.Evidence{
		TargetClaimID:     claimID,
		Kind:              domain.EvidenceKind(req.Kind),
		BaseWeight:        req.BaseWeight,
		Confidence:        req.Confidence,
		TemporalRelevance: req.TemporalRelevance,
		SourceID:          sourceID,
		PeerReviewStatus:  domain.PeerReviewStatus(req.PeerReviewStatus),
		Verified:          req.Verified,
	}

	if err := h.svc.Create(r.Context(), e); err != nil {
		writeEvidenceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EvidenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid evidence id")
		return
	}

	var req evidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e := &domain.Evidence{
		ID:                id,
		Kind:              domain.EvidenceKind(req.Kind),
		BaseWeight:        req.BaseWeight,
		Confidence:        req.Confidence,
		TemporalRelevance: req.TemporalRelevance,
		PeerReviewStatus:  domain.PeerReviewStatus(req.PeerReviewStatus),
		Verified:          req.Verified,
	}

	if err := h.svc.Update(r.Context(), e); err != nil {
		writeEvidenceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EvidenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid evidence id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeEvidenceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeEvidenceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEvidence):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrClaimNotFound),
		errors.Is(err, service.ErrSourceNotFound),
		errors.Is(err, service.ErrEvidenceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyLocked):
		writeError(w, http.StatusConflict, "claim is locked")
	default:
		writeError(w, http.StatusInternalServerError, "evidence operation failed")
	}
}
