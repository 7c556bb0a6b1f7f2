package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/knograph/veracity/internal/service"
)

type SourceHandler struct {
	svc *service.CredibilityService
}

func NewSourceHandler(svc *service.CredibilityService) *SourceHandler {
	return &SourceHandler{svc: svc}
}

func (h *SourceHandler) RecomputeCredibility(w http.ResponseWriter, r *http.Request) {
	sourceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid source id")
		return
	}

	src, err := h.svc.RecomputeSource(r.Context(), sourceID)
	if err != nil {
		if errors.Is(err, service.ErrSourceNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to recompute credibility")
		return
	}
	writeJSON(w, http.StatusOK, src)
}
