package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/report"
)

type Handler struct {
	Service *report.Service
	Logger  *logger.Logger
}

func NewHandler(service *report.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// GetEventReport handles GET /api/report/event/{eventId}.
func (h *Handler) GetEventReport(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil {
		http.Error(w, "event id must be an integer", http.StatusBadRequest)
		return
	}

	response, err := h.Service.FetchEventStatistics(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, report.ErrEventNotFound) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetEventReport: %v", err))
		http.Error(w, "failed to build report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetEventReport: failed to encode response: %v", err))
	}
}
