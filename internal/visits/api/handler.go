package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/utils"
	"ms-backoffice/internal/visits"
)

const maxUploadSize = 32 << 20 // 32 MB per detection frame

type Handler struct {
	Service *visits.Service
	Logger  *logger.Logger
}

func NewHandler(service *visits.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// EmployeeVisit handles POST /api/ml/employee_visit.
// Multipart fields: event_id, order, sending_time, employee_id,
// visit_time (seconds from interval start), file.
func (h *Handler) EmployeeVisit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	visit := visits.EmployeeVisit{}
	var err error
	if visit.EventID, err = formInt64(r, "event_id"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if visit.Order, err = formInt(r, "order"); err != nil || visit.Order < 0 {
		http.Error(w, "order must be a non-negative integer", http.StatusBadRequest)
		return
	}
	if visit.SendingTime, err = formTime(r, "sending_time"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if visit.EmployeeID, err = formInt64(r, "employee_id"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	visitSeconds, err := formInt(r, "visit_time")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	visit.VisitTime = time.Duration(visitSeconds) * time.Second

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "photo file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	h.Logger.LogVisit("INGEST", visit.EventID, visit.Order,
		fmt.Sprintf("employee %d spotted at +%s", visit.EmployeeID, visit.VisitTime))

	if _, err := h.Service.RecordEmployeeVisit(r.Context(), visit, header.Filename, file); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("visit recorded", nil))
}

// UnregisteredVisit handles POST /api/ml/unregistered_visit.
// Multipart fields: event_id, order, sending_time, max_unregistered, file.
func (h *Handler) UnregisteredVisit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	visit := visits.UnregisteredVisit{}
	var err error
	if visit.EventID, err = formInt64(r, "event_id"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if visit.Order, err = formInt(r, "order"); err != nil || visit.Order < 0 {
		http.Error(w, "order must be a non-negative integer", http.StatusBadRequest)
		return
	}
	if visit.SendingTime, err = formTime(r, "sending_time"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if visit.Count, err = formInt(r, "max_unregistered"); err != nil || visit.Count < 0 {
		http.Error(w, "max_unregistered must be a non-negative integer", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "photo file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	h.Logger.LogVisit("INGEST", visit.EventID, visit.Order,
		fmt.Sprintf("%d unregistered persons in frame", visit.Count))

	if _, err := h.Service.RecordUnregisteredVisit(r.Context(), visit, header.Filename, file); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("visit recorded", nil))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, visits.ErrEventNotFound):
		http.Error(w, "event not found", http.StatusNotFound)
	case errors.Is(err, visits.ErrEmployeeNotFound):
		http.Error(w, "employee not found", http.StatusNotFound)
	default:
		h.Logger.Error("API", fmt.Sprintf("Visit ingestion failed: %v", err))
		http.Error(w, "failed to record visit: "+err.Error(), http.StatusInternalServerError)
	}
}

func formInt64(r *http.Request, field string) (int64, error) {
	value, err := strconv.ParseInt(r.FormValue(field), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", field)
	}
	return value, nil
}

func formInt(r *http.Request, field string) (int, error) {
	value, err := strconv.Atoi(r.FormValue(field))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", field)
	}
	return value, nil
}

func formTime(r *http.Request, field string) (time.Time, error) {
	raw := r.FormValue(field)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s must be a datetime", field)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
