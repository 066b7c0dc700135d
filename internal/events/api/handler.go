package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-backoffice/internal/events"
	"ms-backoffice/internal/events/db"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/utils"
)

const maxUploadSize = 512 << 20 // recordings can run long

type Handler struct {
	Service *events.Service
	Logger  *logger.Logger
}

func NewHandler(service *events.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// CreateEvent handles POST /api/events.
// Multipart fields: name, start_datetime, end_datetime (dd.mm.yyyy hh:mm),
// repeated employee_ids, optional video file.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	input := events.EventCreate{Name: r.FormValue("name")}
	if input.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	var err error
	if input.StartDatetime, err = utils.ParseClientDate(r.FormValue("start_datetime")); err != nil {
		http.Error(w, "start_datetime must be in dd.mm.yyyy hh:mm format", http.StatusBadRequest)
		return
	}
	if input.EndDatetime, err = utils.ParseClientDate(r.FormValue("end_datetime")); err != nil {
		http.Error(w, "end_datetime must be in dd.mm.yyyy hh:mm format", http.StatusBadRequest)
		return
	}
	if input.StartDatetime.IsZero() || input.EndDatetime.IsZero() {
		http.Error(w, "start_datetime and end_datetime are required", http.StatusBadRequest)
		return
	}
	if !input.EndDatetime.After(input.StartDatetime) {
		http.Error(w, "end_datetime must be after start_datetime", http.StatusBadRequest)
		return
	}

	for _, raw := range r.Form["employee_ids"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "employee_ids must be integers", http.StatusBadRequest)
			return
		}
		input.EmployeeIDs = append(input.EmployeeIDs, id)
	}

	var video *events.Upload
	if file, header, err := r.FormFile("video"); err == nil {
		defer file.Close()
		video = &events.Upload{Filename: header.Filename, Reader: file}
	}

	event, err := h.Service.CreateEvent(r.Context(), input, video)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /api/events/{eventId}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	event, err := h.Service.GetEvent(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ListEvents handles GET /api/events with filter and pagination query params.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := db.ListFilter{
		Search:             query.Get("search"),
		EmployeeName:       query.Get("name"),
		EmployeeSurname:    query.Get("surname"),
		EmployeePatronymic: query.Get("patronymic"),
		Department:         query.Get("department"),
		Position:           query.Get("position"),
		Page:               queryInt(query.Get("page"), 1),
		PageSize:           queryInt(query.Get("page_size"), 20),
	}

	var err error
	if filter.DateFrom, err = utils.ParseClientDate(query.Get("date_from")); err != nil {
		http.Error(w, "date_from must be in dd.mm.yyyy hh:mm format", http.StatusBadRequest)
		return
	}
	if filter.DateTo, err = utils.ParseClientDate(query.Get("date_to")); err != nil {
		http.Error(w, "date_to must be in dd.mm.yyyy hh:mm format", http.StatusBadRequest)
		return
	}

	result, err := h.Service.ListEvents(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type eventUpdateRequest struct {
	Name          *string `json:"name"`
	StartDatetime *string `json:"start_datetime"`
	EndDatetime   *string `json:"end_datetime"`
}

// UpdateEvent handles PATCH /api/events/{eventId}.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	var req eventUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	update := events.EventUpdate{Name: req.Name}
	if req.StartDatetime != nil {
		start, err := utils.ParseClientDate(*req.StartDatetime)
		if err != nil {
			http.Error(w, "start_datetime must be in dd.mm.yyyy hh:mm format", http.StatusBadRequest)
			return
		}
		update.StartDatetime = &start
	}
	if req.EndDatetime != nil {
		end, err := utils.ParseClientDate(*req.EndDatetime)
		if err != nil {
			http.Error(w, "end_datetime must be in dd.mm.yyyy hh:mm format", http.StatusBadRequest)
			return
		}
		update.EndDatetime = &end
	}

	event, err := h.Service.UpdateEvent(r.Context(), id, update)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/{eventId}.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteEvent(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("event deleted", nil))
}

// AddParticipant handles POST /api/events/{eventId}/participants/{employeeId}.
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "employeeId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid employee id", http.StatusBadRequest)
		return
	}
	if err := h.Service.AddParticipant(r.Context(), eventID, employeeID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("participant added", nil))
}

// RemoveParticipant handles DELETE /api/events/{eventId}/participants/{employeeId}.
func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "employeeId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid employee id", http.StatusBadRequest)
		return
	}
	if err := h.Service.RemoveParticipant(r.Context(), eventID, employeeID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("participant removed", nil))
}

// ReplaceVideo handles PUT /api/events/{eventId}/video.
func (h *Handler) ReplaceVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		http.Error(w, "video file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	event, err := h.Service.ReplaceVideo(r.Context(), id, events.Upload{Filename: header.Filename, Reader: file})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// StartAnalysis handles POST /api/events/{eventId}/analysis.
func (h *Handler) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	// Detection can outlive the HTTP request; cap the upload independently.
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	result, err := h.Service.StartAnalysis(ctx, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, events.ErrEventNotFound):
		http.Error(w, "event not found", http.StatusNotFound)
	case errors.Is(err, events.ErrEmployeeNotFound):
		http.Error(w, "employee not found", http.StatusNotFound)
	case errors.Is(err, events.ErrParticipantNotFound):
		http.Error(w, "employee is not a participant", http.StatusNotFound)
	case errors.Is(err, events.ErrParticipantExists):
		http.Error(w, "employee is already a participant", http.StatusConflict)
	case errors.Is(err, events.ErrNoVideo):
		http.Error(w, "event has no video to analyze", http.StatusBadRequest)
	default:
		h.Logger.Error("API", fmt.Sprintf("Event request failed: %v", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
