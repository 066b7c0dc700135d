package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-backoffice/internal/catalog"
	"ms-backoffice/internal/catalog/db"
	"ms-backoffice/internal/logger"
)

type Handler struct {
	Service *catalog.Service
	Logger  *logger.Logger
}

func NewHandler(service *catalog.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// ListIngredients handles GET /api/ingredients.
func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.ListIngredients(r.Context(), searchFilter(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetIngredient handles GET /api/ingredients/{ingredientId}.
func (h *Handler) GetIngredient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "ingredientId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid ingredient id", http.StatusBadRequest)
		return
	}
	ingredient, err := h.Service.GetIngredient(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.ListTags(r.Context(), searchFilter(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type tagRequest struct {
	Name string `json:"name"`
}

type tagResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Created bool   `json:"created"`
}

// CreateTag handles POST /api/tags, resolving an existing tag by name or
// creating a new one.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	tag, created, err := h.Service.GetOrCreateTag(r.Context(), req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, tagResponse{ID: tag.ID, Name: tag.Name, Created: created})
}

// ListUnits handles GET /api/units.
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.Service.ListUnits(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrIngredientNotFound):
		http.Error(w, "ingredient not found", http.StatusNotFound)
	default:
		h.Logger.Error("API", fmt.Sprintf("Catalog request failed: %v", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func searchFilter(r *http.Request) db.SearchFilter {
	query := r.URL.Query()
	return db.SearchFilter{
		Query:    query.Get("q"),
		Page:     queryInt(query.Get("page"), 1),
		PageSize: queryInt(query.Get("page_size"), 20),
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
