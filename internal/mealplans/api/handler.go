package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-backoffice/internal/auth"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/mealplans"
	"ms-backoffice/internal/utils"
)

// dateLayout is the day-granular client format; times are not part of a
// day schedule.
const dateLayout = "02.01.2006"

type Handler struct {
	Service *mealplans.Service
	Logger  *logger.Logger
}

func NewHandler(service *mealplans.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

type planRequest struct {
	Name string `json:"name"`
}

// CreatePlan handles POST /api/mealplans.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	plan, err := h.Service.CreatePlan(r.Context(), auth.UserID(r.Context()), req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// ListPlans handles GET /api/mealplans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Service.ListPlans(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// GetPlan handles GET /api/mealplans/{planId}.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.planID(w, r)
	if !ok {
		return
	}
	plan, err := h.Service.GetPlan(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// RenamePlan handles PATCH /api/mealplans/{planId}.
func (h *Handler) RenamePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.planID(w, r)
	if !ok {
		return
	}
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	plan, err := h.Service.RenamePlan(r.Context(), id, auth.UserID(r.Context()), req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// DeletePlan handles DELETE /api/mealplans/{planId}.
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.planID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeletePlan(r.Context(), id, auth.UserID(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("meal plan deleted", nil))
}

// ListDays handles GET /api/mealplans/{planId}/days?from=&to= (dd.mm.yyyy).
func (h *Handler) ListDays(w http.ResponseWriter, r *http.Request) {
	id, ok := h.planID(w, r)
	if !ok {
		return
	}
	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "from must be in dd.mm.yyyy format", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "to must be in dd.mm.yyyy format", http.StatusBadRequest)
		return
	}

	days, err := h.Service.ListDays(r.Context(), id, auth.UserID(r.Context()), from, to)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

type addDayRecipeRequest struct {
	Date     string `json:"date"`
	RecipeID int64  `json:"recipe_id"`
	Order    int    `json:"order"`
}

// AddDayRecipe handles POST /api/mealplans/{planId}/recipes.
func (h *Handler) AddDayRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.planID(w, r)
	if !ok {
		return
	}
	var req addDayRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		http.Error(w, "date must be in dd.mm.yyyy format", http.StatusBadRequest)
		return
	}
	if req.Order < 1 {
		http.Error(w, "order must be a positive integer", http.StatusBadRequest)
		return
	}

	entry, err := h.Service.AddDayRecipe(r.Context(), id, auth.UserID(r.Context()), date, req.RecipeID, req.Order)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

type swapRecipeRequest struct {
	RecipeID int64 `json:"recipe_id"`
}

// SwapDayRecipe handles PATCH /api/mealplans/{planId}/recipes/{entryId}.
func (h *Handler) SwapDayRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.planID(w, r)
	if !ok {
		return
	}
	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	var req swapRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.Service.SwapDayRecipe(r.Context(), id, auth.UserID(r.Context()), entryID, req.RecipeID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// RemoveDayRecipe handles DELETE /api/mealplans/{planId}/recipes/{entryId}.
func (h *Handler) RemoveDayRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.planID(w, r)
	if !ok {
		return
	}
	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	if err := h.Service.RemoveDayRecipe(r.Context(), id, auth.UserID(r.Context()), entryID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("recipe removed", nil))
}

type reorderRequest struct {
	EntryIDs []int64 `json:"entry_ids"`
}

// ReorderDay handles POST /api/mealplans/{planId}/days/{dayId}/reorder.
func (h *Handler) ReorderDay(w http.ResponseWriter, r *http.Request) {
	id, ok := h.planID(w, r)
	if !ok {
		return
	}
	dayID, err := strconv.ParseInt(chi.URLParam(r, "dayId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid day id", http.StatusBadRequest)
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	day, err := h.Service.ReorderDay(r.Context(), id, auth.UserID(r.Context()), dayID, req.EntryIDs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (h *Handler) planID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "planId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid plan id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mealplans.ErrPlanNotFound):
		http.Error(w, "meal plan not found", http.StatusNotFound)
	case errors.Is(err, mealplans.ErrDayNotFound):
		http.Error(w, "day schedule not found", http.StatusNotFound)
	case errors.Is(err, mealplans.ErrDayRecipeNotFound):
		http.Error(w, "day recipe not found", http.StatusNotFound)
	case errors.Is(err, mealplans.ErrRecipeNotFound):
		http.Error(w, "recipe not found", http.StatusNotFound)
	case errors.Is(err, mealplans.ErrOrderTaken):
		http.Error(w, "order slot is already taken", http.StatusConflict)
	case errors.Is(err, mealplans.ErrBadReorder):
		http.Error(w, "reorder must list exactly the day's recipe ids", http.StatusBadRequest)
	default:
		h.Logger.Error("API", fmt.Sprintf("Meal plan request failed: %v", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
