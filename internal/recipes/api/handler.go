package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-backoffice/internal/auth"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/models"
	"ms-backoffice/internal/recipes"
	"ms-backoffice/internal/recipes/db"
	"ms-backoffice/internal/utils"
)

const maxUploadSize = 64 << 20

type Handler struct {
	Service *recipes.Service
	Logger  *logger.Logger
}

func NewHandler(service *recipes.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// CreateRecipe handles POST /api/recipes.
// Multipart fields: data (JSON payload), optional preview file, optional
// stage photos named stage_{order_index}.
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	var input recipes.RecipeCreate
	if err := json.Unmarshal([]byte(r.FormValue("data")), &input); err != nil {
		http.Error(w, "data must be a valid JSON payload", http.StatusBadRequest)
		return
	}
	if input.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	var preview io.Reader
	if file, _, err := r.FormFile("preview"); err == nil {
		defer file.Close()
		preview = file
	}

	var stagePhotos []recipes.StagePhoto
	for name, headers := range r.MultipartForm.File {
		if !strings.HasPrefix(name, "stage_") || len(headers) == 0 {
			continue
		}
		orderIndex, err := strconv.Atoi(strings.TrimPrefix(name, "stage_"))
		if err != nil {
			http.Error(w, "stage photo fields must be named stage_{order_index}", http.StatusBadRequest)
			return
		}
		file, err := headers[0].Open()
		if err != nil {
			http.Error(w, "failed to read stage photo", http.StatusBadRequest)
			return
		}
		defer file.Close()
		stagePhotos = append(stagePhotos, recipes.StagePhoto{OrderIndex: orderIndex, Reader: file})
	}

	recipe, err := h.Service.CreateRecipe(r.Context(), auth.UserID(r.Context()), input, preview, stagePhotos)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

// GetRecipe handles GET /api/recipes/{recipeId}.
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}
	recipe, err := h.Service.GetRecipe(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// ListRecipes handles GET /api/recipes.
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := db.ListFilter{
		Query:         query.Get("q"),
		Difficulty:    models.Difficulty(query.Get("difficulty")),
		OnlyPublished: query.Get("published") == "true",
		Page:          queryInt(query.Get("page"), 1),
		PageSize:      queryInt(query.Get("page_size"), 20),
	}
	if raw := query.Get("max_calories"); raw != "" {
		maxCalories, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "max_calories must be a number", http.StatusBadRequest)
			return
		}
		filter.MaxCalories = maxCalories
	}
	for _, raw := range query["tag_ids"] {
		tagID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "tag_ids must be integers", http.StatusBadRequest)
			return
		}
		filter.TagIDs = append(filter.TagIDs, tagID)
	}

	result, err := h.Service.ListRecipes(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type publishRequest struct {
	Published bool `json:"published"`
}

// SetPublished handles POST /api/recipes/{recipeId}/publish.
func (h *Handler) SetPublished(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Service.SetPublished(r.Context(), id, auth.UserID(r.Context()), req.Published); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("recipe updated", nil))
}

// DeleteRecipe handles DELETE /api/recipes/{recipeId}.
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteRecipe(r.Context(), id, auth.UserID(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("recipe deleted", nil))
}

// ToggleLike handles POST /api/recipes/{recipeId}/like.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}
	liked, err := h.Service.ToggleLike(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

// ListComments handles GET /api/recipes/{recipeId}/comments.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}
	comments, err := h.Service.ListComments(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	Text    string `json:"text"`
	Rating  int    `json:"rating"`
	ReplyTo *int64 `json:"reply_to"`
}

// CreateComment handles POST /api/recipes/{recipeId}/comments.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	comment, err := h.Service.CreateComment(r.Context(), id, auth.UserID(r.Context()), req.Text, req.Rating, req.ReplyTo)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// UpdateComment handles PATCH /api/comments/{commentId}.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "commentId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid comment id", http.StatusBadRequest)
		return
	}
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	comment, err := h.Service.UpdateComment(r.Context(), id, auth.UserID(r.Context()), req.Text, req.Rating)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// DeleteComment handles DELETE /api/comments/{commentId}.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "commentId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid comment id", http.StatusBadRequest)
		return
	}
	if err := h.Service.DeleteComment(r.Context(), id, auth.UserID(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("comment deleted", nil))
}

func (h *Handler) recipeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "recipeId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid recipe id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recipes.ErrRecipeNotFound):
		http.Error(w, "recipe not found", http.StatusNotFound)
	case errors.Is(err, recipes.ErrIngredientNotFound):
		http.Error(w, "ingredient not found", http.StatusNotFound)
	case errors.Is(err, recipes.ErrUnitNotFound):
		http.Error(w, "unit of measurement not found", http.StatusNotFound)
	case errors.Is(err, recipes.ErrTagNotFound):
		http.Error(w, "tag not found", http.StatusNotFound)
	case errors.Is(err, recipes.ErrCommentNotFound):
		http.Error(w, "comment not found", http.StatusNotFound)
	case errors.Is(err, recipes.ErrCommentDeleted):
		http.Error(w, "comment is deleted", http.StatusBadRequest)
	case errors.Is(err, recipes.ErrForbidden):
		http.Error(w, "only the author may do that", http.StatusForbidden)
	default:
		h.Logger.Error("API", fmt.Sprintf("Recipe request failed: %v", err))
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
