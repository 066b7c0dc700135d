package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-backoffice/internal/employees"
	"ms-backoffice/internal/employees/db"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/utils"
)

const maxUploadSize = 32 << 20

type Handler struct {
	Service *employees.Service
	Logger  *logger.Logger
}

func NewHandler(service *employees.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

type employeeCreateRequest struct {
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Patronymic string `json:"patronymic"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

// CreateEmployee handles POST /api/employees. Multipart bodies may carry
// reference photos under the "photos" field; JSON bodies create the employee
// without photos.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeCreateRequest
	multipart := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
	if multipart {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			http.Error(w, "invalid multipart body", http.StatusBadRequest)
			return
		}
		req.Name = r.FormValue("name")
		req.Surname = r.FormValue("surname")
		req.Patronymic = r.FormValue("patronymic")
		req.Department = r.FormValue("department")
		req.Position = r.FormValue("position")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Surname == "" {
		http.Error(w, "name and surname are required", http.StatusBadRequest)
		return
	}

	employee, err := h.Service.CreateEmployee(r.Context(), employees.EmployeeCreate{
		Name:       req.Name,
		Surname:    req.Surname,
		Patronymic: req.Patronymic,
		Department: req.Department,
		Position:   req.Position,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if multipart && r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["photos"] {
			file, err := header.Open()
			if err != nil {
				http.Error(w, "invalid photo file", http.StatusBadRequest)
				return
			}
			_, err = h.Service.AddPhoto(r.Context(), employee.ID, header.Filename, file)
			file.Close()
			if err != nil {
				h.writeServiceError(w, err)
				return
			}
		}
		if len(r.MultipartForm.File["photos"]) > 0 {
			if employee, err = h.Service.GetEmployee(r.Context(), employee.ID); err != nil {
				h.writeServiceError(w, err)
				return
			}
		}
	}
	writeJSON(w, http.StatusCreated, employee)
}

// GetEmployee handles GET /api/employees/{employeeId}.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.employeeID(w, r)
	if !ok {
		return
	}
	employee, err := h.Service.GetEmployee(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

// ListEmployees handles GET /api/employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := db.ListFilter{
		Search:     query.Get("search"),
		Department: query.Get("department"),
		Position:   query.Get("position"),
		Page:       queryInt(query.Get("page"), 1),
		PageSize:   queryInt(query.Get("page_size"), 20),
	}

	result, err := h.Service.ListEmployees(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type employeeUpdateRequest struct {
	Name       *string `json:"name"`
	Surname    *string `json:"surname"`
	Patronymic *string `json:"patronymic"`
	Department *string `json:"department"`
	Position   *string `json:"position"`
}

// UpdateEmployee handles PATCH /api/employees/{employeeId}.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.employeeID(w, r)
	if !ok {
		return
	}

	var req employeeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	employee, err := h.Service.UpdateEmployee(r.Context(), id, employees.EmployeeUpdate{
		Name:       req.Name,
		Surname:    req.Surname,
		Patronymic: req.Patronymic,
		Department: req.Department,
		Position:   req.Position,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

// DeleteEmployee handles DELETE /api/employees/{employeeId}.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.employeeID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteEmployee(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("employee deleted", nil))
}

// ListDepartments handles GET /api/employees/departments.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Service.ListDepartments(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, departments)
}

// ListPositions handles GET /api/employees/positions.
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.Service.ListPositions(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

// AddPhoto handles POST /api/employees/{employeeId}/photos.
func (h *Handler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := h.employeeID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "photo file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	photo, err := h.Service.AddPhoto(r.Context(), id, header.Filename, file)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

// DeletePhoto handles DELETE /api/employees/{employeeId}/photos/{photoId}.
func (h *Handler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := h.employeeID(w, r)
	if !ok {
		return
	}
	photoID, err := strconv.ParseInt(chi.URLParam(r, "photoId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid photo id", http.StatusBadRequest)
		return
	}
	if err := h.Service.DeletePhoto(r.Context(), id, photoID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("photo deleted", nil))
}

// GetActivity handles GET /api/employees/{employeeId}/activity.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.employeeID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := db.ActivityFilter{
		Search:   query.Get("search"),
		Page:     queryInt(query.Get("page"), 1),
		PageSize: queryInt(query.Get("page_size"), 20),
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

	activity, err := h.Service.GetActivity(r.Context(), id, filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

// GetBadge handles GET /api/employees/{employeeId}/badge and answers with a
// PNG image.
func (h *Handler) GetBadge(w http.ResponseWriter, r *http.Request) {
	id, ok := h.employeeID(w, r)
	if !ok {
		return
	}
	png, err := h.Service.GenerateBadge(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) employeeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "employeeId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid employee id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, employees.ErrEmployeeNotFound):
		http.Error(w, "employee not found", http.StatusNotFound)
	case errors.Is(err, employees.ErrPhotoNotFound):
		http.Error(w, "photo not found", http.StatusNotFound)
	default:
		h.Logger.Error("API", fmt.Sprintf("Employee request failed: %v", err))
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
