package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/schoolmed/schoolmed-backend/internal/incident/domain"
	"github.com/schoolmed/schoolmed-backend/internal/incident/service"
	"github.com/schoolmed/schoolmed-backend/pkg/httputil"
	"github.com/schoolmed/schoolmed-backend/pkg/logger"
)

// IncidentHandler handles health incident endpoints
type IncidentHandler struct {
	service *service.IncidentService
	logger  *logger.Logger
}

// NewIncidentHandler creates a new incident handler
func NewIncidentHandler(svc *service.IncidentService, log *logger.Logger) *IncidentHandler {
	return &IncidentHandler{
		service: svc,
		logger:  log,
	}
}

// List lists incidents
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	status := domain.IncidentStatus(r.URL.Query().Get("status"))

	incidents, total, err := h.service.ListIncidents(r.Context(), page, perPage, status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, incidents, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// ListByStudent lists a student's incidents
func (h *IncidentHandler) ListByStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	incidents, err := h.service.ListByStudent(r.Context(), studentID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, incidents)
}

// Get gets an incident with its administrations
func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	incident, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, incident)
}

// Create records a new incident
func (h *IncidentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.RecordIncidentInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	incident, err := h.service.RecordIncident(r.Context(), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, incident)
}

// Resolve marks an incident as resolved
func (h *IncidentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Resolution string `json:"resolution" validate:"required,max=2000"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	incident, err := h.service.ResolveIncident(r.Context(), id, req.Resolution)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, incident)
}

// Administer records a medication administration for an incident
func (h *IncidentHandler) Administer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input service.AdministerMedicationInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	adm, err := h.service.AdministerMedication(r.Context(), id, input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, adm)
}
