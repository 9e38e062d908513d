package handlers

import (
	"net/http"
	"strconv"

	"github.com/cmclain4200/approcure/internal/api/dto"
	"github.com/cmclain4200/approcure/internal/api/validation"
	"github.com/cmclain4200/approcure/internal/budget"
	"github.com/cmclain4200/approcure/internal/projects"
)

type ProjectHandler struct {
	projects *projects.Service
	budget   *budget.Service
}

func NewProjectHandler(projects *projects.Service, budget *budget.Service) *ProjectHandler {
	return &ProjectHandler{projects: projects, budget: budget}
}

// List handles GET /api/v1/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	found, err := h.projects.List(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(found))
}

// Create handles POST /api/v1/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	project, err := h.projects.Create(r.Context(), identity(r), req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// Get handles GET /api/v1/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}

	project, err := h.projects.Get(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// SetBudget handles PUT /api/v1/projects/{id}/budget
func (h *ProjectHandler) SetBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}

	var req dto.SetBudgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	project, err := h.projects.SetMonthlyBudget(r.Context(), identity(r), id, *req.MonthlyBudget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Budget handles GET /api/v1/projects/{id}/budget
func (h *ProjectHandler) Budget(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}

	snap, err := h.budget.Snapshot(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// BudgetImpact handles GET /api/v1/projects/{id}/budget/impact?amount=
func (h *ProjectHandler) BudgetImpact(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}

	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil || !validation.IsValidAmount(amount) {
		writeValidation(w, map[string]string{"amount": "Amount must be a non-negative number"})
		return
	}

	result, err := h.budget.Impact(r.Context(), identity(r), id, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BudgetOverview handles GET /api/v1/budget
func (h *ProjectHandler) BudgetOverview(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.budget.Overview(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(snaps))
}

// FinanceRequirements handles GET /api/v1/projects/{id}/finance-requirements
func (h *ProjectHandler) FinanceRequirements(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}

	reqs, err := h.projects.FinanceRequirements(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// SetFinanceRequirements handles PUT /api/v1/projects/{id}/finance-requirements
func (h *ProjectHandler) SetFinanceRequirements(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}

	var req projects.FinanceRequirements
	if !decodeJSON(w, r, &req) {
		return
	}

	saved, err := h.projects.SetFinanceRequirements(r.Context(), identity(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// CostCodes handles GET /api/v1/cost-codes
func (h *ProjectHandler) CostCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.projects.CostCodes(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(codes))
}

// CreateCostCode handles POST /api/v1/cost-codes
func (h *ProjectHandler) CreateCostCode(w http.ResponseWriter, r *http.Request) {
	var req dto.CostCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	code, err := h.projects.CreateCostCode(r.Context(), identity(r),
		validation.CleanText(req.Code, validation.MaxNameLength),
		validation.CleanText(req.Label, validation.MaxNameLength),
		validation.CleanText(req.Category, validation.MaxNameLength),
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

// Vendors handles GET /api/v1/vendors
func (h *ProjectHandler) Vendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.projects.Vendors(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(vendors))
}

// CreateVendor handles POST /api/v1/vendors
func (h *ProjectHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req dto.VendorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	vendor, err := h.projects.CreateVendor(r.Context(), identity(r), validation.CleanText(req.Name, validation.MaxNameLength))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vendor)
}
