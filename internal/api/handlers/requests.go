package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cmclain4200/approcure/internal/api/dto"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/requests"
	"github.com/google/uuid"
)

type RequestHandler struct {
	manager *requests.Manager
	now     func() time.Time
}

func NewRequestHandler(manager *requests.Manager) *RequestHandler {
	return &RequestHandler{manager: manager, now: time.Now}
}

// Create handles POST /api/v1/requests
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	created, err := h.manager.Create(r.Context(), identity(r), req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /api/v1/requests with optional project_id and status
// filters. status may repeat or be comma separated.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter requests.Filter
	if raw := q.Get("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeValidation(w, map[string]string{"project_id": "Invalid project ID"})
			return
		}
		filter.ProjectID = &id
	}
	for _, value := range q["status"] {
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, models.RequestStatus(s))
			}
		}
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	found, err := h.manager.List(r.Context(), identity(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	start, end := pagination.Window(len(found))
	data := found[start:end]
	if data == nil {
		data = []models.PurchaseRequest{}
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       data,
		Total:      int64(len(found)),
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: pagination.TotalPages(len(found)),
	})
}

// Get handles GET /api/v1/requests/{id}
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "request")
	if !ok {
		return
	}

	req, err := h.manager.Get(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// History handles GET /api/v1/requests/{id}/history
func (h *RequestHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "request")
	if !ok {
		return
	}

	entries, err := h.manager.History(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(entries))
}

// Submit handles POST /api/v1/requests/{id}/submit
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "request")
	if !ok {
		return
	}

	req, err := h.manager.Submit(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Approve handles POST /api/v1/requests/{id}/approve. The body is optional.
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "request")
	if !ok {
		return
	}

	var req dto.ApproveRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := h.manager.Approve(r.Context(), identity(r), id, req.CostCodeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Reject handles POST /api/v1/requests/{id}/reject
func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "request")
	if !ok {
		return
	}

	var req dto.RejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rejected, err := h.manager.Reject(r.Context(), identity(r), id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rejected)
}

// Purchase handles POST /api/v1/requests/{id}/purchase
func (h *RequestHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "request")
	if !ok {
		return
	}

	var req dto.PurchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	purchased, err := h.manager.MarkPurchased(r.Context(), identity(r), id, requests.PurchaseInput{
		FinalTotal: *req.FinalTotal,
		ReceiptRef: strings.TrimSpace(req.ReceiptRef),
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, purchased)
}

// UpdateCoding handles PUT /api/v1/requests/{id}/coding
func (h *RequestHandler) UpdateCoding(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "request")
	if !ok {
		return
	}

	var req dto.CodingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.manager.UpdateCoding(r.Context(), identity(r), id, req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Pending handles GET /api/v1/requests/pending
func (h *RequestHandler) Pending(w http.ResponseWriter, r *http.Request) {
	queue, err := h.manager.PendingQueue(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(queue))
}

// NeedsAttention handles GET /api/v1/requests/needs-attention
func (h *RequestHandler) NeedsAttention(w http.ResponseWriter, r *http.Request) {
	items, err := h.manager.NeedsAttention(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(items))
}

// VendorCount handles GET /api/v1/requests/vendor-count?vendor=
func (h *RequestHandler) VendorCount(w http.ResponseWriter, r *http.Request) {
	vendor := strings.TrimSpace(r.URL.Query().Get("vendor"))

	count, err := h.manager.VendorPOCount(r.Context(), identity(r), vendor, h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.VendorCountResponse{Vendor: vendor, Count: count, Days: 30})
}
