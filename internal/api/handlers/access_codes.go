package handlers

import (
	"net/http"

	"github.com/cmclain4200/approcure/internal/accesscode"
	"github.com/cmclain4200/approcure/internal/api/dto"
	"github.com/cmclain4200/approcure/internal/api/validation"
)

type AccessCodeHandler struct {
	codes *accesscode.Service
}

func NewAccessCodeHandler(codes *accesscode.Service) *AccessCodeHandler {
	return &AccessCodeHandler{codes: codes}
}

// List handles GET /api/v1/access-codes
func (h *AccessCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	codes, err := h.codes.List(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(codes))
}

// Issue handles POST /api/v1/access-codes
func (h *AccessCodeHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req dto.IssueCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	code, err := h.codes.Issue(r.Context(), identity(r), req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

// Disable handles POST /api/v1/access-codes/{id}/disable
func (h *AccessCodeHandler) Disable(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "access code")
	if !ok {
		return
	}

	code, err := h.codes.Disable(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, code)
}

// Claim handles POST /api/v1/access-codes/claim. Unaffiliated users call it
// to join an organization, so it does not require membership.
func (h *AccessCodeHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req dto.ClaimCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	result, err := h.codes.Claim(r.Context(), validation.NormalizeAccessCode(req.Code), identity(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
