package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/api/dto"
	"github.com/cmclain4200/approcure/internal/api/middleware"
	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

var kindStatus = map[apperr.Kind]int{
	apperr.Forbidden:          http.StatusForbidden,
	apperr.EscalationDenied:   http.StatusForbidden,
	apperr.InvalidTransition:  http.StatusConflict,
	apperr.Conflict:           http.StatusConflict,
	apperr.Validation:         http.StatusBadRequest,
	apperr.ExpiredOrExhausted: http.StatusGone,
	apperr.NotFound:           http.StatusNotFound,
	apperr.Unavailable:        http.StatusServiceUnavailable,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates a service error. Internal errors are logged and
// answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)

	if kind == apperr.Unavailable {
		w.Header().Set("Retry-After", "1")
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	writeJSON(w, status, dto.ErrorResponse{Error: apperr.Message(err), Kind: kind.String()})
}

func writeValidation(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Validation failed",
		Kind:    apperr.Validation.String(),
		Details: details,
	})
}

// decodeJSON reads a bounded JSON body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body", Kind: apperr.Validation.String()})
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body", Kind: apperr.Validation.String()})
		return false
	}
	return true
}

// parseID reads a uuid path parameter, answering 400 when malformed.
func parseID(w http.ResponseWriter, r *http.Request, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid " + what + " ID", Kind: apperr.Validation.String()})
		return uuid.Nil, false
	}
	return id, true
}

func identity(r *http.Request) *access.Identity {
	return middleware.GetIdentity(r.Context())
}

func list[T any](items []T) dto.ListResponse {
	if items == nil {
		items = []T{}
	}
	return dto.ListResponse{Data: items, Total: len(items)}
}
