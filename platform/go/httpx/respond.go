package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/trimly-app/trimly-saas/platform/go/persistence"
	"github.com/trimly-app/trimly-saas/platform/go/plan"
	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

// ErrorBody is the wire shape of every non-2xx response.
type ErrorBody struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo carries a stable machine code plus a human message. Details is
// populated for plan limit errors so clients can render upgrade prompts.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes a structured error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Error: ErrorInfo{Code: code, Message: message}})
}

// WriteDomainError maps domain errors onto HTTP statuses:
//
//	tenant.ErrTenantRequired      -> 401
//	persistence.ErrRecordNotFound -> 404
//	*plan.LimitError              -> 402 with the limit detail attached
//
// Everything else is a 500; the original error is logged, never leaked.
func WriteDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var limitErr *plan.LimitError
	switch {
	case errors.Is(err, tenant.ErrTenantRequired):
		WriteError(w, http.StatusUnauthorized, "TENANT_REQUIRED", "tenant context required")
	case errors.Is(err, persistence.ErrRecordNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "record not found")
	case errors.As(err, &limitErr):
		WriteJSON(w, http.StatusPaymentRequired, ErrorBody{Error: ErrorInfo{
			Code:    string(limitErr.Code),
			Message: limitErr.Message,
			Details: limitErr.Detail,
		}})
	default:
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
