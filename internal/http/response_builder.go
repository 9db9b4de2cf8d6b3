package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/services"
	"fintrack/internal/store"
	"fintrack/internal/subscription"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Error string `json:"error"`
}

// validationErrors map to 400 Bad Request.
var validationErrors = []error{
	errBadRequest,
	query.ErrInvalidParam,
	core.ErrInvalidType,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrTextTooLong,
	core.ErrEmptyCategory,
	core.ErrInvalidDate,
	core.ErrEmptyTitle,
	core.ErrInvalidTarget,
	core.ErrEmptySymbol,
	core.ErrInvalidPrice,
	core.ErrInvalidPlan,
	core.ErrInvalidTheme,
	core.ErrInvalidCurrency,
	core.ErrInvalidLanguage,
	core.ErrInvalidEmail,
	auth.ErrEmptyName,
	auth.ErrInvalidEmail,
	auth.ErrWeakPassword,
	subscription.ErrPaidPlanRequired,
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, auth.ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, subscription.ErrTrialUsed):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrLimitReached):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrFeatureUnavailable):
		return http.StatusForbidden
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrMarketUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrExportDisabled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError answers with the status mapped from err. Server errors are
// logged with the request logger and their details are not sent back.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		msg = http.StatusText(status)
	}
	writeErrorMessage(w, status, msg)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
