package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/set-night/turbostart/internal/domain"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Required  *int64 `json:"required,omitempty"`
	Available *int64 `json:"available,omitempty"`
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientCredits:
		return http.StatusPaymentRequired
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err by kind. Storage details never leave the process.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	body := errorBody{Error: string(kind), Message: publicMessage(err)}

	var insufficient *domain.InsufficientFundsError
	if errors.As(err, &insufficient) {
		body.Required = &insufficient.Required
		body.Available = &insufficient.Available
	}

	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path, "kind", kind)
	}
	writeJSON(w, status, body)
}

func publicMessage(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, domain.ErrInvalidReferralCode):
		return "invalid referral code"
	case errors.Is(err, domain.ErrSelfReferral):
		return "cannot use your own referral code"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "user not found"
	case errors.Is(err, domain.ErrArtifactNotFound):
		return "task not found"
	case errors.Is(err, domain.ErrReferralNotFound):
		return "referral not found"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient credits"
	case errors.Is(err, domain.ErrAlreadyReferred):
		return "user already has a referrer"
	case errors.Is(err, domain.ErrConflict):
		return "resource already exists"
	case errors.Is(err, domain.ErrTransient):
		return "service temporarily unavailable, try again"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal server error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return &domain.ValidationError{Field: "body", Message: "must be a valid JSON object"}
	}
	return nil
}

func pathInt(value, field string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return 0, &domain.ValidationError{Field: field, Message: fmt.Sprintf("%q is not a valid id", value)}
	}
	return n, nil
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
