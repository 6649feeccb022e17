package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fjod/go_shop/internal/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleDomainError converts error kinds to HTTP status codes. The body
// carries the operation's fixed message untouched.
func handleDomainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)

	var httpStatus int
	switch kind {
	case domain.KindNotFound:
		httpStatus = http.StatusNotFound
	case domain.KindInvalidInput:
		httpStatus = http.StatusBadRequest
	case domain.KindConflict:
		httpStatus = http.StatusConflict
	default:
		httpStatus = http.StatusInternalServerError
	}

	message := err.Error()
	if kind == domain.KindInternal {
		slog.Error("operation failed", "error", err)
		message = "internal server error"
	}

	respondError(w, httpStatus, kind.String(), message)
}

// outcome labels a finished operation for metrics.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return domain.KindOf(err).String()
}
