package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	domainerrors "github.com/pbaille/divino/internal/errors"
)

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError is the error body of a failed response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	writeEnvelope(w, status, Envelope{Success: status < 400, Data: data}, logger)
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code domainerrors.Code, message string, logger *slog.Logger) {
	writeEnvelope(w, status, Envelope{Error: &APIError{Code: string(code), Message: message}}, logger)
}

// handleError maps domain errors to their status; anything else is a 500.
func handleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		writeEnvelope(w, domainErr.HTTPStatus(), Envelope{Error: &APIError{
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}}, logger)
		return
	}

	logger.Error("unhandled error", "error", err)
	writeError(w, http.StatusInternalServerError, domainerrors.CodeInternal, "internal server error", logger)
}
