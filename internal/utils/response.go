// Package utils holds the JSON response helpers shared by the HTTP handlers.
package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/brizzai/tigoplanes/internal/auth"
	"github.com/brizzai/tigoplanes/internal/catalog"
	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/brizzai/tigoplanes/internal/requester"
	"go.uber.org/zap"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// WriteJSON writes data with the given status
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": message,
	}); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// DecodeJSON reads a JSON body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

var errorStatus = []struct {
	err    error
	code   string
	status int
}{
	{auth.ErrNotAuthenticated, "not_authenticated", http.StatusUnauthorized},
	{auth.ErrInvalidCredentials, "invalid_credentials", http.StatusUnauthorized},
	{auth.ErrIncorrectCurrentPassword, "incorrect_password", http.StatusUnauthorized},
	{auth.ErrEmailRegistered, "email_registered", http.StatusConflict},
	{auth.ErrWeakPassword, "weak_password", http.StatusUnprocessableEntity},
	{auth.ErrSamePassword, "same_password", http.StatusUnprocessableEntity},
	{auth.ErrClosed, "unavailable", http.StatusServiceUnavailable},
	{catalog.ErrAdvisorOnly, "forbidden", http.StatusForbidden},
	{catalog.ErrNotOwner, "forbidden", http.StatusForbidden},
	{catalog.ErrNotFound, "not_found", http.StatusNotFound},
	{catalog.ErrNotPending, "not_pending", http.StatusConflict},
	{catalog.ErrInvalid, "invalid_request", http.StatusUnprocessableEntity},
}

// WriteServiceError maps a service error to a status and writes the message
// meant for the user.
func WriteServiceError(w http.ResponseWriter, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			WriteError(w, e.code, auth.UserMessage(err), e.status)
			return
		}
	}
	var apiErr *requester.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		WriteError(w, "backend_error", auth.UserMessage(err), status)
		return
	}
	logger.Error("Unhandled service error", zap.Error(err))
	WriteError(w, "internal_error", auth.UserMessage(err), http.StatusInternalServerError)
}
