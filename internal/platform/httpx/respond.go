// Package httpx provides JSON response helpers and the error envelope
// shared by every handler and middleware.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the JSON error body returned on every failed request.
type Envelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error codes carried in the envelope's error field.
const (
	CodeAccessDenied       = "access_denied"
	CodeAuthRequired       = "authentication_required"
	CodeAuthorizationError = "authorization_error"
	CodeInvalidCredentials = "invalid_credentials"
	CodeNotFound           = "not_found"
	CodeDuplicate          = "duplicate"
	CodeConflict           = "conflict"
	CodeValidation         = "validation_failed"
	CodeBadRequest         = "bad_request"
	CodeInternal           = "internal_error"
)

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends the error envelope with the given status code.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, Envelope{Error: code, Message: message})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
