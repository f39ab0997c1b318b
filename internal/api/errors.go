package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/smarthome-core/internal/auth"
	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/location"
	"github.com/nerrad567/smarthome-core/internal/maintenance"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// domainErrors maps service sentinels to responses.
var domainErrors = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{auth.ErrInvalidInput, http.StatusBadRequest, ErrCodeValidation, "Username, email and password are required."},
	{auth.ErrEmailTaken, http.StatusBadRequest, ErrCodeConflict, "Email is already taken."},
	{auth.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound, "User not found."},

	{location.ErrInvalidName, http.StatusBadRequest, ErrCodeValidation, "Room name cannot be empty."},
	{location.ErrRoomNotFound, http.StatusNotFound, ErrCodeNotFound, "Room not found."},

	{device.ErrDeviceNotFound, http.StatusNotFound, ErrCodeNotFound, "Device not found."},
	{device.ErrInvalidName, http.StatusBadRequest, ErrCodeValidation, "Device name is required."},
	{device.ErrInvalidKind, http.StatusBadRequest, ErrCodeValidation, "Unknown device type."},
	{device.ErrInvalidRoom, http.StatusBadRequest, ErrCodeValidation, "Room is missing or unknown."},
	{device.ErrNotSensor, http.StatusBadRequest, ErrCodeBadRequest, "Device is not a temperature sensor."},
	{device.ErrNotBulb, http.StatusBadRequest, ErrCodeBadRequest, "Device is not a lightbulb."},
	{device.ErrNoReading, http.StatusNotFound, ErrCodeNotFound, "Sensor has not reported yet."},

	{maintenance.ErrLogNotFound, http.StatusNotFound, ErrCodeNotFound, "Log not found."},
	{maintenance.ErrDeviceNotFound, http.StatusNotFound, ErrCodeNotFound, "Device not found."},
	{maintenance.ErrInvalidTitle, http.StatusBadRequest, ErrCodeValidation, "Title is required."},
	{maintenance.ErrInvalidDescription, http.StatusBadRequest, ErrCodeValidation, "Description is too long."},
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeServiceError maps a service error to a response. Errors without a
// mapping are logged and reported as 500 without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.message)
			return
		}
	}
	s.logger.Error(op+" failed",
		"error", err,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeInternalError(w, "internal server error")
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
