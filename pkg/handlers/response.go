package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// WriteJSON encodes data as the JSON response body. The status is written
// only when it differs from 200, so plain success paths stay implicit.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes a machine-readable error code alongside the human
// message and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// writeError is ErrorResponse with the encode failure routed to the logger;
// by the time the error body itself fails to write there is nothing more a
// handler can send.
func writeError(w http.ResponseWriter, logger *zap.Logger, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
