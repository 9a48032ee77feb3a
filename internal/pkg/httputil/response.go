// Package httputil provides helpers shared by the ops HTTP handlers.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes a raw JSON response without envelope.
func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// Text writes a plain text response.
func Text(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Success writes {"data": ...}.
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, map[string]any{"data": data})
}

// Error writes {"error": {"message": ...}}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{
		"error": map[string]string{"message": message},
	})
}
