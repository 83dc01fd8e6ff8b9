// Package response writes the JSON envelope used by hotserve's built-in
// endpoints.
package response

import (
	"encoding/json"
	"net/http"
)

type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Success sends a 200 with data.
func Success(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, envelope{Status: http.StatusOK, Data: data})
}

// Error sends status with message.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, envelope{Status: status, Message: message})
}

// Unavailable sends a 503 listing the failing checks.
func Unavailable(w http.ResponseWriter, failures map[string]string) {
	write(w, http.StatusServiceUnavailable, envelope{
		Status:  http.StatusServiceUnavailable,
		Message: "Service Unavailable",
		Errors:  failures,
	})
}

// Raw sends body verbatim, for configured static routes.
func Raw(w http.ResponseWriter, status int, contentType string, body []byte) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck
}

// JSON sends v without the envelope.
func JSON(w http.ResponseWriter, status int, v any) {
	write(w, status, v)
}

// NotFound sends a 404.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}
