// Package httputil provides the response conventions shared by the AVL
// services. Producer-facing endpoints answer with an empty body on success
// and an {"errors": [...]} document on failure; the exact message strings are
// part of the feed contract and are matched literally by operator tooling.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body returned for every non-2xx producer-facing reply.
type ErrorResponse struct {
	Errors []string `json:"errors"`
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// WriteSuccess writes a 200 response with an empty body.
// Every successful ingestion branch answers this way.
func WriteSuccess(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

// WriteValidationError writes a 400 response listing the request problems.
func WriteValidationError(w http.ResponseWriter, messages ...string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Errors: messages})
}

// WriteUnauthorized writes a 401 response.
func WriteUnauthorized(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Errors: []string{"Unauthorized"}})
}

// WriteNotFound writes a 404 response with the given message.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusNotFound, ErrorResponse{Errors: []string{message}})
}

// WritePayloadTooLarge writes a 413 response. Oversized submissions must be
// rejected whole rather than staged truncated.
func WritePayloadTooLarge(w http.ResponseWriter) {
	WriteJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Errors: []string{"Body too large"}})
}

// WriteServerError writes a generic 500 response. Internal detail is logged
// by the caller, never echoed to the producer.
func WriteServerError(w http.ResponseWriter) {
	w.WriteHeader(http.StatusInternalServerError)
}
