// Package api implements the HTTP handlers of the navigation service.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// maxBodyBytes bounds request bodies; every request body is a small JSON object.
const maxBodyBytes = 64 << 10

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, log logrus.FieldLogger, status int, message string) {
	writeJSON(w, log, status, ErrorResponse{Error: message, Status: status})
}

// decodeBody decodes a JSON request body into v. Unknown fields are rejected.
func decodeBody(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	return dec.Decode(v)
}
