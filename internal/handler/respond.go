package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/marzouqa/souq-backend/internal/domain/fault"
)

// envelope is the uniform response body: success with data, or failure
// with a human-readable message.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func respond(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, data any) {
	respond(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respond(w, status, envelope{Success: true, Message: message})
}

// respondError renders a domain error through the fault-kind mapping.
// Internal errors are logged and masked.
func respondError(r *http.Request, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch fault.KindOf(err) {
	case fault.KindValidation, fault.KindInvalidState:
		status = http.StatusBadRequest
	case fault.KindNotFound:
		status = http.StatusNotFound
	case fault.KindConflict:
		status = http.StatusConflict
	case fault.KindAuthorization:
		status = http.StatusForbidden
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		message = "internal error"
	}
	respond(w, status, envelope{Success: false, Message: message})
}

// decode parses the JSON request body into dst.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fault.Validation("invalid request body: %v", err)
	}
	return nil
}
