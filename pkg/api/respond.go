package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"

	"github.com/alextanhongpin/podreport/pkg/apperr"
)

const maxBodyBytes = 1 << 20

// Envelope is the body of every JSON response except the few the frontend
// reads raw.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, code int, data any, message string) {
	writeJSON(w, code, Envelope{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// fail maps err to a status code. Server errors are logged and their details
// hidden.
func fail(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	code := apperr.StatusCode(err)
	msg := err.Error()

	if code >= http.StatusInternalServerError {
		logger.Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")

		if code == http.StatusInternalServerError {
			msg = "Internal server error"
		}
	}

	writeJSON(w, code, Envelope{
		Success: false,
		Message: msg,
	})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}

		return fmt.Errorf("%w: invalid request body: %w", apperr.ErrValidation, err)
	}

	return nil
}
