package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Details string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch appErrors.KindOf(err) {
	case appErrors.KindValidation:
		return http.StatusBadRequest
	case appErrors.KindNotFound:
		return http.StatusNotFound
	case appErrors.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as {error, kind, details}. Internal errors are not echoed.
func WriteError(w http.ResponseWriter, err error) {
	kind := appErrors.KindOf(err)
	body := ErrorBody{Error: appErrors.Message(err), Kind: string(kind)}
	if kind == appErrors.KindInternal {
		body.Error = "internal server error"
	} else {
		body.Details = err.Error()
	}
	WriteJSON(w, StatusFor(err), body)
}

// DecodeJSON reads a JSON request body into v; malformed bodies are validation errors.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return appErrors.NewValidation("request", "request body is required")
		}
		return appErrors.NewValidation("request", "invalid request body: %v", err)
	}
	return nil
}
