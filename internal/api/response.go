package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/workflow"
)

// retryAfterSeconds is sent with 503 responses for storage faults.
const retryAfterSeconds = "2"

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// problem is an RFC 7807 problem body. Error repeats the human readable
// message for clients that only look at one field.
type problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a problem response.
func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	body := problem{
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
		Error:  message,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}

// respondError maps domain errors to HTTP status codes. Anything unexpected
// is logged and reported as a 500 without details.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInsufficientStock),
		errors.Is(err, model.ErrAlreadyResolved),
		errors.Is(err, workflow.ErrRequestInProgress):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrStorageUnavailable):
		slog.Error("storage unavailable", "method", r.Method, "path", r.URL.Path, "error", err)
		w.Header().Set("Retry-After", retryAfterSeconds)
		jsonError(w, http.StatusServiceUnavailable, "storage temporarily unavailable, retry later")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target, rejecting
// unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

// pathID parses the {id} URL parameter. It writes a 400 and returns false
// when the parameter is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request, entity string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+entity+" id")
		return 0, false
	}
	return id, true
}
