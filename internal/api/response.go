package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/armory/internal/model"
)

type errorResponse struct {
	Error  string             `json:"error"`
	Kind   string             `json:"kind,omitempty"`
	Fields []model.FieldError `json:"fields,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Error: message})
}

// writeError maps a domain error onto a status code and writes it with its
// kind. Rejections are logged at WARN, storage failures at ERROR; the latter
// never leak their cause to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.ErrorKind(err)
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonResponse(w, status, errorResponse{Error: "internal error", Kind: kind})
		return
	}

	slog.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "kind", kind, "error", err)
	resp := errorResponse{Error: err.Error(), Kind: kind}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Errors
	}
	jsonResponse(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDuplicateSerial),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrConflictingCustody),
		errors.Is(err, model.ErrInUse):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
