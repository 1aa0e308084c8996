package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteAppError renders err using its AppError fields, or a generic 500.
func WriteAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	code := appErr.Code
	if code == "" {
		code = "INTERNAL"
	}
	message := appErr.Message
	if message == "" {
		message = "internal error"
	}
	JSONError(w, status, code, message, appErr.Details)
}

// DecodeJSON reads a single JSON value from the request body into dst.
// Failures come back as *AppError ready for WriteAppError.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return NewAppError("INVALID_JSON", "request body is required", http.StatusBadRequest, nil)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var (
			syntaxErr *json.SyntaxError
			typeErr   *json.UnmarshalTypeError
			maxErr    *http.MaxBytesError
		)
		switch {
		case errors.As(err, &maxErr):
			return NewAppError("PAYLOAD_TOO_LARGE", "request entity too large", http.StatusRequestEntityTooLarge, err)
		case errors.As(err, &syntaxErr):
			return NewAppError("INVALID_JSON", "malformed JSON", http.StatusBadRequest, err).
				WithDetails(map[string]any{"offset": syntaxErr.Offset})
		case errors.As(err, &typeErr):
			return NewAppError("INVALID_JSON", "wrong JSON type", http.StatusBadRequest, err).
				WithDetails(map[string]any{"field": typeErr.Field})
		case errors.Is(err, io.EOF):
			return NewAppError("INVALID_JSON", "request body is required", http.StatusBadRequest, err)
		default:
			return NewAppError("INVALID_JSON", "invalid request body", http.StatusBadRequest, err)
		}
	}
	if dec.More() {
		return NewAppError("INVALID_JSON", "request body must hold a single JSON value", http.StatusBadRequest, errors.New("trailing data"))
	}
	return nil
}
