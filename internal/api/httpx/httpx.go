package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/bankmore/internal/apperr"
)

// APIError is the error body every service answers with.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteProblem(w http.ResponseWriter, status int, typ, msg string) {
	WriteJSON(w, status, APIError{Message: msg, Type: typ})
}

// WriteError maps err onto its apperr kind. Internal errors are logged and
// answered with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	WriteProblem(w, apperr.HTTPStatus(kind), string(kind), apperr.MessageOf(err))
}

// DecodeJSON rejects unknown fields and trailing data.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "malformed request body", err)
	}
	if dec.More() {
		return apperr.Wrap(apperr.InvalidArgument, "malformed request body", errors.New("trailing data"))
	}
	return nil
}
