package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// RequestIDHeader carries the per-request correlation id on both the
// request and the response.
const RequestIDHeader = "X-Request-Id"

const maxBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

// WriteError writes the common error body. The request id is taken from the
// response header set by the request id middleware, if any.
func WriteError(w http.ResponseWriter, status int, msg string) {
	body := map[string]any{
		"error":   http.StatusText(status),
		"message": msg,
	}
	if id := w.Header().Get(RequestIDHeader); id != "" {
		body["requestId"] = id
	}
	WriteJSON(w, status, body)
}

// DecodeJSON reads a single JSON object from the request body into dst.
// Keys dst does not declare are ignored; trailing data is rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
