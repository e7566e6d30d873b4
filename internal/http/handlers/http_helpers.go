package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rogerio-castellano/shopnesty/internal/auth"
	"github.com/rogerio-castellano/shopnesty/internal/reconcile"
	"go.uber.org/zap"
)

func identity(r *http.Request) (auth.Identity, bool) {
	return auth.IdentityFrom(r.Context())
}

// readJSON tries to read the body of a request and converts it into JSON
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1048576 // one megabyte
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	err := dec.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	err = dec.Decode(&struct{}{})
	if err != io.EOF {
		return errors.New("body must have only a single json value")
	}

	return nil
}

// readOptionalJSON is readJSON for bodies that may be omitted.
func readOptionalJSON(w http.ResponseWriter, r *http.Request, data any) error {
	err := readJSON(w, r, data)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeJSON takes a response status code and arbitrary data and writes a json response to the client
func writeJSON(w http.ResponseWriter, status int, data any, headers ...http.Header) error {
	out, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	if len(headers) > 0 {
		for key, value := range headers[0] {
			w.Header()[key] = value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(out)
	if err != nil {
		return fmt.Errorf("failed to write to response: %w", err)
	}

	return nil
}

func respond(w http.ResponseWriter, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		logger.Warn("failed to write JSON response", zap.Error(err))
	}
}

// engineStatus maps engine errors onto HTTP status codes.
func engineStatus(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrOutOfStock), errors.Is(err, reconcile.ErrNegativeStock):
		return http.StatusConflict
	case errors.Is(err, reconcile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconcile.ErrNothingSelected),
		errors.Is(err, reconcile.ErrInvalidArgument),
		errors.Is(err, reconcile.ErrInvalidDirection):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, reconcile.ErrNetworkFailure):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeEngineError(w http.ResponseWriter, op string, err error) {
	status := engineStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("operation failed", zap.String("op", op), zap.Error(err))
	}
	http.Error(w, reconcile.Message(err), status)
}

func parseFloatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseIntPtr(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

// parseTimeParam parses an RFC3339 query value. URL decoding turns the '+'
// of a zone offset into a space, which is reversed first.
func parseTimeParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if len(s) == len(time.RFC3339) && s[len(s)-6] == ' ' {
		s = s[:len(s)-6] + "+" + s[len(s)-5:]
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
