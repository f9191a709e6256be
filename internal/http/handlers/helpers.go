package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/auth"
	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/logx"
)

func reqID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return "-"
}

func writeJSON(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Warn("json encode failed", logx.String("req_id", reqID(r.Context())), logx.Err(err))
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error errorBody `json:"error"`
}

// statusFor maps an error to its HTTP status. An authenticated caller refused
// by authorization gets 403 instead of 401.
func statusFor(r *http.Request, err error) int {
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		if _, ok := auth.FromContext(r.Context()); ok {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrAlreadyAssigned),
		errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeError(logger logx.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(r, err)
	fields := []logx.Field{
		logx.String("req_id", reqID(r.Context())),
		logx.Int("status", status),
		logx.String("code", apperr.Code(err)),
		logx.Err(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("http error", fields...)
	} else {
		logger.Debug("http error", fields...)
	}
	writeJSON(logger, w, r, status, ErrorResponse{Error: errorBody{Code: apperr.Code(err), Message: apperr.Message(err)}})
}

// ErrorWriter adapts writeError for middleware that reports failures.
func ErrorWriter(logger logx.Logger) func(http.ResponseWriter, *http.Request, error) {
	if logger == nil {
		logger = logx.Nop()
	}
	return func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(logger, w, r, err)
	}
}

const bodyLimit = 1 << 20

func decodeJSON[T any](logger logx.Logger, w http.ResponseWriter, r *http.Request, dst *T) bool {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(logger, w, r, fmt.Errorf("invalid json: %w", apperr.ErrValidation))
		return false
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		writeError(logger, w, r, fmt.Errorf("invalid json: trailing data: %w", apperr.ErrValidation))
		return false
	}
	return true
}

// queryFloat parses an optional float query parameter.
func queryFloat(r *http.Request, name string) (float64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a number: %w", name, apperr.ErrValidation)
	}
	return v, true, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, apperr.ErrValidation)
	}
	return v, nil
}

// identity returns the caller stored by the auth middleware.
func identity(r *http.Request) (domain.Identity, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return domain.Identity{}, fmt.Errorf("missing credentials: %w", apperr.ErrUnauthorized)
	}
	return id, nil
}
