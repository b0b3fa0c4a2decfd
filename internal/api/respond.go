package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/twofactor/pkg/logger"
	"github.com/dmitrymomot/twofactor/pkg/twofactor"
)

const maxBodySize = 1 << 16

var (
	errInvalidBody  = errors.New("invalid request body")
	errLoginExpired = errors.New("login session expired, sign in again")
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(errInvalidBody, err)
	}
	return nil
}

// statusFor maps workflow errors to HTTP statuses. Unknown errors are 500 and
// their text never reaches the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, errInvalidBody.Error()
	case errors.Is(err, twofactor.ErrMissingUserID):
		return http.StatusUnauthorized, twofactor.ErrMissingUserID.Error()
	case errors.Is(err, errLoginExpired):
		return http.StatusUnauthorized, errLoginExpired.Error()
	case errors.Is(err, twofactor.ErrInvalidCode):
		return http.StatusUnauthorized, twofactor.ErrInvalidCode.Error()
	case errors.Is(err, twofactor.ErrAlreadyEnrolled):
		return http.StatusConflict, twofactor.ErrAlreadyEnrolled.Error()
	case errors.Is(err, twofactor.ErrNotEnrolled):
		return http.StatusNotFound, twofactor.ErrNotEnrolled.Error()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, twofactor.ErrLockFailed):
		return http.StatusServiceUnavailable, "service busy, retry later"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed",
			logger.Component("api"),
			logger.Event(op),
			logger.Error(err),
		)
	}
	h.metrics.observe(op, resultFor(status))
	writeJSON(w, status, errorResponse{Error: msg, RequestID: middleware.GetReqID(r.Context())})
}

func resultFor(status int) string {
	switch {
	case status < 300:
		return "ok"
	case status == http.StatusUnauthorized:
		return "rejected"
	case status < 500:
		return "invalid"
	default:
		return "error"
	}
}

func (h *Handler) ok(w http.ResponseWriter, op string, status int, v any) {
	h.metrics.observe(op, "ok")
	if v == nil {
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, v)
}
