// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Service errors are translated by failErr, which tests
// the taxonomy roots from the services package with errors.Is:
//
//	NotFound         -> 404 not_found
//	InvalidInput     -> 400 bad_request
//	Forbidden        -> 403 forbidden
//	InvalidSignature -> 400 invalid_signature
//	Unavailable      -> 503 unavailable
//	Conflict         -> 409 conflict
//	Unauthorized     -> 401 unauthorized
//	PaymentFailed    -> 502 payment_failed
//	anything else    -> 500 internal_error
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "slot already booked"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allodocteur/booking-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidSignature = "invalid_signature"
	ErrCodeUnavailable      = "unavailable"
	ErrCodePaymentFailed    = "payment_failed"
)

var errorMap = []struct {
	root   error
	status int
	code   string
}{
	{services.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{services.ErrInvalidSignature, http.StatusBadRequest, ErrCodeInvalidSignature},
	{services.ErrUnavailable, http.StatusServiceUnavailable, ErrCodeUnavailable},
	{services.ErrConflict, http.StatusConflict, ErrCodeConflict},
	{services.ErrUnauthorized, http.StatusUnauthorized, ErrCodeUnauthorized},
	{services.ErrPaymentFailed, http.StatusBadGateway, ErrCodePaymentFailed},
}

// statusFor returns the HTTP status and code for a service error.
func statusFor(err error) (int, string) {
	for _, m := range errorMap {
		if errors.Is(err, m.root) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal
}

// failErr writes the envelope for a service error. Internal errors are
// reported with a generic message; the cause goes to the log only.
func failErr(c *gin.Context, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		_ = c.Error(err)
		msg = "internal server error"
	case errors.Is(err, services.ErrPaymentFailed):
		_ = c.Error(err)
		msg = "payment provider error"
	}
	fail(c, status, code, msg)
}
