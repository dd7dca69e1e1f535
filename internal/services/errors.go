// Package services defines the business logic of the booking platform.
// This file centralizes the service-level error taxonomy so that service
// methods return predictable values and handlers can map them to HTTP
// results with errors.Is.
//
// Every specific error wraps exactly one taxonomy root; handlers only need
// to test the roots.
package services

import "errors"

// Taxonomy roots.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrUnavailable      = errors.New("unavailable")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPaymentFailed    = errors.New("payment failed")
)

// kindError is a specific error classified under a taxonomy root.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func classify(kind error, msg string) error { return &kindError{kind: kind, msg: msg} }

// Appointment lifecycle errors.
var (
	ErrAppointmentNotFound = classify(ErrNotFound, "appointment not found")
	ErrDoctorNotFound      = classify(ErrNotFound, "doctor not found")
	ErrPatientNotFound     = classify(ErrNotFound, "patient not found")
	ErrTokenNotFound       = classify(ErrNotFound, "confirmation token not found")
	ErrSessionNotFound     = classify(ErrNotFound, "checkout session not found")

	ErrMissingDateTime = classify(ErrInvalidInput, "dateTime is required")
	ErrInvalidDateTime = classify(ErrInvalidInput, "dateTime must be an ISO-8601 timestamp")
	ErrDateTimeInPast  = classify(ErrInvalidInput, "dateTime must be in the future")
	ErrMissingDoctor   = classify(ErrInvalidInput, "doctorId is required")
	ErrMissingToken    = classify(ErrInvalidInput, "token is required")

	// ErrNotOwner is returned when a patient acts on someone else's appointment.
	ErrNotOwner = classify(ErrForbidden, "appointment belongs to another patient")

	ErrPaymentsUnavailable = classify(ErrUnavailable, "online payment is not configured")
	ErrWebhookUnavailable  = classify(ErrUnavailable, "payment webhook is not configured")

	ErrSlotTaken          = classify(ErrConflict, "slot already booked")
	ErrSlotBusy           = classify(ErrConflict, "slot is being booked by another request")
	ErrIdempotencyPending = classify(ErrConflict, "a request with this Idempotency-Key is already being processed")

	ErrCheckoutFailed = classify(ErrPaymentFailed, "could not create checkout session")
)

// Directory and account errors.
var (
	ErrInvalidDoctor      = classify(ErrInvalidInput, "fullName, specialty, clinic and city are required and price must be >= 0")
	ErrInvalidEmail       = classify(ErrInvalidInput, "a valid email is required")
	ErrWeakPassword       = classify(ErrInvalidInput, "password must be at least 6 characters")
	ErrInvalidName        = classify(ErrInvalidInput, "fullName must be at least 2 characters")
	ErrEmailTaken         = classify(ErrConflict, "email already registered")
	ErrInvalidCredentials = classify(ErrUnauthorized, "invalid credentials")
)
