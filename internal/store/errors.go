package store

import "errors"

var (
	ErrConflict             = errors.New("conflict")
	ErrNotFound             = errors.New("not found")
	ErrIdempotencyConflict  = errors.New("idempotency key conflict")
	ErrAppointmentNotActive = errors.New("appointment not active")
	ErrUnknownStylist       = errors.New("unknown stylist")
	ErrUnknownService       = errors.New("unknown service")
)
