package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation request not found")

	ErrReservationNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation request ID format")

	ErrDuplicateReservation = errors.New("reservation already exists for request")
)
