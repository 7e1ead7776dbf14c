package errors

import "errors"

var (
	ErrNotFound = errors.New("availability not found")

	ErrInvalidID = errors.New("invalid availability ID format")

	ErrInvalidPrice = errors.New("stored price is not a valid decimal")
)
