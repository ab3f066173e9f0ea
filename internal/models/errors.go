package models

import "errors"

var (
	// ErrValidation marks input rejected before any persistence happens.
	ErrValidation = errors.New("validation error")

	// ErrInvalidEnum marks a value outside a closed enumeration.
	ErrInvalidEnum = errors.New("invalid enum value")
)
