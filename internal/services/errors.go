package services

import "errors"

// Sentinel errors shared by the scheduling services. Handlers translate
// them to HTTP statuses; services wrap them with fmt.Errorf("%w: ...") when
// a human-readable detail is useful.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrCapacityExceeded       = errors.New("slot capacity exceeded")
	ErrConflict               = errors.New("schedule conflict")
	ErrInvalidStateTransition = errors.New("invalid state transition")
)
