package profile

import "errors"

var (
	// ErrNotFound is returned when no profile matches the request.
	ErrNotFound = errors.New("profile not found")
	// ErrDuplicateProfile is returned when a profile with the same email exists.
	ErrDuplicateProfile = errors.New("profile already exists")
	// ErrEmptyUpdate is returned when an update carries no fields.
	ErrEmptyUpdate = errors.New("no data provided")
	// ErrBadRequest marks caller input that failed validation. It is usually
	// wrapped with a description of the offending field.
	ErrBadRequest = errors.New("bad request")
)
