package paper

import "errors"

var (
	// ErrNotFound is returned when a paper or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUser is returned when a username is already taken.
	ErrDuplicateUser = errors.New("user already exists")
)
