package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a profile with an existing email
	ErrDuplicateEmail = errors.New("profile with this email already exists")

	// ErrDuplicateConnection is returned when a connection for (user, integration) already exists
	ErrDuplicateConnection = errors.New("connection already exists for this user and integration")
)
