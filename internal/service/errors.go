package service

import "errors"

// Service-level errors handlers map onto HTTP statuses.
var (
	// ErrInvalidSignature is returned when a webhook signature does not
	// match the shared secret.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrInvalidCode is returned when an OTP code is wrong or expired.
	ErrInvalidCode = errors.New("invalid or expired code")

	// ErrStaleVersion is returned when a booking mutation carries an
	// outdated version.
	ErrStaleVersion = errors.New("booking version is stale")

	// ErrInvalidInput is returned for request payloads that pass binding
	// but fail domain validation.
	ErrInvalidInput = errors.New("invalid input")
)
