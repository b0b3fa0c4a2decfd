package twofactor

import "errors"

var (
	ErrAlreadyEnrolled = errors.New("two-factor authentication is already enabled")
	ErrNotEnrolled     = errors.New("two-factor authentication is not enabled")
	ErrInvalidCode     = errors.New("invalid two-factor code")
	ErrConfiguration   = errors.New("two-factor authentication is misconfigured")
	ErrIntegrity       = errors.New("stored two-factor secret failed integrity check")
	ErrSecretNotFound  = errors.New("two-factor secret not found")
	ErrMissingUserID   = errors.New("missing user id")
	ErrStorage         = errors.New("two-factor storage failure")
	ErrLockFailed      = errors.New("failed to acquire two-factor lock")
)
