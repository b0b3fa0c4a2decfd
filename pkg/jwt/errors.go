package jwt

import "errors"

var (
	ErrInvalidToken      = errors.New("jwt: invalid token")
	ErrExpiredToken      = errors.New("jwt: token is expired")
	ErrTokenNotYetValid  = errors.New("jwt: token is not valid yet")
	ErrMissingSigningKey = errors.New("jwt: missing signing key")
	ErrInvalidSignature  = errors.New("jwt: invalid signature")
	ErrUnexpectedIssuer  = errors.New("jwt: unexpected issuer")
	ErrInvalidTTL        = errors.New("jwt: ttl must be positive")
	ErrFailedToSignToken = errors.New("jwt: failed to sign token")
)
