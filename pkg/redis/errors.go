package redis

import "errors"

var (
	ErrEmptyConnectionURL   = errors.New("empty redis connection URL, set REDIS_URL")
	ErrInvalidConnectionURL = errors.New("invalid redis connection URL")
	ErrNotReady             = errors.New("redis did not answer ping before the connect timeout")
	ErrUnhealthy            = errors.New("redis is unreachable")
)
