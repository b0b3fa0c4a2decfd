package locker

import "errors"

var (
	ErrEmptyKey   = errors.New("locker: empty key")
	ErrLockFailed = errors.New("locker: failed to acquire lock")
	ErrNilRedis   = errors.New("locker: nil redis client")
)
