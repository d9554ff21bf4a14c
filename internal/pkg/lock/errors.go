package lock

import "errors"

// ErrLockTimeout is returned when an account lock cannot be taken within the timeout.
var ErrLockTimeout = errors.New("lock acquisition timeout")
