package domain

import "errors"

// ErrLockHeld means another run holds the advisory lock and it is not
// stale. The caller skips the run without escalating.
var ErrLockHeld = errors.New("cleanup lock held by an active run")
