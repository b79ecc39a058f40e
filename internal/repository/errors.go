package repository

import "errors"

// ErrTokenNotFound is reported by token lookups when no live token matches
// the identifier.
var ErrTokenNotFound = errors.New("reply token not found")

// ErrConflict signals a lost get-or-create race on the (thread, user)
// uniqueness constraint. Implementations resolve it internally by
// re-reading the winning row; callers should never observe it.
var ErrConflict = errors.New("reply token already exists for thread and user")
