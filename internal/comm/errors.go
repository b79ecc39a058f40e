package comm

import "fmt"

// MalformedEmailError means the inbound text lacks parseable header/body
// structure or a recognized reply address. Not retried; surfaced to the
// operator or a dead-letter directory.
type MalformedEmailError struct {
	Reason string
}

func (e *MalformedEmailError) Error() string {
	return fmt.Sprintf("malformed email reply: %s", e.Reason)
}

// InvalidTokenError means the addressed UUID does not match any usable
// token: expired, used up, already deleted, never issued, or tampered.
type InvalidTokenError struct {
	UUID string
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("%s is not a valid reply token", e.UUID)
}

// PermissionRevokedError means the token was found but its user no longer
// has read access to the thread. The token is burned as a side effect so a
// redelivered copy of the same message cannot retry the check.
type PermissionRevokedError struct {
	ThreadID uint
	UserID   uint
}

func (e *PermissionRevokedError) Error() string {
	return fmt.Sprintf("user %d is no longer permitted on thread %d", e.UserID, e.ThreadID)
}
