package models

import "time"

// Token policy defaults, matching the marketplace reply-token rules.
const (
	// TokenExpiry is how long a reply token stays usable after issuance.
	TokenExpiry = 30 * 24 * time.Hour

	// MaxTokenUseCount caps how many replies a single token may authenticate.
	MaxTokenUseCount = 5
)

// ReplyToken authenticates inbound email replies for one (thread, user)
// pair. The UUID is embedded in the outbound reply-to address; at most one
// live token exists per pair (unique constraint on thread_id, user_id).
type ReplyToken struct {
	ID         uint      `json:"id"`
	ThreadID   uint      `json:"thread_id"`
	UserID     uint      `json:"user_id"`
	UUID       string    `json:"uuid"`
	UseCount   int       `json:"use_count"`
	CreateTime time.Time `json:"create_time"`
}

// Usable reports whether the token is still within its validity window and
// use budget at the given instant.
func (t *ReplyToken) Usable(now time.Time) bool {
	if t == nil {
		return false
	}
	if t.UseCount >= MaxTokenUseCount {
		return false
	}
	return now.Before(t.CreateTime.Add(TokenExpiry))
}
