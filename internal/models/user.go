package models

import "time"

// User represents an account that can read and post to communication threads.
type User struct {
	ID          uint      `json:"id"`
	Login       string    `json:"login"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	CreateTime  time.Time `json:"create_time,omitempty"`
}

// Anonymous marks an unauthenticated caller. Only public threads are readable
// for the zero user.
func (u *User) Anonymous() bool {
	return u == nil || u.ID == 0
}
