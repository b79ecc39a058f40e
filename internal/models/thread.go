package models

import "time"

// ReadPermissions holds the independent visibility flags of a thread.
// Flags are modeled as named booleans rather than a bitmask so the rule
// evaluation order in the permission service stays auditable.
type ReadPermissions struct {
	Public         bool `json:"public"`
	Developer      bool `json:"developer"`
	Reviewer       bool `json:"reviewer"`
	SeniorReviewer bool `json:"senior_reviewer"`
	MozillaContact bool `json:"mozilla_contact"`
	Staff          bool `json:"staff"`
}

// Thread is a review conversation bound to one app version.
type Thread struct {
	ID          uint            `json:"id"`
	AppID       uint            `json:"app_id"`
	Version     string          `json:"version"`
	Permissions ReadPermissions `json:"permissions"`
	CreateTime  time.Time       `json:"create_time,omitempty"`
}

// ThreadCC grants a user read and notify access to a thread regardless of
// role flags. Created explicitly by workflow actions, never by replying.
type ThreadCC struct {
	ID         uint      `json:"id"`
	ThreadID   uint      `json:"thread_id"`
	UserID     uint      `json:"user_id"`
	CreateTime time.Time `json:"create_time,omitempty"`
}
