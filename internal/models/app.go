package models

import "time"

// App is the reviewable artifact a communication thread is bound to.
// Author membership lives in the app_user join table and is reachable
// through AppRepository.
type App struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug,omitempty"`
	MozillaContact string    `json:"mozilla_contact,omitempty"` // designated contact email, may be empty
	CreateTime     time.Time `json:"create_time,omitempty"`
}
