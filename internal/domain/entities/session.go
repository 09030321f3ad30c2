package entities

import "time"

// Session is an admin authorization issued by a successful unlock.
// The token is passed explicitly to every privileged call.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
