package models

// Session is an authenticated identity as yielded by the identity provider.
// It is consumed by value and never persisted by the booking core.
type Session struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// SessionChange is published by the identity provider whenever a session
// begins or ends. Session is nil when SessionID was signed out.
type SessionChange struct {
	SessionID string
	Session   *Session
}
