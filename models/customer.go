package models

import "time"

// CustomerProfile marks a session as a customer. Only its presence is
// consulted when resolving roles.
type CustomerProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
