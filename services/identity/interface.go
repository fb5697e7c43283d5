// Package identity authenticates people and yields the sessions the rest of
// the service reasons about.
package identity

import (
	"context"
	"errors"

	"barberbook/models"
)

// ErrEmailTaken is returned by SignUp when an account already uses the email.
var ErrEmailTaken = errors.New("an account with this email already exists")

// AuthResult is returned by a successful sign-in or sign-up.
type AuthResult struct {
	Session models.Session `json:"session"`
	Token   string         `json:"token"`
}

// IdentityProvider is the authentication boundary of the service.
type IdentityProvider interface {
	// CurrentSession returns the session bound to token, or nil for an empty
	// token. Invalid or revoked tokens yield models.ErrAuthFailure.
	CurrentSession(ctx context.Context, token string) (*models.Session, error)
	// OnSessionChange registers fn for every sign-in, sign-up and sign-out.
	OnSessionChange(fn func(models.SessionChange)) (cancel func())
	SignIn(ctx context.Context, email, password string) (*AuthResult, error)
	SignUp(ctx context.Context, email, password, displayName string) (*AuthResult, error)
	SignOut(ctx context.Context, token string) error
}

// ProfileCreator stores the customer profile written at sign-up.
type ProfileCreator interface {
	Create(ctx context.Context, c models.CustomerProfile) error
}
