// Package role decides which view class a session is granted.
package role

import (
	"context"
	"fmt"

	"barberbook/models"
)

// ProfileLookup reports whether a profile document exists for a session id.
type ProfileLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Resolver maps a session to a role from the presence of provider and
// customer profiles. A provider profile wins over a customer profile.
type Resolver struct {
	Providers ProfileLookup
	Customers ProfileLookup
}

func NewResolver(providers, customers ProfileLookup) *Resolver {
	return &Resolver{Providers: providers, Customers: customers}
}

// Resolve returns RoleAnonymous for a nil session. Read failures are reported
// as models.ErrResolutionFailure, never as anonymous.
func (r *Resolver) Resolve(ctx context.Context, session *models.Session) (models.Role, error) {
	if session == nil || session.ID == "" {
		return models.RoleAnonymous, nil
	}

	isProvider, err := r.Providers.Exists(ctx, session.ID)
	if err != nil {
		return "", fmt.Errorf("%w: provider lookup for %s: %w", models.ErrResolutionFailure, session.ID, err)
	}
	if isProvider {
		return models.RoleProvider, nil
	}

	isCustomer, err := r.Customers.Exists(ctx, session.ID)
	if err != nil {
		return "", fmt.Errorf("%w: customer lookup for %s: %w", models.ErrResolutionFailure, session.ID, err)
	}
	if isCustomer {
		return models.RoleCustomer, nil
	}
	return models.RoleAnonymous, nil
}
