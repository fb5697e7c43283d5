package providerRepo

import (
	"context"

	"barberbook/models"
)

// UnknownProviderName is shown when a provider profile cannot be read.
const UnknownProviderName = "Unknown Provider"

// ProviderRepository defines methods for provider data access.
type ProviderRepository interface {
	// GetByID retrieves a provider by its unique ID.
	GetByID(ctx context.Context, id string) (*models.ProviderProfile, error)
	// GetAll retrieves all providers.
	GetAll(ctx context.Context) ([]models.ProviderProfile, error)
	// GetService retrieves a single service offered by a provider.
	GetService(ctx context.Context, id string) (*models.Service, error)
	// Exists reports whether a provider profile is stored under id.
	Exists(ctx context.Context, id string) (bool, error)
	// GetName returns the provider's display name, falling back to UnknownProviderName.
	GetName(ctx context.Context, id string) string
	// Create stores a provider profile. Used by the seed command only.
	Create(ctx context.Context, p models.ProviderProfile) error
	// CreateService stores a service. Used by the seed command only.
	CreateService(ctx context.Context, s models.Service) error
}
