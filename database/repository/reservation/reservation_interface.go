package reservationRepo

import (
	"context"

	"barberbook/database/store"
	"barberbook/models"
)

// SnapshotFunc receives the full, validated reservation set of a subscription.
type SnapshotFunc = func(reservations []models.Reservation)

// ReservationRepository defines every read and write of reservation records.
type ReservationRepository interface {
	// Create persists a fully populated reservation and returns its id.
	Create(ctx context.Context, r models.Reservation) (string, error)
	// Get retrieves a single reservation.
	Get(ctx context.Context, id string) (*models.Reservation, error)
	// ListForCustomer returns the customer's reservations once.
	ListForCustomer(ctx context.Context, customerID string) ([]models.Reservation, error)
	// SubscribeForProvider streams the provider's reservation set.
	SubscribeForProvider(ctx context.Context, providerID string, onChange SnapshotFunc) (store.Unsubscribe, error)
	// SubscribeForCustomer streams the customer's reservation set.
	SubscribeForCustomer(ctx context.Context, customerID string, onChange SnapshotFunc) (store.Unsubscribe, error)
	// Approve sets approved=true. Approving an approved reservation succeeds.
	Approve(ctx context.Context, id string) error
	// Cancel deletes the reservation. Cancelling a missing reservation succeeds.
	Cancel(ctx context.Context, id string) error
	// ResolveProviderName returns a display name and never fails.
	ResolveProviderName(ctx context.Context, providerID string) string
}
