package customerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barberbook/database/store"
	"barberbook/models"
)

// CustomerRepository defines methods for customer profile access.
type CustomerRepository interface {
	// Exists reports whether a customer profile is stored under id.
	Exists(ctx context.Context, id string) (bool, error)
	// GetByID retrieves a customer profile.
	GetByID(ctx context.Context, id string) (*models.CustomerProfile, error)
	// Create stores the profile written at sign-up.
	Create(ctx context.Context, c models.CustomerProfile) error
}

// DocumentCustomerRepo implements CustomerRepository on a RecordStore.
type DocumentCustomerRepo struct {
	store store.RecordStore
}

func NewDocumentCustomerRepo(s store.RecordStore) *DocumentCustomerRepo {
	return &DocumentCustomerRepo{store: s}
}

func (r *DocumentCustomerRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.store.Get(ctx, store.KindCustomers, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *DocumentCustomerRepo) GetByID(ctx context.Context, id string) (*models.CustomerProfile, error) {
	doc, err := r.store.Get(ctx, store.KindCustomers, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("customer %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch customer with id %s: %w", id, err)
	}
	createdAt, _ := doc.Time("createdAt")
	return &models.CustomerProfile{
		ID:        id,
		Name:      doc.OptionalString("name"),
		Email:     doc.OptionalString("email"),
		CreatedAt: createdAt,
	}, nil
}

func (r *DocumentCustomerRepo) Create(ctx context.Context, c models.CustomerProfile) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	doc := store.Document{
		"name":      c.Name,
		"email":     c.Email,
		"createdAt": store.FormatTime(c.CreatedAt),
	}
	if err := r.store.Set(ctx, store.KindCustomers, c.ID, doc); err != nil {
		return fmt.Errorf("failed to create customer %s: %w", c.ID, err)
	}
	return nil
}
