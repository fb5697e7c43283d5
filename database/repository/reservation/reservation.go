package reservationRepo

import (
	"context"
	"errors"
	"fmt"

	"barberbook/database/store"
	"barberbook/models"

	"go.uber.org/zap"
)

// Persisted field names of a reservation document.
const (
	fieldProviderID    = "barberId"
	fieldCustomerID    = "userId"
	fieldCustomerEmail = "userEmail"
	fieldService       = "service"
	fieldDateTime      = "dateTime"
	fieldPrice         = "price"
	fieldApproved      = "approved"
)

// NameResolver looks up provider display names.
type NameResolver interface {
	GetName(ctx context.Context, id string) string
}

// DocumentReservationRepo implements ReservationRepository on a RecordStore.
type DocumentReservationRepo struct {
	store  store.RecordStore
	names  NameResolver
	logger *zap.Logger
}

func NewDocumentReservationRepo(s store.RecordStore, names NameResolver, logger *zap.Logger) *DocumentReservationRepo {
	return &DocumentReservationRepo{store: s, names: names, logger: logger}
}

func (r *DocumentReservationRepo) Create(ctx context.Context, res models.Reservation) (string, error) {
	if res.ID == "" {
		return "", fmt.Errorf("reservation has no id: %w", models.ErrWriteFailure)
	}
	if err := r.store.Set(ctx, store.KindReservations, res.ID, encode(res)); err != nil {
		return "", fmt.Errorf("failed to create reservation %s: %w: %w", res.ID, models.ErrWriteFailure, err)
	}
	return res.ID, nil
}

func (r *DocumentReservationRepo) Get(ctx context.Context, id string) (*models.Reservation, error) {
	doc, err := r.store.Get(ctx, store.KindReservations, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("reservation %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservation %s: %w", id, err)
	}
	res, ok := decode(doc)
	if !ok {
		r.quarantine(doc)
		return nil, fmt.Errorf("reservation %s: %w", id, models.ErrNotFound)
	}
	return &res, nil
}

func (r *DocumentReservationRepo) ListForCustomer(ctx context.Context, customerID string) ([]models.Reservation, error) {
	docs, err := r.store.Query(ctx, store.KindReservations, fieldCustomerID, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations for customer %s: %w", customerID, err)
	}
	return r.decodeAll(docs), nil
}

func (r *DocumentReservationRepo) SubscribeForProvider(ctx context.Context, providerID string, onChange SnapshotFunc) (store.Unsubscribe, error) {
	return r.subscribe(ctx, fieldProviderID, providerID, onChange)
}

func (r *DocumentReservationRepo) SubscribeForCustomer(ctx context.Context, customerID string, onChange SnapshotFunc) (store.Unsubscribe, error) {
	return r.subscribe(ctx, fieldCustomerID, customerID, onChange)
}

func (r *DocumentReservationRepo) subscribe(ctx context.Context, field, value string, onChange SnapshotFunc) (store.Unsubscribe, error) {
	unsub, err := r.store.Subscribe(ctx, store.KindReservations, field, value, func(docs []store.Document) {
		onChange(r.decodeAll(docs))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to reservations by %s: %w", field, err)
	}
	return unsub, nil
}

func (r *DocumentReservationRepo) Approve(ctx context.Context, id string) error {
	err := r.store.Update(ctx, store.KindReservations, id, store.Document{fieldApproved: true})
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("reservation %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to approve reservation %s: %w: %w", id, models.ErrWriteFailure, err)
	}
	return nil
}

func (r *DocumentReservationRepo) Cancel(ctx context.Context, id string) error {
	err := r.store.Delete(ctx, store.KindReservations, id)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("failed to cancel reservation %s: %w: %w", id, models.ErrWriteFailure, err)
}

func (r *DocumentReservationRepo) ResolveProviderName(ctx context.Context, providerID string) string {
	return r.names.GetName(ctx, providerID)
}

func (r *DocumentReservationRepo) decodeAll(docs []store.Document) []models.Reservation {
	out := make([]models.Reservation, 0, len(docs))
	for _, doc := range docs {
		res, ok := decode(doc)
		if !ok {
			r.quarantine(doc)
			continue
		}
		out = append(out, res)
	}
	return out
}

func (r *DocumentReservationRepo) quarantine(doc store.Document) {
	r.logger.Warn("reservationRepo: skipping malformed reservation", zap.String("reservationID", doc.ID()))
}

func encode(res models.Reservation) store.Document {
	return store.Document{
		fieldProviderID:    res.ProviderID,
		fieldCustomerID:    res.CustomerID,
		fieldCustomerEmail: res.CustomerEmail,
		fieldService:       res.ServiceName,
		fieldDateTime:      store.FormatTime(res.ScheduledAt),
		fieldPrice:         res.Price.InexactFloat64(),
		fieldApproved:      res.Approved,
	}
}

// decode converts a stored document into a Reservation. It reports false when
// any required field is missing or malformed.
func decode(doc store.Document) (models.Reservation, bool) {
	id := doc.ID()
	providerID, ok1 := doc.String(fieldProviderID)
	customerID, ok2 := doc.String(fieldCustomerID)
	service, ok3 := doc.String(fieldService)
	at, ok4 := doc.Time(fieldDateTime)
	price, ok5 := doc.Decimal(fieldPrice)
	if id == "" || !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || price.IsNegative() {
		return models.Reservation{}, false
	}
	return models.Reservation{
		ID:            id,
		ProviderID:    providerID,
		CustomerID:    customerID,
		CustomerEmail: doc.OptionalString(fieldCustomerEmail),
		ServiceName:   service,
		Price:         price,
		ScheduledAt:   at,
		Approved:      doc.Bool(fieldApproved),
	}, true
}
