// Package appointments serves a customer's own reservations.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	reservationRepo "barberbook/database/repository/reservation"
	"barberbook/database/store"
	"barberbook/models"

	"go.uber.org/zap"
)

// CancellationNotice is advisory text shown with the appointment list. The
// policy it describes is not enforced.
const CancellationNotice = "If you have to cancel, please make sure to do it at least three days before the appointment. Our barbers will appreciate it!"

var (
	// ErrForbidden is returned when a customer acts on another customer's reservation.
	ErrForbidden = errors.New("reservation belongs to another customer")
	// ErrClosed is returned by Subscribe after Close.
	ErrClosed = errors.New("appointment service is shut down")
)

// Appointment is a reservation as shown to the customer who made it.
type Appointment struct {
	models.Reservation
	ProviderName string `json:"providerName"`
	Status       string `json:"status"`
}

// Listing is the customer's appointment screen.
type Listing struct {
	Appointments []Appointment `json:"appointments"`
	Notice       string        `json:"notice"`
}

type Service struct {
	Reservations reservationRepo.ReservationRepository
	Logger       *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func NewService(reservations reservationRepo.ReservationRepository, logger *zap.Logger) *Service {
	return &Service{Reservations: reservations, Logger: logger, done: make(chan struct{})}
}

// Done is closed by Close. Live subscribers should end when it fires.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Close signals every live subscriber to end and refuses new subscriptions.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// List reads the customer's reservations once.
func (s *Service) List(ctx context.Context, customerID string) (*Listing, error) {
	items, err := s.Reservations.ListForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &Listing{Appointments: s.Enrich(ctx, items), Notice: CancellationNotice}, nil
}

// Subscribe streams the customer's appointments until the returned function
// is called.
func (s *Service) Subscribe(ctx context.Context, customerID string, onChange func([]Appointment)) (store.Unsubscribe, error) {
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}
	return s.Reservations.SubscribeForCustomer(ctx, customerID, func(items []models.Reservation) {
		onChange(s.Enrich(context.WithoutCancel(ctx), items))
	})
}

// Enrich attaches provider names, ordered by scheduled time.
func (s *Service) Enrich(ctx context.Context, items []models.Reservation) []Appointment {
	names := make(map[string]string)
	out := make([]Appointment, 0, len(items))
	for _, r := range items {
		name, ok := names[r.ProviderID]
		if !ok {
			name = s.Reservations.ResolveProviderName(ctx, r.ProviderID)
			names[r.ProviderID] = name
		}
		out = append(out, Appointment{Reservation: r, ProviderName: name, Status: r.Status()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out
}

// Cancel deletes one of the customer's own reservations.
func (s *Service) Cancel(ctx context.Context, customerID, reservationID string) error {
	r, err := s.Reservations.Get(ctx, reservationID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if r.CustomerID != customerID {
		return fmt.Errorf("reservation %s: %w", reservationID, ErrForbidden)
	}
	if err := s.Reservations.Cancel(ctx, reservationID); err != nil {
		return err
	}
	s.Logger.Info("appointments: cancelled by customer", zap.String("reservationID", reservationID))
	return nil
}
