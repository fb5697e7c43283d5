// Package booking drives a customer from a provider's page to a persisted
// reservation.
package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"barberbook/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle position of a booking workflow.
type State string

const (
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateConfirmed  State = "confirmed"
	StateFailed     State = "failed"
)

// ProviderSource reads the catalog a booking is made against.
type ProviderSource interface {
	GetByID(ctx context.Context, id string) (*models.ProviderProfile, error)
	GetService(ctx context.Context, id string) (*models.Service, error)
}

// ReservationCreator persists a confirmed booking.
type ReservationCreator interface {
	Create(ctx context.Context, r models.Reservation) (string, error)
}

// Workflow is one customer's booking attempt against one provider. It is safe
// for concurrent use; its lock is never held across a store call.
type Workflow struct {
	providers    ProviderSource
	reservations ReservationCreator

	mu    sync.Mutex
	state Snapshot
}

// NewWorkflow starts a workflow in StateLoading. Call Load before selecting.
func NewWorkflow(providerID string, providers ProviderSource, reservations ReservationCreator) *Workflow {
	return &Workflow{
		providers:    providers,
		reservations: reservations,
		state:        Snapshot{ProviderID: providerID, State: StateLoading},
	}
}

// Restore rebuilds a workflow from a persisted snapshot.
func Restore(snap Snapshot, providers ProviderSource, reservations ReservationCreator) *Workflow {
	return &Workflow{providers: providers, reservations: reservations, state: snap}
}

// Load fetches the provider profile and resolves all of its services
// concurrently. Either every service resolves or the load fails as a whole.
func (w *Workflow) Load(ctx context.Context) error {
	w.mu.Lock()
	providerID := w.state.ProviderID
	w.mu.Unlock()

	provider, err := w.providers.GetByID(ctx, providerID)
	if err != nil {
		return w.loadFailed(fmt.Errorf("failed to load provider %s: %w", providerID, err))
	}

	services := make([]models.Service, len(provider.ServiceIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range provider.ServiceIDs {
		i, id := i, id
		g.Go(func() error {
			svc, err := w.providers.GetService(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to resolve service %s: %w", id, err)
			}
			services[i] = *svc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return w.loadFailed(err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Provider = provider
	w.state.Services = services
	w.state.State = StateReady
	return nil
}

// loadFailed moves the workflow to Failed without a catalog. Such a workflow
// cannot return to Ready.
func (w *Workflow) loadFailed(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Provider = nil
	w.state.Services = nil
	w.state.State = StateFailed
	w.state.Error = err.Error()
	w.touchLocked()
	return err
}

// SelectService records the chosen service. Allowed in Ready and Failed;
// selecting after a failure returns the workflow to Ready.
func (w *Workflow) SelectService(serviceID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	if _, ok := w.serviceLocked(serviceID); !ok {
		return ErrUnknownService
	}
	w.state.SelectedServiceID = serviceID
	w.touchLocked()
	return nil
}

// SelectTime records the chosen instant. No availability or past-instant
// check is made.
func (w *Workflow) SelectTime(at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	if at.IsZero() {
		return fmt.Errorf("%w: time is required", models.ErrInvalidInput)
	}
	t := at.UTC()
	w.state.SelectedTime = &t
	w.touchLocked()
	return nil
}

// Confirm persists the selection as a pending reservation for session. It is
// rejected without touching the store when a selection is missing or the
// caller is not a signed-in customer. On failure the selections are kept and
// Confirm may be called again.
func (w *Workflow) Confirm(ctx context.Context, session *models.Session, role models.Role) (string, error) {
	w.mu.Lock()
	if w.state.SelectedServiceID == "" || w.state.SelectedTime == nil {
		w.mu.Unlock()
		return "", ErrSelectionIncomplete
	}
	if session == nil || role != models.RoleCustomer {
		w.mu.Unlock()
		return "", ErrNotCustomer
	}
	if w.state.State != StateReady && w.state.State != StateFailed {
		w.mu.Unlock()
		return "", fmt.Errorf("%w: state is %s", ErrNotReady, w.state.State)
	}
	svc, ok := w.serviceLocked(w.state.SelectedServiceID)
	if !ok {
		w.mu.Unlock()
		return "", ErrUnknownService
	}
	res := models.Reservation{
		ID:            uuid.New().String(),
		ProviderID:    w.state.ProviderID,
		CustomerID:    session.ID,
		CustomerEmail: session.Email,
		ServiceName:   svc.Name,
		Price:         svc.Price,
		ScheduledAt:   *w.state.SelectedTime,
		Approved:      false,
	}
	w.state.State = StateSubmitting
	w.state.Error = ""
	w.mu.Unlock()

	id, err := w.reservations.Create(ctx, res)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	if err != nil {
		w.state.State = StateFailed
		w.state.Error = err.Error()
		return "", err
	}
	w.state.State = StateConfirmed
	w.state.ReservationID = id
	return id, nil
}

// Snapshot returns a copy of the workflow state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := w.state
	snap.Services = append([]models.Service(nil), w.state.Services...)
	if w.state.SelectedTime != nil {
		t := *w.state.SelectedTime
		snap.SelectedTime = &t
	}
	return snap
}

func (w *Workflow) editableLocked() error {
	switch w.state.State {
	case StateReady:
		return nil
	case StateFailed:
		if w.state.Provider == nil {
			return fmt.Errorf("%w: provider catalog failed to load", ErrNotReady)
		}
		w.state.State = StateReady
		w.state.Error = ""
		return nil
	default:
		return fmt.Errorf("%w: state is %s", ErrNotReady, w.state.State)
	}
}

func (w *Workflow) serviceLocked(id string) (models.Service, bool) {
	for _, s := range w.state.Services {
		if s.ID == id {
			return s, true
		}
	}
	return models.Service{}, false
}

func (w *Workflow) touchLocked() {
	w.state.UpdatedAt = time.Now().UTC()
}
