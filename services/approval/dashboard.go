// Package approval implements the provider's live review of incoming
// reservations with an explicit confirm step before every mutation.
package approval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"barberbook/database/store"
	"barberbook/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Action is a mutation awaiting confirmation.
type Action string

const (
	ActionApprove Action = "approve"
	ActionCancel  Action = "cancel"
)

// Token identifies a pending confirmation. It is valid for exactly one
// Confirm or Dismiss.
type Token string

var (
	ErrAlreadyApproved = fmt.Errorf("%w: reservation is already approved", models.ErrInvalidInput)
	ErrNotInSnapshot   = fmt.Errorf("reservation is not on the dashboard: %w", models.ErrNotFound)
	ErrUnknownToken    = fmt.Errorf("confirmation token: %w", models.ErrNotFound)
	ErrActionMismatch  = fmt.Errorf("%w: token was issued for another action", models.ErrInvalidInput)
	ErrStopped         = errors.New("dashboard is stopped")
)

// Pending describes a requested, unconfirmed mutation.
type Pending struct {
	Token         Token  `json:"token"`
	Action        Action `json:"action"`
	ReservationID string `json:"reservationId"`
}

// ReservationSource is the slice of the reservation repository the
// dashboard needs.
type ReservationSource interface {
	SubscribeForProvider(ctx context.Context, providerID string, onChange func([]models.Reservation)) (store.Unsubscribe, error)
	Approve(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
}

// Dashboard holds one provider's live reservation list. Each snapshot from
// the store replaces the list wholesale; mutations never edit it locally.
type Dashboard struct {
	providerID string
	repo       ReservationSource
	logger     *zap.Logger

	mu           sync.Mutex
	items        []models.Reservation
	loaded       bool
	pending      map[Token]Pending
	listeners    map[int]func([]models.Reservation)
	nextListener int
	unsub        store.Unsubscribe
	stopped      bool

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	stopOnce  sync.Once
}

func NewDashboard(providerID string, repo ReservationSource, logger *zap.Logger) *Dashboard {
	return &Dashboard{
		providerID: providerID,
		repo:       repo,
		logger:     logger,
		pending:    make(map[Token]Pending),
		listeners:  make(map[int]func([]models.Reservation)),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start subscribes to the provider's reservations.
func (d *Dashboard) Start(ctx context.Context) error {
	unsub, err := d.repo.SubscribeForProvider(ctx, d.providerID, d.onSnapshot)
	if err != nil {
		return err
	}
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		unsub()
		return ErrStopped
	}
	d.unsub = unsub
	d.mu.Unlock()
	return nil
}

func (d *Dashboard) onSnapshot(items []models.Reservation) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.items = items
	d.loaded = true
	listeners := make([]func([]models.Reservation), 0, len(d.listeners))
	for _, fn := range d.listeners {
		listeners = append(listeners, fn)
	}
	d.mu.Unlock()

	d.readyOnce.Do(func() { close(d.ready) })
	for _, fn := range listeners {
		fn(copyItems(items))
	}
}

// Ready is closed once the first snapshot has arrived.
func (d *Dashboard) Ready() <-chan struct{} {
	return d.ready
}

// Done is closed once the dashboard is stopped.
func (d *Dashboard) Done() <-chan struct{} {
	return d.done
}

// Snapshot returns the last delivered list and whether any was delivered.
func (d *Dashboard) Snapshot() ([]models.Reservation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyItems(d.items), d.loaded
}

// AddListener registers fn for every future snapshot.
func (d *Dashboard) AddListener(fn func([]models.Reservation)) (remove func()) {
	d.mu.Lock()
	id := d.nextListener
	d.nextListener++
	d.listeners[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

// RequestApprove issues a token to approve a pending reservation that is
// currently on the dashboard.
func (d *Dashboard) RequestApprove(reservationID string) (Token, error) {
	return d.request(ActionApprove, reservationID)
}

// RequestCancel issues a token to cancel a reservation on the dashboard.
func (d *Dashboard) RequestCancel(reservationID string) (Token, error) {
	return d.request(ActionCancel, reservationID)
}

func (d *Dashboard) request(action Action, reservationID string) (Token, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return "", ErrStopped
	}
	item, ok := d.findLocked(reservationID)
	if !ok {
		return "", ErrNotInSnapshot
	}
	if action == ActionApprove && item.Approved {
		return "", ErrAlreadyApproved
	}
	token := Token(uuid.New().String())
	d.pending[token] = Pending{Token: token, Action: action, ReservationID: reservationID}
	return token, nil
}

// ConfirmApprove performs the approval requested under token.
func (d *Dashboard) ConfirmApprove(ctx context.Context, token Token) error {
	_, err := d.confirm(ctx, token, ActionApprove)
	return err
}

// ConfirmCancel performs the cancellation requested under token.
func (d *Dashboard) ConfirmCancel(ctx context.Context, token Token) error {
	_, err := d.confirm(ctx, token, ActionCancel)
	return err
}

// Confirm performs whichever action token was issued for.
func (d *Dashboard) Confirm(ctx context.Context, token Token) (Pending, error) {
	return d.confirm(ctx, token, "")
}

// confirm consumes token and runs its action. The token is spent even when
// the mutation fails; the visible list only changes through the subscription.
func (d *Dashboard) confirm(ctx context.Context, token Token, want Action) (Pending, error) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return Pending{}, ErrStopped
	}
	p, ok := d.pending[token]
	if !ok {
		d.mu.Unlock()
		return Pending{}, ErrUnknownToken
	}
	if want != "" && p.Action != want {
		d.mu.Unlock()
		return Pending{}, ErrActionMismatch
	}
	delete(d.pending, token)
	d.mu.Unlock()

	var err error
	switch p.Action {
	case ActionApprove:
		err = d.repo.Approve(ctx, p.ReservationID)
	case ActionCancel:
		err = d.repo.Cancel(ctx, p.ReservationID)
	}
	if err != nil {
		d.logger.Warn("approval: mutation failed",
			zap.String("action", string(p.Action)),
			zap.String("reservationID", p.ReservationID),
			zap.Error(err))
		return p, err
	}
	return p, nil
}

// Dismiss discards a pending confirmation without mutating anything.
func (d *Dashboard) Dismiss(token Token) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[token]
	delete(d.pending, token)
	return ok
}

// Stop ends the subscription. Subsequent calls are no-ops.
func (d *Dashboard) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		unsub := d.unsub
		d.unsub = nil
		d.pending = make(map[Token]Pending)
		d.listeners = make(map[int]func([]models.Reservation))
		d.mu.Unlock()
		close(d.done)
		if unsub != nil {
			unsub()
		}
	})
}

func (d *Dashboard) findLocked(id string) (models.Reservation, bool) {
	for _, r := range d.items {
		if r.ID == id {
			return r, true
		}
	}
	return models.Reservation{}, false
}

func copyItems(items []models.Reservation) []models.Reservation {
	return append([]models.Reservation{}, items...)
}
