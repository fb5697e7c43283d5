package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"barberbook/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingSessionService manages booking workflows that span several requests.
type BookingSessionService interface {
	InitiateSession(ctx context.Context, owner *models.Session, providerID string) (*Snapshot, error)
	GetSession(ctx context.Context, owner *models.Session, sessionID string) (*Snapshot, error)
	UpdateSession(ctx context.Context, owner *models.Session, sessionID string, update SessionUpdate) (*Snapshot, error)
	ConfirmBooking(ctx context.Context, owner *models.Session, role models.Role, sessionID string) (*Snapshot, error)
	CancelSession(ctx context.Context, owner *models.Session, sessionID string) error
}

// SessionUpdate carries the selections of an UpdateSession call. Nil fields
// are left unchanged.
type SessionUpdate struct {
	ServiceID *string    `json:"serviceId"`
	Time      *time.Time `json:"time"`
}

// DefaultBookingSessionService implements BookingSessionService.
type DefaultBookingSessionService struct {
	Sessions     SessionStore
	Providers    ProviderSource
	Reservations ReservationCreator
	Logger       *zap.Logger

	locks sessionLocks
}

// sessionLocks hands out one mutex per booking session. An entry lives only
// while some request holds or waits for it.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) acquire(id string) func() {
	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[string]*sessionLock)
	}
	e, ok := l.entries[id]
	if !ok {
		e = &sessionLock{}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func NewDefaultBookingSessionService(sessions SessionStore, providers ProviderSource, reservations ReservationCreator, logger *zap.Logger) *DefaultBookingSessionService {
	return &DefaultBookingSessionService{
		Sessions:     sessions,
		Providers:    providers,
		Reservations: reservations,
		Logger:       logger,
	}
}

// lock serializes requests against one booking session within this process.
func (s *DefaultBookingSessionService) lock(sessionID string) func() {
	return s.locks.acquire(sessionID)
}

func ownerID(owner *models.Session) string {
	if owner == nil {
		return ""
	}
	return owner.ID
}

func (s *DefaultBookingSessionService) InitiateSession(ctx context.Context, owner *models.Session, providerID string) (*Snapshot, error) {
	if providerID == "" {
		return nil, fmt.Errorf("%w: providerId is required", models.ErrInvalidInput)
	}
	w := NewWorkflow(providerID, s.Providers, s.Reservations)
	if err := w.Load(ctx); err != nil {
		return nil, err
	}

	snap := w.Snapshot()
	snap.SessionID = uuid.New().String()
	snap.OwnerID = ownerID(owner)
	snap.UpdatedAt = time.Now().UTC()
	if err := s.Sessions.Save(ctx, snap); err != nil {
		return nil, err
	}
	s.Logger.Debug("booking: session initiated", zap.String("sessionID", snap.SessionID), zap.String("providerID", providerID))
	return &snap, nil
}

func (s *DefaultBookingSessionService) GetSession(ctx context.Context, owner *models.Session, sessionID string) (*Snapshot, error) {
	snap, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *DefaultBookingSessionService) UpdateSession(ctx context.Context, owner *models.Session, sessionID string, update SessionUpdate) (*Snapshot, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	snap, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	w := Restore(snap, s.Providers, s.Reservations)
	if update.ServiceID != nil {
		if err := w.SelectService(*update.ServiceID); err != nil {
			return nil, err
		}
	}
	if update.Time != nil {
		if err := w.SelectTime(*update.Time); err != nil {
			return nil, err
		}
	}
	return s.save(ctx, w)
}

func (s *DefaultBookingSessionService) ConfirmBooking(ctx context.Context, owner *models.Session, role models.Role, sessionID string) (*Snapshot, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	snap, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	w := Restore(snap, s.Providers, s.Reservations)
	id, confirmErr := w.Confirm(ctx, owner, role)

	saved, err := s.save(ctx, w)
	if err != nil {
		if confirmErr == nil {
			// The reservation exists; only the session bookkeeping was lost.
			s.Logger.Error("booking: failed to persist confirmed session", zap.String("reservationID", id), zap.Error(err))
			final := w.Snapshot()
			return &final, nil
		}
		s.Logger.Warn("booking: failed to persist failed session", zap.String("sessionID", sessionID), zap.Error(err))
	}
	if confirmErr != nil {
		return saved, confirmErr
	}
	s.Logger.Info("booking: reservation created", zap.String("reservationID", id), zap.String("providerID", snap.ProviderID))
	return saved, nil
}

func (s *DefaultBookingSessionService) CancelSession(ctx context.Context, owner *models.Session, sessionID string) error {
	unlock := s.lock(sessionID)
	defer unlock()

	if _, err := s.load(ctx, owner, sessionID); err != nil {
		return err
	}
	return s.Sessions.Delete(ctx, sessionID)
}

func (s *DefaultBookingSessionService) load(ctx context.Context, owner *models.Session, sessionID string) (Snapshot, error) {
	snap, err := s.Sessions.Load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	// A session started before signing in is claimed by the first signed-in
	// caller that presents its id.
	if snap.OwnerID == "" && owner != nil {
		snap.OwnerID = owner.ID
	}
	if snap.OwnerID != ownerID(owner) {
		return Snapshot{}, ErrSessionNotFound
	}
	return snap, nil
}

func (s *DefaultBookingSessionService) save(ctx context.Context, w *Workflow) (*Snapshot, error) {
	snap := w.Snapshot()
	if err := s.Sessions.Save(ctx, snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
