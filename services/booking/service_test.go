package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"barberbook/models"
	"barberbook/utils"

	"go.uber.org/zap"
)

func newService(res *fakeReservations) *DefaultBookingSessionService {
	sessions := NewCacheSessionStore(utils.NewMemoryCache(), 30*time.Minute)
	return NewDefaultBookingSessionService(sessions, catalog(), res, zap.NewNop())
}

func strPtr(s string) *string { return &s }

func TestSessionLifecycle(t *testing.T) {
	res := &fakeReservations{}
	svc := newService(res)
	ctx := context.Background()

	snap, err := svc.InitiateSession(ctx, customer, "p1")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if snap.SessionID == "" || snap.State != StateReady || len(snap.Services) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	at := slot
	if _, err := svc.UpdateSession(ctx, customer, snap.SessionID, SessionUpdate{ServiceID: strPtr("s1"), Time: &at}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.GetSession(ctx, customer, snap.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SelectedServiceID != "s1" || got.SelectedTime == nil || !got.SelectedTime.Equal(slot) {
		t.Fatalf("selections not persisted: %+v", got)
	}

	confirmed, err := svc.ConfirmBooking(ctx, customer, models.RoleCustomer, snap.SessionID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.State != StateConfirmed || confirmed.ReservationID == "" {
		t.Fatalf("unexpected confirmed snapshot %+v", confirmed)
	}

	if err := svc.CancelSession(ctx, customer, snap.SessionID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.GetSession(ctx, customer, snap.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session to be gone, got %v", err)
	}
}

func TestSessionOwnership(t *testing.T) {
	svc := newService(&fakeReservations{})
	ctx := context.Background()
	snap, _ := svc.InitiateSession(ctx, customer, "p1")

	other := &models.Session{ID: "u2"}
	if _, err := svc.GetSession(ctx, other, snap.SessionID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected foreign session to read as not found, got %v", err)
	}
	if _, err := svc.GetSession(ctx, nil, snap.SessionID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected anonymous caller to be refused, got %v", err)
	}
}

func TestAnonymousSessionIsClaimedOnSignIn(t *testing.T) {
	res := &fakeReservations{}
	svc := newService(res)
	ctx := context.Background()

	snap, err := svc.InitiateSession(ctx, nil, "p1")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	at := slot
	_, _ = svc.UpdateSession(ctx, nil, snap.SessionID, SessionUpdate{ServiceID: strPtr("s1"), Time: &at})

	if _, err := svc.ConfirmBooking(ctx, nil, models.RoleAnonymous, snap.SessionID); !errors.Is(err, ErrNotCustomer) {
		t.Fatalf("expected ErrNotCustomer for anonymous confirm, got %v", err)
	}
	if _, err := svc.ConfirmBooking(ctx, customer, models.RoleCustomer, snap.SessionID); err != nil {
		t.Fatalf("confirm after sign-in: %v", err)
	}
	if res.count() != 1 {
		t.Fatalf("expected one reservation, got %d", res.count())
	}
}

func TestConcurrentConfirmCreatesOneReservation(t *testing.T) {
	res := &fakeReservations{}
	svc := newService(res)
	ctx := context.Background()
	snap, _ := svc.InitiateSession(ctx, customer, "p1")
	at := slot
	_, _ = svc.UpdateSession(ctx, customer, snap.SessionID, SessionUpdate{ServiceID: strPtr("s1"), Time: &at})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.ConfirmBooking(ctx, customer, models.RoleCustomer, snap.SessionID)
		}()
	}
	wg.Wait()
	if res.count() != 1 {
		t.Fatalf("expected exactly one reservation, got %d", res.count())
	}
	if n := svc.locks.len(); n != 0 {
		t.Fatalf("expected session locks to be released, %d left", n)
	}
}

func TestInitiateUnknownProvider(t *testing.T) {
	svc := newService(&fakeReservations{})
	if _, err := svc.InitiateSession(context.Background(), customer, "ghost"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.InitiateSession(context.Background(), customer, ""); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
