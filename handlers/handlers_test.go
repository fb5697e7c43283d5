package handlers_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	customerRepo "barberbook/database/repository/customer"
	providerRepo "barberbook/database/repository/provider"
	reservationRepo "barberbook/database/repository/reservation"
	"barberbook/database/store"
	"barberbook/handlers"
	"barberbook/models"
	"barberbook/routes"
	"barberbook/services/appointments"
	"barberbook/services/approval"
	"barberbook/services/booking"
	"barberbook/services/identity"
	"barberbook/services/role"
	"barberbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router     *gin.Engine
	idp        *identity.DefaultIdentityProvider
	providers  *providerRepo.DocumentProviderRepo
	dashboards *approval.Registry
	appts      *appointments.Service
	tracker    *role.Tracker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	s := store.NewMemoryStore()

	provRepo := providerRepo.NewDocumentProviderRepo(s, utils.NewMemoryCache(), time.Minute, logger)
	custRepo := customerRepo.NewDocumentCustomerRepo(s)
	resRepo := reservationRepo.NewDocumentReservationRepo(s, provRepo, logger)

	idp := identity.NewDefaultIdentityProvider(s, custRepo, utils.NewMemoryCache(), utils.NewTokenSigner("test-secret"), time.Hour, logger)
	tracker := role.NewTracker(role.NewResolver(provRepo, custRepo), idp, logger)
	bookingSvc := booking.NewDefaultBookingSessionService(
		booking.NewCacheSessionStore(utils.NewMemoryCache(), time.Hour), provRepo, resRepo, logger)
	dashboards := approval.NewRegistry(resRepo, logger)

	authHandler := handlers.NewAuthHandler(idp, tracker)
	providerHandler := handlers.NewProviderHandler(provRepo)
	bookingHandler := handlers.NewBookingHandler(bookingSvc)
	apptSvc := appointments.NewService(resRepo, logger)
	appointmentHandler := handlers.NewAppointmentHandler(apptSvc)
	dashboardHandler := handlers.NewDashboardHandler(dashboards)

	hb := &handlers.HandlerBundle{
		Identity:                  idp,
		Tracker:                   tracker,
		SignUpHandler:             authHandler.SignUpHandler,
		LoginHandler:              authHandler.LoginHandler,
		LogoutHandler:             authHandler.LogoutHandler,
		SessionHandler:            authHandler.SessionHandler,
		ListProvidersHandler:      providerHandler.ListProvidersHandler,
		GetProviderHandler:        providerHandler.GetProviderHandler,
		InitiateSession:           bookingHandler.InitiateSession,
		GetSession:                bookingHandler.GetSession,
		UpdateSession:             bookingHandler.UpdateSession,
		ConfirmBooking:            bookingHandler.ConfirmBooking,
		CancelSession:             bookingHandler.CancelSession,
		ListAppointmentsHandler:   appointmentHandler.ListAppointmentsHandler,
		StreamAppointmentsHandler: appointmentHandler.StreamAppointmentsHandler,
		CancelAppointmentHandler:  appointmentHandler.CancelAppointmentHandler,
		ListReservationsHandler:   dashboardHandler.ListReservationsHandler,
		StreamReservationsHandler: dashboardHandler.StreamReservationsHandler,
		RequestApproveHandler:     dashboardHandler.RequestApproveHandler,
		RequestCancelHandler:      dashboardHandler.RequestCancelHandler,
		ConfirmActionHandler:      dashboardHandler.ConfirmActionHandler,
		DismissActionHandler:      dashboardHandler.DismissActionHandler,
		CloseDashboardHandler:     dashboardHandler.CloseDashboardHandler,
		HealthHandler:             handlers.HealthHandler,
	}

	r := gin.New()
	routes.RegisterRoutes(r, hb)

	ts := &testServer{router: r, idp: idp, providers: provRepo, dashboards: dashboards, appts: apptSvc, tracker: tracker}
	t.Cleanup(func() {
		dashboards.CloseAll()
		tracker.Close()
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

// seedProvider creates a provider account and profile, then signs in again
// so the role is resolved against the stored profile.
func (ts *testServer) seedProvider(t *testing.T) (id, token string) {
	t.Helper()
	ctx := context.Background()
	res, err := ts.idp.SignUp(ctx, "barber@example.com", "secret123", "Sam")
	if err != nil {
		t.Fatalf("provider sign up: %v", err)
	}
	for _, svc := range []models.Service{
		{ID: "s1", Name: "Cut", Price: decimal.NewFromInt(20)},
		{ID: "s2", Name: "Color", Price: decimal.NewFromInt(50)},
	} {
		if err := ts.providers.CreateService(ctx, svc); err != nil {
			t.Fatalf("create service: %v", err)
		}
	}
	profile := models.ProviderProfile{ID: res.Session.ID, Name: "Sam's Cuts", ServiceIDs: []string{"s1", "s2"}}
	if err := ts.providers.Create(ctx, profile); err != nil {
		t.Fatalf("create provider: %v", err)
	}
	login, err := ts.idp.SignIn(ctx, "barber@example.com", "secret123")
	if err != nil {
		t.Fatalf("provider sign in: %v", err)
	}
	return res.Session.ID, login.Token
}

func (ts *testServer) signUpCustomer(t *testing.T, email string) identity.AuthResult {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{"name": "Alex", "email": email, "password": "secret123"})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: status %d body %s", w.Code, w.Body.String())
	}
	return decode[identity.AuthResult](t, w)
}

func TestBookingToApprovalFlow(t *testing.T) {
	ts := newTestServer(t)
	providerID, providerToken := ts.seedProvider(t)
	customer := ts.signUpCustomer(t, "alex@example.com")

	// Session reports a resolved customer with the customer screens.
	w := ts.do(t, http.MethodGet, "/api/session", customer.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("session: status %d", w.Code)
	}
	sess := decode[struct {
		Resolution role.Resolution `json:"resolution"`
	}](t, w)
	if sess.Resolution.Status != role.StatusResolved || sess.Resolution.Role != models.RoleCustomer {
		t.Fatalf("resolution = %+v, want resolved customer", sess.Resolution)
	}

	// Provider directory lists the seeded provider.
	w = ts.do(t, http.MethodGet, "/api/providers", "", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(providerID)) {
		t.Fatalf("providers: status %d body %s", w.Code, w.Body.String())
	}

	// Start a booking, select service and time, confirm.
	w = ts.do(t, http.MethodPost, "/api/booking/session", customer.Token, gin.H{"providerId": providerID})
	if w.Code != http.StatusCreated {
		t.Fatalf("initiate: status %d body %s", w.Code, w.Body.String())
	}
	snap := decode[booking.Snapshot](t, w)
	if snap.State != booking.StateReady || len(snap.Services) != 2 {
		t.Fatalf("initiate snapshot = %+v", snap)
	}

	// Confirming without selections is rejected locally.
	w = ts.do(t, http.MethodPost, "/api/booking/session/"+snap.SessionID+"/confirm", customer.Token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("incomplete confirm: status %d, want 400", w.Code)
	}

	at := time.Date(2030, 3, 4, 10, 30, 0, 0, time.UTC)
	w = ts.do(t, http.MethodPut, "/api/booking/session/"+snap.SessionID, customer.Token, gin.H{"serviceId": "s1", "time": at})
	if w.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodPost, "/api/booking/session/"+snap.SessionID+"/confirm", customer.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: status %d body %s", w.Code, w.Body.String())
	}
	confirmed := decode[booking.Snapshot](t, w)
	if confirmed.State != booking.StateConfirmed || confirmed.ReservationID == "" {
		t.Fatalf("confirmed snapshot = %+v", confirmed)
	}
	reservationID := confirmed.ReservationID

	// The customer sees a pending appointment with the provider's name.
	listing := ts.appointments(t, customer.Token)
	if len(listing.Appointments) != 1 {
		t.Fatalf("appointments = %+v, want 1", listing.Appointments)
	}
	appt := listing.Appointments[0]
	if appt.Status != "pending" || appt.ProviderName != "Sam's Cuts" || appt.ServiceName != "Cut" || !appt.Price.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("appointment = %+v", appt)
	}
	if listing.Notice != appointments.CancellationNotice {
		t.Fatalf("notice = %q", listing.Notice)
	}

	// Customers cannot reach the dashboard; providers cannot book.
	if w := ts.do(t, http.MethodGet, "/api/provider/reservations", customer.Token, nil); w.Code != http.StatusForbidden {
		t.Fatalf("customer dashboard: status %d, want 403", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/appointments", providerToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("provider appointments: status %d, want 403", w.Code)
	}

	// The provider sees the reservation and approves it in two steps.
	w = ts.do(t, http.MethodGet, "/api/provider/reservations", providerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reservations: status %d body %s", w.Code, w.Body.String())
	}
	list := decode[struct {
		Reservations []models.Reservation `json:"reservations"`
	}](t, w)
	if len(list.Reservations) != 1 || list.Reservations[0].ID != reservationID {
		t.Fatalf("reservations = %+v", list.Reservations)
	}

	w = ts.do(t, http.MethodPost, "/api/provider/reservations/"+reservationID+"/approve", providerToken, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("request approve: status %d body %s", w.Code, w.Body.String())
	}
	pending := decode[approval.Pending](t, w)

	w = ts.do(t, http.MethodPost, "/api/provider/confirmations/"+string(pending.Token), providerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm approve: status %d body %s", w.Code, w.Body.String())
	}

	// Tokens are single use.
	w = ts.do(t, http.MethodPost, "/api/provider/confirmations/"+string(pending.Token), providerToken, nil)
	if w.Code == http.StatusOK {
		t.Fatalf("reused token accepted")
	}

	listing = ts.appointments(t, customer.Token)
	if len(listing.Appointments) != 1 || listing.Appointments[0].Status != "approved" {
		t.Fatalf("appointments after approve = %+v", listing.Appointments)
	}

	// The customer cancels; the appointment disappears.
	if w := ts.do(t, http.MethodDelete, "/api/appointments/"+reservationID, customer.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("cancel: status %d body %s", w.Code, w.Body.String())
	}
	if listing := ts.appointments(t, customer.Token); len(listing.Appointments) != 0 {
		t.Fatalf("appointments after cancel = %+v", listing.Appointments)
	}

	if w := ts.do(t, http.MethodDelete, "/api/provider/dashboard", providerToken, nil); w.Code != http.StatusOK {
		t.Fatalf("close dashboard: status %d", w.Code)
	}
}

func (ts *testServer) appointments(t *testing.T, token string) appointments.Listing {
	t.Helper()
	w := ts.do(t, http.MethodGet, "/api/appointments", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("appointments: status %d body %s", w.Code, w.Body.String())
	}
	return decode[appointments.Listing](t, w)
}

func TestCustomerCannotCancelOthersAppointment(t *testing.T) {
	ts := newTestServer(t)
	providerID, _ := ts.seedProvider(t)
	owner := ts.signUpCustomer(t, "owner@example.com")
	other := ts.signUpCustomer(t, "other@example.com")

	w := ts.do(t, http.MethodPost, "/api/booking/session", owner.Token, gin.H{"providerId": providerID})
	snap := decode[booking.Snapshot](t, w)
	at := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	ts.do(t, http.MethodPut, "/api/booking/session/"+snap.SessionID, owner.Token, gin.H{"serviceId": "s2", "time": at})
	w = ts.do(t, http.MethodPost, "/api/booking/session/"+snap.SessionID+"/confirm", owner.Token, nil)
	confirmed := decode[booking.Snapshot](t, w)
	if confirmed.ReservationID == "" {
		t.Fatalf("confirm failed: %s", w.Body.String())
	}

	if w := ts.do(t, http.MethodDelete, "/api/appointments/"+confirmed.ReservationID, other.Token, nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign cancel: status %d, want 403", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/booking/session/"+snap.SessionID, other.Token, nil); w.Code == http.StatusOK {
		t.Fatalf("foreign booking session readable")
	}
}

func TestAuthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	// Anonymous callers get the login screens and cannot book.
	w := ts.do(t, http.MethodGet, "/api/session", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous session: status %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/appointments", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous appointments: status %d, want 401", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/session", "not-a-token", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", w.Code)
	}

	auth := ts.signUpCustomer(t, "dana@example.com")
	w = ts.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{"name": "Dana", "email": "dana@example.com", "password": "secret123"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: status %d, want 409", w.Code)
	}
	w = ts.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "dana@example.com", "password": "wrong-pass"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d, want 401", w.Code)
	}

	if w := ts.do(t, http.MethodPost, "/api/auth/logout", auth.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout: status %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/session", auth.Token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: status %d, want 401", w.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: status %d", w.Code)
	}
}

// openStream starts an SSE request against a live server and waits for the
// first event. The returned channel is closed when the server ends the body.
func openStream(t *testing.T, srv *httptest.Server, path, token string) <-chan struct{} {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("open stream: status %d", resp.StatusCode)
	}

	first := make(chan struct{})
	ended := make(chan struct{})
	go func() {
		defer close(ended)
		defer resp.Body.Close()
		r := bufio.NewReader(resp.Body)
		signalled := false
		for {
			line, err := r.ReadString('\n')
			if !signalled && strings.HasPrefix(line, "event:") {
				close(first)
				signalled = true
			}
			if err != nil {
				return
			}
		}
	}()
	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatalf("no event on %s", path)
	}
	return ended
}

func TestStreamsEndWhenSourceCloses(t *testing.T) {
	ts := newTestServer(t)
	_, providerToken := ts.seedProvider(t)
	customer := ts.signUpCustomer(t, "sse@example.com")
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	dashboardStream := openStream(t, srv, "/api/provider/reservations/stream", providerToken)
	if w := ts.do(t, http.MethodDelete, "/api/provider/dashboard", providerToken, nil); w.Code != http.StatusOK {
		t.Fatalf("close dashboard: status %d", w.Code)
	}
	select {
	case <-dashboardStream:
	case <-time.After(2 * time.Second):
		t.Fatalf("dashboard stream stayed open after the dashboard closed")
	}

	appointmentStream := openStream(t, srv, "/api/appointments/stream", customer.Token)
	ts.appts.Close()
	select {
	case <-appointmentStream:
	case <-time.After(2 * time.Second):
		t.Fatalf("appointment stream stayed open after shutdown")
	}
	if w := ts.do(t, http.MethodGet, "/api/appointments/stream", customer.Token, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("stream after shutdown: status %d, want 503", w.Code)
	}
}
