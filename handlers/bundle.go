package handlers

import (
	"barberbook/services/identity"
	"barberbook/services/role"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Identity identity.IdentityProvider
	Tracker  *role.Tracker

	// Auth endpoints
	SignUpHandler  gin.HandlerFunc
	LoginHandler   gin.HandlerFunc
	LogoutHandler  gin.HandlerFunc
	SessionHandler gin.HandlerFunc

	// Provider directory endpoints
	ListProvidersHandler gin.HandlerFunc
	GetProviderHandler   gin.HandlerFunc

	// Booking endpoints
	InitiateSession gin.HandlerFunc
	GetSession      gin.HandlerFunc
	UpdateSession   gin.HandlerFunc
	ConfirmBooking  gin.HandlerFunc
	CancelSession   gin.HandlerFunc

	// Customer appointment endpoints
	ListAppointmentsHandler   gin.HandlerFunc
	StreamAppointmentsHandler gin.HandlerFunc
	CancelAppointmentHandler  gin.HandlerFunc

	// Provider dashboard endpoints
	ListReservationsHandler   gin.HandlerFunc
	StreamReservationsHandler gin.HandlerFunc
	RequestApproveHandler     gin.HandlerFunc
	RequestCancelHandler      gin.HandlerFunc
	ConfirmActionHandler      gin.HandlerFunc
	DismissActionHandler      gin.HandlerFunc
	CloseDashboardHandler     gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}
