package routes

import (
	"time"

	"barberbook/handlers"
	"barberbook/middleware"
	"barberbook/services/navigation"
	"barberbook/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers sign-up, login, logout and session endpoints.
func RegisterAuthRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	auth := api.Group("/auth")
	{
		auth.POST("/signup", hb.SignUpHandler)
		auth.POST("/login", hb.LoginHandler)
		auth.POST("/logout", hb.LogoutHandler)
	}
	api.GET("/session", hb.SessionHandler)
}

// RegisterProviderRoutes registers the public provider directory.
func RegisterProviderRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	providers := api.Group("/providers")
	{
		providers.GET("", hb.ListProvidersHandler)
		providers.GET("/:id", hb.GetProviderHandler)
	}
}

// RegisterBookingRoutes sets up the endpoints for the booking workflow.
func RegisterBookingRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	bookingGroup := api.Group("/booking")
	{
		bookingGroup.Use(middleware.RequireScreen(navigation.ScreenBooking))
		bookingGroup.POST("/session", hb.InitiateSession)
		bookingGroup.GET("/session/:sessionID", hb.GetSession)
		bookingGroup.PUT("/session/:sessionID", hb.UpdateSession)
		bookingGroup.DELETE("/session/:sessionID", hb.CancelSession)
		bookingGroup.POST("/session/:sessionID/confirm", hb.ConfirmBooking)
	}
}

// RegisterAppointmentRoutes registers the customer's appointment screen.
func RegisterAppointmentRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	appts := api.Group("/appointments")
	{
		appts.Use(middleware.RequireScreen(navigation.ScreenAppointments))
		appts.GET("", hb.ListAppointmentsHandler)
		appts.GET("/stream", hb.StreamAppointmentsHandler)
		appts.DELETE("/:id", hb.CancelAppointmentHandler)
	}
}

// RegisterDashboardRoutes registers the provider's approval dashboard.
func RegisterDashboardRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	provider := api.Group("/provider")
	{
		provider.Use(middleware.RequireScreen(navigation.ScreenApprovalDashboard))
		provider.GET("/reservations", hb.ListReservationsHandler)
		provider.GET("/reservations/stream", hb.StreamReservationsHandler)
		provider.POST("/reservations/:id/approve", hb.RequestApproveHandler)
		provider.POST("/reservations/:id/cancel", hb.RequestCancelHandler)
		provider.POST("/confirmations/:token", hb.ConfirmActionHandler)
		provider.DELETE("/confirmations/:token", hb.DismissActionHandler)
		provider.DELETE("/dashboard", hb.CloseDashboardHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)

	api := r.Group("/api")
	api.Use(middleware.SessionMiddleware(hb.Identity, hb.Tracker, utils.GetLogger()))
	RegisterAuthRoutes(api, hb)
	RegisterProviderRoutes(api, hb)
	RegisterBookingRoutes(api, hb)
	RegisterAppointmentRoutes(api, hb)
	RegisterDashboardRoutes(api, hb)
}
