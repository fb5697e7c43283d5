package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barberbook/config"
	"barberbook/database"
	"barberbook/database/repository"
	"barberbook/handlers"
	"barberbook/middleware"
	"barberbook/routes"
	"barberbook/services/appointments"
	"barberbook/services/approval"
	"barberbook/services/booking"
	"barberbook/services/identity"
	"barberbook/services/role"
	"barberbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.GetLogger()

	if cfg.JWTSecret == "" && config.IsProduction() {
		logger.Sugar().Fatal("main: JWT_SECRET must be set in production")
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	backend, err := database.OpenStore(rootCtx, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to open record store: %v", err)
	}

	// Caches: Redis for real backends, process-local for the memory backend.
	var (
		tokenCache   utils.Cache
		sessionCache utils.Cache
		nameCache    utils.Cache
		redisClients []*redis.Client
	)
	if cfg.StoreBackend == config.BackendMemory {
		tokenCache = utils.NewMemoryCache()
		sessionCache = utils.NewMemoryCache()
		nameCache = sessionCache
	} else {
		tokenCache = &utils.RedisCache{Client: utils.GetAuthCacheClient()}
		sessionCache = &utils.RedisCache{Client: utils.GetCacheClient()}
		nameCache = sessionCache
		redisClients = []*redis.Client{utils.GetCacheClient(), utils.GetAuthCacheClient()}
	}
	utils.StartHealthMonitor(rootCtx, redisClients, backend.Ping)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin, logger))

	// repositories.
	var (
		provRepo repository.ProviderRepository    = repository.NewDocumentProviderRepo(backend.Store, nameCache, cfg.ProviderNameTTL(), logger)
		custRepo repository.CustomerRepository    = repository.NewDocumentCustomerRepo(backend.Store)
		resRepo  repository.ReservationRepository = repository.NewDocumentReservationRepo(backend.Store, provRepo, logger)
	)

	// services.
	idp := identity.NewDefaultIdentityProvider(
		backend.Store,
		custRepo,
		tokenCache,
		utils.NewTokenSigner(cfg.JWTSecret),
		cfg.TokenTTL(),
		logger,
	)
	tracker := role.NewTracker(role.NewResolver(provRepo, custRepo), idp, logger)
	bookingService := booking.NewDefaultBookingSessionService(
		booking.NewCacheSessionStore(sessionCache, cfg.BookingSessionTTL()),
		provRepo,
		resRepo,
		logger,
	)
	appointmentService := appointments.NewService(resRepo, logger)
	dashboards := approval.NewRegistry(resRepo, logger)

	authHandler := handlers.NewAuthHandler(idp, tracker)
	providerHandler := handlers.NewProviderHandler(provRepo)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	dashboardHandler := handlers.NewDashboardHandler(dashboards)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Identity: idp,
		Tracker:  tracker,

		// Auth endpoints.
		SignUpHandler:  authHandler.SignUpHandler,
		LoginHandler:   authHandler.LoginHandler,
		LogoutHandler:  authHandler.LogoutHandler,
		SessionHandler: authHandler.SessionHandler,

		// Provider directory endpoints.
		ListProvidersHandler: providerHandler.ListProvidersHandler,
		GetProviderHandler:   providerHandler.GetProviderHandler,

		// Booking endpoints.
		InitiateSession: bookingHandler.InitiateSession,
		GetSession:      bookingHandler.GetSession,
		UpdateSession:   bookingHandler.UpdateSession,
		ConfirmBooking:  bookingHandler.ConfirmBooking,
		CancelSession:   bookingHandler.CancelSession,

		// Customer appointment endpoints.
		ListAppointmentsHandler:   appointmentHandler.ListAppointmentsHandler,
		StreamAppointmentsHandler: appointmentHandler.StreamAppointmentsHandler,
		CancelAppointmentHandler:  appointmentHandler.CancelAppointmentHandler,

		// Provider dashboard endpoints.
		ListReservationsHandler:   dashboardHandler.ListReservationsHandler,
		StreamReservationsHandler: dashboardHandler.StreamReservationsHandler,
		RequestApproveHandler:     dashboardHandler.RequestApproveHandler,
		RequestCancelHandler:      dashboardHandler.RequestCancelHandler,
		ConfirmActionHandler:      dashboardHandler.ConfirmActionHandler,
		DismissActionHandler:      dashboardHandler.DismissActionHandler,
		CloseDashboardHandler:     dashboardHandler.CloseDashboardHandler,

		HealthHandler: handlers.HealthHandler,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Closing the live sources ends every open SSE response before draining.
	dashboards.CloseAll()
	appointmentService.Close()
	tracker.Close()
	stop()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if err := backend.Close(ctx); err != nil {
		logger.Sugar().Errorf("main: failed to close record store: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
