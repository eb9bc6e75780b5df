package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"
	"github.com/shopspring/decimal"

	"concert-ticketing/config"
	"concert-ticketing/internal/handlers"
	"concert-ticketing/internal/services/gateway"
	"concert-ticketing/internal/services/gateway/mockpay"
	_ "concert-ticketing/migrations"
	"concert-ticketing/models"
	"concert-ticketing/monitoring"
	"concert-ticketing/security"
	"concert-ticketing/services"
	"concert-ticketing/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize notifications
	var notifier services.Notifier = services.NopNotifier{}
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		notifier = services.NewPubNubNotifier(pubnub.NewPubNub(pnConfig))
	}

	// Initialize payment gateway
	registry := gateway.NewRegistry(gateway.NewFactory())
	if err := registry.RegisterGateway(ctx, gateway.ProviderMockPay, &mockpay.Config{
		MerchantID:   cfg.GatewayMerchantID,
		DeclineAbove: cfg.GatewayDeclineAbove,
	}); err != nil {
		return err
	}
	defer registry.Close(ctx)

	// Initialize services
	inventoryService := services.NewInventoryService(cfg.SeatHoldTimeout)
	ledgerService := services.NewLedgerService()
	sessionService := services.NewSessionService(redisClient, cfg.PaymentTimeout)
	store := services.NewPocketBaseStore(app)
	monitor := monitoring.NewMonitor()
	bookingService := services.NewBookingService(inventoryService, ledgerService, registry, store, sessionService, notifier, monitor)

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(app, bookingService)
	refundHandler := handlers.NewRefundHandler(app, bookingService)
	paymentHandler := handlers.NewPaymentHandler(app, sessionService, registry)
	adminHandler := handlers.NewAdminHandler(app, bookingService, inventoryService, ledgerService, redisClient)

	rateLimiter := security.NewRateLimiter(redisClient, 30)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	inventoryService.StartJanitor(ctx, cfg.CleanupInterval)

	if cfg.EnableMetrics {
		monitoring.StartMetricsServer(cfg.MetricsPort, redisClient)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		loadPublishedEvents(app, bookingService, sessionService)

		if err := bookingService.RestoreCounters(ctx); err != nil {
			slog.Error("bookingService.RestoreCounters()", "error", err)
		}

		// Booking endpoints
		e.Router.POST("/api/v1/bookings", bookingHandler.CreateBooking).
			BindFunc(rateLimiter.BookingRateLimit()).
			BindFunc(rateLimiter.AntiBotCheck())
		e.Router.GET("/api/v1/bookings/history", bookingHandler.GetBookingHistory)
		e.Router.GET("/api/v1/bookings/{orderId}", bookingHandler.GetOrder)
		e.Router.GET("/api/v1/events/{eventId}/availability", bookingHandler.GetAvailability)

		// Refund endpoints
		e.Router.POST("/api/v1/refunds", refundHandler.SubmitRefund)

		// Payment endpoints
		e.Router.GET("/api/v1/payments/{orderId}/session", paymentHandler.GetPaymentSession)

		// Admin endpoints
		e.Router.GET("/api/v1/admin/refunds", refundHandler.GetPendingRefunds)
		e.Router.POST("/api/v1/admin/refunds/process", refundHandler.ProcessRefund)
		e.Router.GET("/api/v1/admin/inventory-dashboard", adminHandler.GetInventoryDashboard)
		e.Router.POST("/api/v1/admin/hold-seats", adminHandler.HoldSeats)
		e.Router.GET("/api/v1/admin/ledger-report", adminHandler.GetLedgerReport)

		// Test endpoint for gateway failure simulation
		if cfg.Environment == "development" {
			e.Router.POST("/api/v1/test/simulate-gateway-failure", paymentHandler.SimulateGatewayFailure)
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		setupEventHooks(app, bookingService, sessionService)

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// loadPublishedEvents registers every on-sale event with the booking
// coordinator so its inventory exists before the first request.
func loadPublishedEvents(app *pocketbase.PocketBase, booking *services.BookingService, sessions *services.SessionService) {
	ctx := context.Background()

	records, err := app.FindRecordsByFilter("events", "status = 'published'", "-created", 0, 0)
	if err != nil {
		log.Printf("Error loading events: %v", err)
		return
	}

	for _, record := range records {
		event := eventFromRecord(record)
		seats := loadSeats(app, record.Id)
		booking.RegisterEvent(event, seats)

		if err := sessions.RegisterActiveEvent(ctx, record.Id); err != nil {
			log.Printf("Error registering active event %s: %v", record.Id, err)
		}
	}
	log.Printf("Registered %d published events", len(records))
}

func loadSeats(app *pocketbase.PocketBase, eventID string) []models.Seat {
	records, err := app.FindRecordsByFilter(
		"seats",
		"event_id = {:event}",
		"row,number",
		0,
		0,
		dbx.Params{"event": eventID},
	)
	if err != nil {
		log.Printf("Error loading seats for event %s: %v", eventID, err)
		return nil
	}

	seats := make([]models.Seat, 0, len(records))
	for _, record := range records {
		price, _ := decimal.NewFromString(record.GetString("price"))
		seats = append(seats, models.Seat{
			ID:      record.Id,
			EventID: eventID,
			Row:     record.GetString("row"),
			Number:  record.GetInt("number"),
			Section: record.GetString("section"),
			Price:   models.Money{Amount: price, Currency: record.GetString("currency")},
			Status:  models.SeatStatus(record.GetString("status")),
		})
	}
	return seats
}

func eventFromRecord(record *core.Record) *models.Event {
	basePrice, _ := decimal.NewFromString(record.GetString("base_price"))
	return &models.Event{
		ID:          record.Id,
		Name:        record.GetString("name"),
		Description: record.GetString("description"),
		Venue:       record.GetString("venue"),
		StartAt:     record.GetDateTime("start_at").Time(),
		Capacity:    record.GetInt("capacity"),
		TicketsSold: record.GetInt("tickets_sold"),
		BasePrice:   models.Money{Amount: basePrice, Currency: record.GetString("currency")},
		Status:      models.EventStatus(record.GetString("status")),
	}
}

func setupEventHooks(app *pocketbase.PocketBase, booking *services.BookingService, sessions *services.SessionService) {
	// Newly published events become bookable without a restart.
	app.OnRecordCreateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		event := eventFromRecord(e.Record)
		if !event.OnSale() {
			return nil
		}

		booking.RegisterEvent(event, loadSeats(app, e.Record.Id))
		if err := sessions.RegisterActiveEvent(e.Request.Context(), e.Record.Id); err != nil {
			log.Printf("Error registering active event %s: %v", e.Record.Id, err)
		}
		log.Printf("Event %s registered for booking", e.Record.Id)
		return nil
	})
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
