package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	incidentevents "github.com/schoolmed/schoolmed-backend/internal/incident/events"
	incidenthandler "github.com/schoolmed/schoolmed-backend/internal/incident/handler"
	incidentrepo "github.com/schoolmed/schoolmed-backend/internal/incident/repository"
	incidentservice "github.com/schoolmed/schoolmed-backend/internal/incident/service"
	"github.com/schoolmed/schoolmed-backend/internal/inventory/events"
	"github.com/schoolmed/schoolmed-backend/internal/inventory/handler"
	"github.com/schoolmed/schoolmed-backend/internal/inventory/repository"
	"github.com/schoolmed/schoolmed-backend/internal/inventory/service"
	"github.com/schoolmed/schoolmed-backend/pkg/config"
	"github.com/schoolmed/schoolmed-backend/pkg/database"
	"github.com/schoolmed/schoolmed-backend/pkg/httputil"
	"github.com/schoolmed/schoolmed-backend/pkg/logger"
	"github.com/schoolmed/schoolmed-backend/pkg/messaging"
)

const (
	expiryScanInterval = 6 * time.Hour
	expiryWindowDays   = 30
)

func main() {
	// .env is optional; real environments configure via the process env.
	_ = godotenv.Load()

	cfg, err := config.LoadWithValidation("schoolhealth-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("schoolhealth-service", cfg.Server.Environment)
	log.Info().Msg("starting School Health Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	inventoryPublisher, err := events.NewInventoryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create inventory event publisher")
	}

	incidentPublisher, err := incidentevents.NewIncidentEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create incident event publisher")
	}

	// Repositories
	itemRepo := repository.NewItemRepository(db)
	lotRepo := repository.NewLotRepository(db)
	incidentRepo := incidentrepo.NewIncidentRepository(db)

	// Services
	stockService := service.NewStockService(itemRepo, lotRepo, inventoryPublisher, log)
	lotService := service.NewLotService(db, lotRepo, itemRepo, stockService, log)
	batchService := service.NewBatchService(db, lotRepo, itemRepo, stockService, log)
	incidentService := incidentservice.NewIncidentService(db, incidentRepo, lotService, itemRepo, incidentPublisher, log)

	// Handlers
	itemHandler := handler.NewItemHandler(stockService, log)
	lotHandler := handler.NewLotHandler(lotService, log)
	batchHandler := handler.NewBatchHandler(batchService, log)
	incidentHandler := incidenthandler.NewIncidentHandler(incidentService, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background expiry scan
	scheduler := service.NewExpiryScheduler(lotRepo, inventoryPublisher, expiryScanInterval, expiryWindowDays, log)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "schoolhealth-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.Authenticator(cfg.JWT.Secret))

		r.Route("/inventory", func(r chi.Router) {
			// Item routes
			r.Route("/items", func(r chi.Router) {
				r.With(httputil.RequirePermission("inventory.read")).Get("/", itemHandler.List)
				r.With(httputil.RequirePermission("inventory.write")).Post("/", itemHandler.Create)
				r.With(httputil.RequirePermission("inventory.read")).Get("/{id}", itemHandler.Get)
				r.With(httputil.RequirePermission("inventory.write")).Put("/{id}", itemHandler.Update)
				r.With(httputil.RequirePermission("inventory.read")).Get("/{id}/stock", itemHandler.Stock)
				r.With(httputil.RequirePermission("inventory.write")).Post("/{id}/recalculate", itemHandler.Recalculate)
				r.With(httputil.RequirePermission("inventory.read")).Get("/{id}/lots", lotHandler.ListByItem)
				r.With(httputil.RequirePermission("inventory.write")).Post("/{id}/lots", lotHandler.Create)
				r.With(httputil.RequirePermission("inventory.read")).Get("/{id}/lots/best", lotHandler.BestForItem)
			})

			// Lot routes
			r.Route("/lots", func(r chi.Router) {
				r.With(httputil.RequirePermission("inventory.read")).Get("/{id}", lotHandler.Get)
				r.With(httputil.RequirePermission("inventory.write")).Put("/{id}", lotHandler.Update)
				r.With(httputil.RequirePermission("inventory.write")).Post("/{id}/consume", lotHandler.Consume)
				r.With(httputil.RequirePermission("inventory.write")).Put("/{id}/quantity", lotHandler.SetQuantity)
			})

			// Batched lifecycle routes
			r.Route("/batch", func(r chi.Router) {
				r.Use(httputil.RequirePermission("inventory.write"))
				r.Post("/lots/delete", batchHandler.SoftDeleteLots)
				r.Post("/lots/restore", batchHandler.RestoreLots)
				r.Post("/lots/purge", batchHandler.PermanentDeleteLots)
				r.Post("/items/delete", batchHandler.SoftDeleteItems)
				r.Post("/items/restore", batchHandler.RestoreItems)
				r.Post("/items/purge", batchHandler.PermanentDeleteItems)
			})
		})

		// Incident routes
		r.Route("/incidents", func(r chi.Router) {
			r.With(httputil.RequirePermission("incidents.read")).Get("/", incidentHandler.List)
			r.With(httputil.RequirePermission("incidents.write")).Post("/", incidentHandler.Create)
			r.With(httputil.RequirePermission("incidents.read")).Get("/{id}", incidentHandler.Get)
			r.With(httputil.RequirePermission("incidents.write")).Put("/{id}/resolve", incidentHandler.Resolve)
			r.With(httputil.RequirePermission("incidents.write")).Post("/{id}/administrations", incidentHandler.Administer)
		})
		r.With(httputil.RequirePermission("incidents.read")).
			Get("/students/{studentID}/incidents", incidentHandler.ListByStudent)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop the scheduler
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
