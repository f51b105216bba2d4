package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"parking-backend/config"
	"parking-backend/internal/api"
	"parking-backend/internal/db"
	"parking-backend/internal/lifecycle"
	"parking-backend/internal/notification"
	"parking-backend/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "parking-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Push delivery is optional; notifications are stored either way.
	var (
		webpushOptions *webpush.Options
		pool           *notification.WorkerPool
	)
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions)
		pool.Start(ctx)
		logger.Printf("push worker pool started with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("Warning: VAPID keys are not configured, web push is disabled")
	}

	svc := lifecycle.New(lifecycle.Deps{
		Store:    appStore,
		Notifier: notification.NewDispatcher(appStore, pool),
		Logger:   logger,
		Policy: lifecycle.Policy{
			GracePeriod:       cfg.Lifecycle.Grace,
			SweepInterval:     cfg.Lifecycle.SweepInterval,
			DefaultHourlyRate: cfg.Lifecycle.DefaultHourlyRate,
			InvoiceSeries:     cfg.Lifecycle.InvoiceSeries,
			ReceiptSeries:     cfg.Lifecycle.ReceiptSeries,
		},
	})

	// Run the expiration sweeper in the background
	if cfg.Lifecycle.SweeperEnabled {
		go svc.Sweeper.Run(ctx)
	} else {
		logger.Println("expiration sweeper is disabled")
	}

	// Initialize router
	router := api.NewRouter(svc, appStore, cfg, webpushOptions)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
