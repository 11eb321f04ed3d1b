package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/alerts"
	"github.com/safesite/safesite-api/internal/cache"
	"github.com/safesite/safesite-api/internal/config"
	"github.com/safesite/safesite-api/internal/dedup"
	"github.com/safesite/safesite-api/internal/detection"
	"github.com/safesite/safesite-api/internal/handlers"
	"github.com/safesite/safesite-api/internal/middleware"
	"github.com/safesite/safesite-api/internal/migration"
	"github.com/safesite/safesite-api/internal/notification"
	"github.com/safesite/safesite-api/internal/realtime"
	"github.com/safesite/safesite-api/internal/repository"
	"github.com/safesite/safesite-api/internal/routes"
	"github.com/safesite/safesite-api/internal/stats"
	"github.com/safesite/safesite-api/internal/storage"
	"github.com/safesite/safesite-api/internal/taskpool"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config *config.Config
	db     *sql.DB
	redis  *redis.Client
	pool   *taskpool.Pool
	logger zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL)

	// Initialize Redis for the dedup lock and the notification cache.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping Redis")
	}

	// Delivery worker pool for push notifications.
	pool := taskpool.New(cfg.Push.Workers, cfg.Push.MaxWorkers, cfg.Push.QueueSize, logger)

	app := &application{
		config: cfg,
		db:     db,
		redis:  redisClient,
		pool:   pool,
		logger: logger,
	}

	// Realtime publisher for per-user notification subjects.
	publisher, err := realtime.NewNatsPublisher(cfg.Nats, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer publisher.Close()

	router := app.initRouter(publisher, logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	app.startServer(corsHandler, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all repositories, services and handlers.
func (app *application) initRouter(publisher realtime.Publisher, logger zerolog.Logger) http.Handler {
	alertRepo := repository.NewAlertRepository(app.db)
	projectRepo := repository.NewProjectRepository(app.db)
	cameraRepo := repository.NewCameraRepository(app.db)
	userRepo := repository.NewUserRepository(app.db)
	notificationRepo := repository.NewNotificationRepository(app.db)

	blobs, err := storage.NewLocalStore(app.config.Storage.UploadDir, app.config.Storage.PublicURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload directory")
	}

	listCache := cache.New(app.redis, "notif_cache:", 5*time.Minute)
	locker := dedup.NewLocker(app.redis)

	notificationService := notification.NewService(
		notificationRepo, userRepo, alertRepo, listCache, app.pool, logger,
		notification.NewRealtimeNotifier(publisher),
		notification.NewNtfyNotifier(app.config.Push, logger),
	)
	alertService := alerts.NewService(
		alertRepo, projectRepo, cameraRepo, locker, notificationService,
		app.config.Dedup.LockTTL, logger,
	)
	detectionService := detection.NewService(cameraRepo, alertService, blobs, logger)
	statsService := stats.NewService(alertRepo, logger)

	authHandler := handlers.NewAuthHandler(app.db, app.config, logger)
	alertHandler := handlers.NewAlertHandler(alertService, logger)
	detectionHandler := handlers.NewDetectionHandler(detectionService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger)
	projectHandler := handlers.NewProjectHandler(projectRepo, cameraRepo, logger)
	statsHandler := handlers.NewStatsHandler(statsService, logger)

	return routes.NewRouter(
		authHandler, alertHandler, detectionHandler,
		notificationHandler, projectHandler, statsHandler,
		app.config.Storage.UploadDir,
	)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Let queued push deliveries finish before the process exits.
	logger.Info().Msg("Stopping delivery workers...")
	app.pool.Stop()
	logger.Info().Msg("Delivery workers stopped.")
}
