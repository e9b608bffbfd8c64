package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/alerts"
	"github.com/stanstork/agrotrack-api/internal/config"
	"github.com/stanstork/agrotrack-api/internal/fleet"
	"github.com/stanstork/agrotrack-api/internal/handlers"
	"github.com/stanstork/agrotrack-api/internal/ingest"
	"github.com/stanstork/agrotrack-api/internal/kvstore"
	"github.com/stanstork/agrotrack-api/internal/middleware"
	"github.com/stanstork/agrotrack-api/internal/migration"
	"github.com/stanstork/agrotrack-api/internal/notification"
	"github.com/stanstork/agrotrack-api/internal/repository"
	"github.com/stanstork/agrotrack-api/internal/routes"
	"github.com/stanstork/agrotrack-api/internal/temporal"
	"github.com/stanstork/agrotrack-api/internal/temporal/activities"
	"github.com/stanstork/agrotrack-api/internal/temporal/workflows"
	"github.com/stanstork/agrotrack-api/internal/worker"

	tc "go.temporal.io/sdk/client"
	tw "go.temporal.io/sdk/worker"
)

type application struct {
	config       *config.Config
	store        *kvstore.SQLStore
	logger       zerolog.Logger
	repos        repositories
	recalculator *alerts.Recalculator
	fleet        *fleet.Service
	history      *notification.HistoryStore
	checks       *worker.Worker
}

type repositories struct {
	machines     repository.MachineRepository
	maintenances repository.MaintenanceRepository
	alerts       repository.AlertRepository
	tanks        repository.TankRepository
	refuelings   repository.RefuelingRepository
	settings     repository.SettingsRepository
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	goose.SetLogger(migration.NewGooseAdapter(logger))

	// Load configuration.
	cfg := config.Load()
	loc, err := cfg.Alerts.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid alerts timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the key-value store and its schema.
	store, err := kvstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open the database")
	}
	defer store.Close()
	if err := migration.RunMigrations(store.DB(), store.DriverName(), logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	app := &application{config: cfg, store: store, logger: logger}
	app.initServices(loc)

	go func() {
		if err := app.checks.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Alert worker stopped")
		}
	}()

	if cfg.MQTT.Enabled {
		subscriber := ingest.NewSubscriber(cfg.MQTT, app.fleet, logger)
		if err := subscriber.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("MQTT ingest disabled")
		}
	}

	var temporalWorker tw.Worker
	if cfg.Temporal.Enabled {
		temporalWorker = app.startTemporal(ctx)
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter()
	loggedRouter := middleware.LoggingMiddleware(logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(ctx, corsHandler, temporalWorker)

	logger.Info().Msg("Application terminated.")
}

// initServices builds repositories, the notification pipeline and the alert worker.
func (app *application) initServices(loc *time.Location) {
	cfg := app.config
	logger := app.logger

	app.repos = repositories{
		machines:     repository.NewMachineRepository(app.store),
		maintenances: repository.NewMaintenanceRepository(app.store),
		alerts:       repository.NewAlertRepository(app.store),
		tanks:        repository.NewTankRepository(app.store),
		refuelings:   repository.NewRefuelingRepository(app.store),
		settings:     repository.NewSettingsRepository(app.store),
	}

	app.recalculator = alerts.NewRecalculator(app.repos.alerts, app.repos.machines, logger)
	app.fleet = fleet.NewService(fleet.ServiceConfig{
		Machines:     app.repos.machines,
		Maintenances: app.repos.maintenances,
		Alerts:       app.repos.alerts,
		Tanks:        app.repos.tanks,
		Refuelings:   app.repos.refuelings,
		Recalculator: app.recalculator,
	}, logger)

	app.history = notification.NewHistoryStore(app.store, loc, logger).WithRetention(cfg.Alerts.HistoryRetention)

	var email notification.EmailSender
	if cfg.Email.SMTPHost != "" {
		mailer, err := notification.NewSMTPMailer(cfg.Email, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to configure email notifier")
		}
		email = mailer
		logger.Info().Str("mailer", mailer.String()).Msg("Email digests enabled")
	} else {
		logger.Warn().Msg("email.smtp_host not set, digests will not be emailed")
	}

	pusher := notification.NewFirebasePusher(cfg.Firebase, logger)
	logger.Info().Str("pusher", pusher.String()).Msg("Push notifications configured")

	dispatcher := notification.NewDispatcher(notification.DispatcherConfig{
		Alerts:     app.repos.alerts,
		Machines:   app.repos.machines,
		Tanks:      app.repos.tanks,
		History:    app.history,
		Push:       pusher,
		Email:      email,
		Recipients: notification.SettingsRecipients(app.repos.settings, cfg.Alerts.Recipients...),
		Location:   loc,
		EmailHour:  cfg.Alerts.EmailHour,
	}, logger)

	app.checks = worker.NewWorker(worker.WorkerConfig{
		Recalculator: app.recalculator,
		Dispatcher:   dispatcher,
		Interval:     cfg.Alerts.CheckInterval,
		MinGap:       cfg.Alerts.MinCheckGap,
	}, logger)
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter() http.Handler {
	fleetHandler := handlers.NewFleetHandler(app.fleet, app.logger)
	settingsHandler := handlers.NewSettingsHandler(app.repos.settings, app.logger)
	checkHandler := handlers.NewCheckHandler(app.checks, app.logger)
	reportHandler := handlers.NewReportHandler(app.fleet, app.logger)
	notificationHandler := handlers.NewNotificationHandler(app.history, app.logger)

	return routes.NewRouter(app.config.JWTSecret, fleetHandler, settingsHandler, checkHandler, reportHandler, notificationHandler)
}

// startTemporal runs a Temporal worker for the scheduled alert check and
// registers its cron workflow. Failures leave the in-process worker as the
// only trigger source.
func (app *application) startTemporal(ctx context.Context) tw.Worker {
	logger := app.logger
	cfg := app.config.Temporal

	temporalClient, err := tc.Dial(tc.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    temporal.NewTemporalAdapter(logger),
	})
	if err != nil {
		logger.Error().Err(err).Msg("Unable to create Temporal client, scheduled checks disabled")
		return nil
	}

	w := tw.New(temporalClient, temporal.TaskQueueName, tw.Options{})
	w.RegisterWorkflow(workflows.AlertCheckWorkflow)
	w.RegisterActivity(&activities.Activities{Checks: app.checks})

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Msg("Starting Temporal worker...")
		if err := w.Run(tw.InterruptCh()); err != nil {
			logger.Error().Err(err).Msg("Temporal worker stopped with error")
		}
	}()

	_, err = temporalClient.ExecuteWorkflow(ctx, tc.StartWorkflowOptions{
		ID:           temporal.AlertCheckWorkflowID,
		TaskQueue:    temporal.TaskQueueName,
		CronSchedule: cfg.CronSchedule,
	}, workflows.AlertCheckWorkflow, temporal.CheckParams{})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to schedule alert check workflow")
	} else {
		logger.Info().Str("cron", cfg.CronSchedule).Msg("Alert check workflow scheduled")
	}

	go func() {
		<-ctx.Done()
		temporalClient.Close()
	}()
	return w
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(ctx context.Context, handler http.Handler, temporalWorker tw.Worker) {
	logger := app.logger
	server := &http.Server{
		Addr:              ":" + app.config.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
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
	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received. Shutting down...")
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	if temporalWorker != nil {
		logger.Info().Msg("Stopping Temporal worker...")
		temporalWorker.Stop()
		logger.Info().Msg("Temporal worker stopped.")
	}
}
