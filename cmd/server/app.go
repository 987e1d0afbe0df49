package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tome-api/internal/cache"
	"github.com/phrazzld/tome-api/internal/config"
	"github.com/phrazzld/tome-api/internal/events"
	"github.com/phrazzld/tome-api/internal/platform/gemini"
	"github.com/phrazzld/tome-api/internal/platform/postgres"
	"github.com/phrazzld/tome-api/internal/service"
	"github.com/phrazzld/tome-api/internal/service/auth"
	"github.com/phrazzld/tome-api/internal/store"
	"github.com/phrazzld/tome-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore store.UserStore
	docStore  store.DocumentStore
	opStore   store.OperationStore

	// Services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	documentService  service.DocumentService
	deleteService    service.DeleteService
	userService      service.UserService

	// Background machinery
	scheduler    *task.Scheduler
	resultCache  *cache.ResultCache
	eventEmitter events.EventEmitter
	maintenance  *maintenanceRunner
	metrics      *schedulerMetrics
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost)
	app.docStore = postgres.NewPostgresDocumentStore(db, logger)
	app.opStore = postgres.NewPostgresOperationStore(db, logger)

	// The result cache is optional; an empty address leaves it nil, which
	// every consumer treats as disabled.
	if cfg.Cache.RedisAddr != "" {
		app.resultCache = cache.NewResultCache(cfg.Cache.RedisAddr, logger).
			WithDefaultTTL(time.Duration(cfg.Cache.ResultTTLSeconds) * time.Second)
		if err := app.resultCache.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach result cache at %s: %w", cfg.Cache.RedisAddr, err)
		}
		logger.Info("result cache connected", "addr", cfg.Cache.RedisAddr)
	}

	generator, err := gemini.NewSummaryGenerator(
		ctx,
		logger.With("component", "summary_generator"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize summary generator: %w", err)
	}
	logger.Info("summary generator initialized", "model", cfg.LLM.ModelName)

	app.scheduler = task.NewScheduler(task.SchedulerConfig{
		MaxConcurrentTasks: cfg.Scheduler.MaxConcurrentTasks,
		MaxQueueSize:       cfg.Scheduler.MaxQueueSize,
		DefaultTimeout:     time.Duration(cfg.Scheduler.DefaultTimeoutSeconds) * time.Second,
		CleanupInterval:    time.Duration(cfg.Scheduler.CleanupIntervalSeconds) * time.Second,
		Retention:          time.Duration(cfg.Scheduler.RetentionSeconds) * time.Second,
		DefaultMaxRetries:  cfg.Scheduler.DefaultMaxRetries,
	}, logger)
	if err := app.scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task scheduler: %w", err)
	}
	logger.Info("task scheduler started",
		"max_concurrent_tasks", cfg.Scheduler.MaxConcurrentTasks,
		"max_queue_size", cfg.Scheduler.MaxQueueSize)

	emitter := events.NewInMemoryEventEmitter(logger)
	app.eventEmitter = emitter

	app.documentService, err = service.NewDocumentService(app.docStore, db, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create document service: %w", err)
	}

	app.deleteService, err = service.NewDeleteService(app.docStore, app.opStore, db, app.scheduler, app.resultCache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create delete service: %w", err)
	}

	app.userService = service.NewUserService(app.userStore, db, logger)

	// Summary requests flow through the event emitter: the document service
	// emits, this handler builds the task and submits it to the scheduler.
	summaryFactory := task.NewDocumentSummaryTaskFactory(
		app.documentService,
		generator,
		app.resultCache,
		logger,
	)
	emitter.RegisterHandler(task.NewTaskRequestEventHandler(summaryFactory, app.scheduler, logger))

	app.maintenance, err = setupMaintenance(app)
	if err != nil {
		return nil, fmt.Errorf("failed to set up maintenance job: %w", err)
	}

	app.metrics = newSchedulerMetrics(app.scheduler, logger)
	app.metrics.start()

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources. Order
// matters: stop intake first, then drain the scheduler, then release
// connections.
func (app *application) cleanup() {
	if app.maintenance != nil {
		app.maintenance.stop()
	}

	if app.metrics != nil {
		app.metrics.stop()
	}

	if app.scheduler != nil {
		grace := time.Duration(app.config.Scheduler.StopGraceSeconds) * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := app.scheduler.Stop(ctx); err != nil {
			app.logger.Warn("scheduler did not drain before the grace period", "error", err)
		}
	}

	if app.resultCache != nil {
		if err := app.resultCache.Close(); err != nil {
			app.logger.Error("error closing result cache", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
