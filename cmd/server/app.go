package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskboss-api/internal/config"
	"github.com/phrazzld/taskboss-api/internal/events"
	"github.com/phrazzld/taskboss-api/internal/platform/gemini"
	"github.com/phrazzld/taskboss-api/internal/platform/postgres"
	"github.com/phrazzld/taskboss-api/internal/platform/telegram"
	"github.com/phrazzld/taskboss-api/internal/scheduler"
	"github.com/phrazzld/taskboss-api/internal/service"
	"github.com/phrazzld/taskboss-api/internal/service/auth"
	"github.com/phrazzld/taskboss-api/internal/session"
	"github.com/phrazzld/taskboss-api/internal/store"
)

// Conversation memory bounds for the private-chat session store.
const (
	sessionMaxTurns = 20
	sessionTTL      = 2 * time.Hour
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore store.TaskStore

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	classifier       service.Classifier
	generator        service.Generator
	notifier         service.Notifier
	taskService      service.TaskService

	sessions     *session.Store
	eventEmitter events.EventEmitter

	scheduler *scheduler.Scheduler
	bot       *telegram.Bot
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger,
// and database connection that must be established before application
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

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	app.classifier, err = gemini.NewGeminiClassifier(
		ctx,
		logger.With("component", "llm_classifier"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}

	app.generator, err = gemini.NewGeminiGenerator(
		ctx,
		logger.With("component", "llm_generator"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	logger.Info("LLM services initialized", "model", cfg.LLM.ModelName)

	app.sessions = session.NewStore(sessionMaxTurns, sessionTTL)

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(events.NewAuditLogHandler(logger))
	app.eventEmitter = emitter

	tgClient := telegram.NewClient(cfg.Notifier.BotToken)
	app.notifier, err = telegram.NewNotifier(tgClient, cfg.Notifier.ChatID, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}

	callTimeout := time.Duration(cfg.LLM.CallTimeoutSeconds) * time.Second

	app.taskService, err = service.NewTaskService(
		app.taskStore,
		app.classifier,
		app.generator,
		app.notifier,
		cfg.Notifier,
		app.sessions,
		app.eventEmitter,
		logger,
		callTimeout,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.scheduler, err = scheduler.NewScheduler(
		app.taskStore,
		app.generator,
		app.notifier,
		app.eventEmitter,
		logger,
		scheduler.Config{
			Interval:    time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute,
			WorkerCount: cfg.Scheduler.WorkerCount,
			CallTimeout: callTimeout,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	app.bot, err = telegram.NewBot(
		tgClient,
		app.taskService,
		app.generator,
		app.sessions,
		telegram.BotConfig{
			OperatorID:     cfg.Auth.OperatorID,
			ChatID:         cfg.Notifier.ChatID,
			GeneralTopicID: cfg.Notifier.GeneralTopicID,
			PollTimeout:    time.Duration(cfg.Notifier.PollTimeoutSeconds) * time.Second,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the background workers and the HTTP server, handling
// lifecycle and cleanup. It blocks until shutdown.
func (app *application) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go app.scheduler.Run(runCtx)

	go func() {
		if err := app.bot.Run(runCtx); err != nil && runCtx.Err() == nil {
			app.logger.Error("Telegram bot exited", "error", err)
		}
	}()

	router := app.setupRouter()

	if err := app.startHTTPServer(runCtx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
