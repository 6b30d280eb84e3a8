package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"inspectsync/application"
	"inspectsync/database"
	"inspectsync/domain/contracts"
	"inspectsync/infrastructure/apiclient"
	"inspectsync/infrastructure/config"
	"inspectsync/infrastructure/session"
	"inspectsync/logging"
	"inspectsync/platform/events"
)

// errUsage marks a bad invocation whose help text was already printed.
var errUsage = errors.New("usage")

// App holds the client wiring shared by every command.
type App struct {
	cfg    *config.AppConfig
	logger *logging.Logger
	stdout io.Writer
	stderr io.Writer

	db          *database.Database
	sessions    *session.SQLiteStore
	client      *apiclient.Client
	inspections *application.InspectionServiceImpl
	uploads     *application.UploadService
	bus         *events.SyncEventBus
}

func newApp(ctx context.Context, cfg *config.AppConfig, logger *logging.Logger, stdout, stderr io.Writer) (*App, error) {
	db, err := database.New(*cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	sessions := session.NewSQLiteStore(db, logger)

	client, err := apiclient.New(apiclient.Options{
		BaseURL:  cfg.APIURL,
		Sessions: tokenSource(ctx, cfg, sessions, logger),
		Timeout:  cfg.HTTPTimeout,
		Logger:   logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	bus := events.NewSyncEventBus(logger)
	events.NewNotificationEventHandlers(&consoleNotifier{w: stderr}, logger).RegisterHandlers(bus)

	return &App{
		cfg:         cfg,
		logger:      logger,
		stdout:      stdout,
		stderr:      stderr,
		db:          db,
		sessions:    sessions,
		client:      client,
		inspections: application.NewInspectionService(client, logger),
		uploads:     application.NewUploadService(client, cfg.UploadLimits(), bus, logger),
		bus:         bus,
	}, nil
}

// tokenSource picks the credential source: a fixed token wins, then a
// refreshing OAuth2 session, then the stored session as is.
func tokenSource(ctx context.Context, cfg *config.AppConfig, sessions *session.SQLiteStore, logger *logging.Logger) contracts.SessionStore {
	if cfg.AccessToken != "" {
		return session.NewStaticStore(cfg.AccessToken)
	}
	if cfg.OAuth.Enabled() {
		store, err := session.NewRefreshingStore(ctx, cfg.OAuth, sessions, logger)
		if err == nil {
			return store
		}
		logger.Debug("Token refresh unavailable, using stored session", "error", err)
	}
	return sessions
}

// Close releases the session database.
func (a *App) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close session database", "error", err)
	}
}

func (a *App) run(ctx context.Context, name string, args []string) error {
	commands := map[string]func(context.Context, []string) error{
		"login":     a.login,
		"logout":    a.logout,
		"list":      a.list,
		"create":    a.create,
		"show":      a.show,
		"files":     a.files,
		"file":      a.file,
		"upload":    a.upload,
		"watch":     a.watch,
		"dashboard": a.dashboard,
		"review":    a.review,
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(a.stderr, "unknown command %q\n\n%s", name, usageText)
		return errUsage
	}
	return cmd(ctx, args)
}

// consoleNotifier prints notifications as single status lines.
type consoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func (n *consoleNotifier) Notify(message, level string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	mark := "·"
	if level == events.LevelSuccess {
		mark = "✓"
	}
	fmt.Fprintf(n.w, "%s %s\n", mark, message)
}
