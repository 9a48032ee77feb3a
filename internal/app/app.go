// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bissquit/incident-relay/internal/config"
	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/notifications"
	"github.com/bissquit/incident-relay/internal/notifications/discord"
	"github.com/bissquit/incident-relay/internal/pkg/ctxlog"
	"github.com/bissquit/incident-relay/internal/pkg/httputil"
	"github.com/bissquit/incident-relay/internal/pkg/metrics"
	"github.com/bissquit/incident-relay/internal/pkg/postgres"
	"github.com/bissquit/incident-relay/internal/statuspage"
	filestore "github.com/bissquit/incident-relay/internal/store/file"
	pgstore "github.com/bissquit/incident-relay/internal/store/postgres"
	"github.com/bissquit/incident-relay/internal/tracker"
	"github.com/bissquit/incident-relay/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const poolMetricsInterval = 15 * time.Second

// Pinger is implemented by stores that can report their availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App represents the application instance.
type App struct {
	config  *config.Config
	logger  *slog.Logger
	db      *pgxpool.Pool
	store   tracker.Store
	tracker *tracker.Tracker
	server  *http.Server

	backgroundCtx    context.Context
	backgroundCancel context.CancelFunc
}

// Options replace the production collaborators. Zero fields keep the defaults.
type Options struct {
	Store  tracker.Store
	Feeds  tracker.FeedFetcher
	Sender notifications.MessageSender
}

// New creates a new application instance and loads the tracked incidents.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	return NewWithOptions(ctx, cfg, Options{})
}

// NewWithOptions is New with replaceable collaborators.
func NewWithOptions(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	catalog, err := notifications.NewCatalog(cfg.Translations)
	if err != nil {
		return nil, fmt.Errorf("create message catalog: %w", err)
	}
	palette, err := cfg.Palette()
	if err != nil {
		return nil, fmt.Errorf("parse colors: %w", err)
	}

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	app := &App{
		config:           cfg,
		logger:           logger,
		store:            opts.Store,
		backgroundCtx:    backgroundCtx,
		backgroundCancel: backgroundCancel,
	}

	if app.store == nil {
		if err := app.openStore(ctx); err != nil {
			backgroundCancel()
			return nil, err
		}
	}

	feeds := opts.Feeds
	if feeds == nil {
		feeds = statuspage.NewClient(statuspage.Config{
			BaseURL: cfg.StatusPage.URL,
			Timeout: cfg.StatusPage.Timeout,
		})
	}

	sender := opts.Sender
	if sender == nil {
		sender = discord.NewSender(discord.Config{
			WebhookURL: cfg.Webhook.URL,
			Username:   cfg.Webhook.Username,
			AvatarURL:  cfg.Webhook.AvatarURL,
			Timeout:    cfg.Webhook.Timeout,
			RateLimit:  cfg.Webhook.RateLimit,
		})
	}

	app.tracker = tracker.New(
		tracker.Config{
			Name:     cfg.StatusPage.Name,
			URL:      cfg.StatusPage.URL,
			Interval: cfg.Check.Interval,
		},
		app.store,
		feeds,
		sender,
		notifications.NewRenderer(palette, catalog),
		catalog,
	)

	if err := app.tracker.Load(ctx); err != nil {
		app.closeStore()
		backgroundCancel()
		return nil, err
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.config.Store.Driver {
	case config.StoreDriverPostgres:
		if err := pgstore.Migrate(a.config.Store.DatabaseURL); err != nil {
			return fmt.Errorf("migrate store: %w", err)
		}

		connectCtx, cancel := context.WithTimeout(ctx, a.config.Store.ConnectTimeout)
		defer cancel()

		db, err := postgres.Connect(connectCtx, postgres.Config{
			URL:             a.config.Store.DatabaseURL,
			MaxOpenConns:    a.config.Store.MaxOpenConns,
			ConnectAttempts: a.config.Store.ConnectAttempts,
		})
		if err != nil {
			return fmt.Errorf("connect to store: %w", err)
		}
		a.db = db
		a.store = pgstore.NewStore(db)
		go metrics.CollectStorePoolMetrics(a.backgroundCtx, db, poolMetricsInterval)
	default:
		a.store = filestore.New(a.config.Store.Path)
	}

	a.logger.Info("store configured", "driver", a.config.Store.Driver)
	return nil
}

func (a *App) closeStore() {
	if a.db != nil {
		a.db.Close()
	}
}

// Run starts the tracker and the ops server and blocks until ctx is done or
// the server fails.
func (a *App) Run(ctx context.Context) error {
	a.tracker.Start(a.backgroundCtx)

	if !a.config.Server.Enabled {
		<-ctx.Done()
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting ops server",
			"host", a.config.Server.Host,
			"port", a.config.Server.Port,
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("ops server: %w", err)
	}
}

// CheckOnce runs a single check of every feed without starting the tickers.
func (a *App) CheckOnce(ctx context.Context) ([]tracker.Result, error) {
	results := make([]tracker.Result, 0, len(domain.FeedKinds))
	var errs []error
	for _, kind := range domain.FeedKinds {
		result, err := a.tracker.Check(ctx, kind)
		results = append(results, result)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// Shutdown stops the tracker, the ops server and the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	// Running cycles finish and save before their context goes away.
	a.tracker.Stop()
	a.backgroundCancel()

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown ops server: %w", err))
	}

	a.closeStore()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Tracker returns the incident tracker.
func (a *App) Tracker() *tracker.Tracker {
	return a.tracker
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tracked", a.trackedHandler)
		r.Post("/checks/{feed}", a.checkHandler)
	})

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	pinger, ok := a.store.(Pinger)
	if !ok {
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := pinger.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func (a *App) trackedHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Success(w, http.StatusOK, a.tracker.Tracked())
}

func (a *App) checkHandler(w http.ResponseWriter, r *http.Request) {
	kind := domain.FeedKind(chi.URLParam(r, "feed"))
	if !kind.IsValid() {
		httputil.WriteError(r.Context(), w, http.StatusNotFound, fmt.Errorf("%w: %q", statuspage.ErrUnsupportedFeed, kind))
		return
	}

	// The cycle outlives a client disconnect.
	result, err := a.tracker.Check(context.WithoutCancel(r.Context()), kind)
	if err != nil {
		httputil.WriteError(r.Context(), w, checkErrorStatus(err), err)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// checkErrorStatus maps a failed check cycle to an HTTP status.
func checkErrorStatus(err error) int {
	switch {
	case errors.Is(err, statuspage.ErrUnsupportedFeed):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
