// Package app wires the stores, services and front ends together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/example/wordace/internal/ai"
	"github.com/example/wordace/internal/api"
	"github.com/example/wordace/internal/bot"
	"github.com/example/wordace/internal/config"
	"github.com/example/wordace/internal/database"
	"github.com/example/wordace/internal/ingest"
	"github.com/example/wordace/internal/logger"
	"github.com/example/wordace/internal/progress"
	"github.com/example/wordace/internal/scheduler"
	"github.com/example/wordace/internal/session"
	"github.com/example/wordace/internal/study"
)

var errConfigRequired = errors.New("config is required")

const shutdownTimeout = 10 * time.Second

// Run starts the HTTP API, the Telegram bot and the inbox sweep and blocks
// until a shutdown signal arrives or one of them fails.
func Run(ctx context.Context, opts ...Option) error {
	a, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer a.log.Sync()
	cfg := a.config

	a.log.Info("configuration loaded",
		"http_address", cfg.App.HTTP.Address(),
		"database_driver", cfg.Database.Driver,
		"generator", cfg.Generator.Provider,
		"redis", cfg.Redis.Enabled(),
		"telegram", cfg.Telegram.Enabled(),
		"inbox", cfg.Import.InboxDir)

	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	sessions, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init session store: %w", err)
	}
	defer closeSessions()

	lists := database.NewListRepository(db)
	entries := database.NewEntryRepository(db)
	progressRepo := database.NewProgressRepository(db)
	history := database.NewHistoryRepository(db)

	importer := newImporter(cfg, lists, entries, a.log)
	svc := study.NewService(study.Deps{
		Lists:     lists,
		Entries:   entries,
		Progress:  progressRepo,
		History:   history,
		Sessions:  sessions,
		Recorder:  progress.NewMerger(progressRepo, history, a.log),
		Generator: newGenerator(cfg.Generator, a.log),
		Log:       a.log,
	}, cfg.Quiz.QuestionCount)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(cfg, api.NewHandler(svc, importer, a.log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var tg *bot.Bot
	if cfg.Telegram.Enabled() {
		botCfg := bot.DefaultConfig()
		botCfg.QuestionCount = cfg.Quiz.QuestionCount
		tg, err = bot.New(cfg.Telegram.Token, cfg.Telegram.AdminIDs, svc, importer, botCfg, a.log)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
	}

	var sweeper *scheduler.Scheduler
	if cfg.Import.InboxDir != "" {
		var notifier scheduler.Notifier
		if tg != nil {
			notifier = tg
		}
		sweeper = scheduler.New(importer, notifier, cfg.Import.InboxDir, cfg.Import.SweepInterval, a.log)
	}

	g, gCtx := errgroup.WithContext(ctx)

	if sweeper != nil {
		if err := sweeper.Start(gCtx); err != nil {
			return fmt.Errorf("start inbox sweep: %w", err)
		}
		defer sweeper.Stop()
	}

	g.Go(func() error {
		a.log.Info("starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if tg != nil {
		g.Go(func() error {
			return tg.Start(gCtx)
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			a.log.Info("received shutdown signal", "signal", sig.String())
		case <-gCtx.Done():
			a.log.Info("context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.log.Error("HTTP server shutdown error", "error", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		a.log.Error("application error", "error", err)
		return err
	}
	a.log.Info("server stopped")
	return nil
}

// errShutdown cancels the group so the bot and sweep stop with the server
var errShutdown = errors.New("shutdown requested")

func newHTTPHandler(cfg *config.Config, h *api.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	r.Mount("/api", api.NewRouter(h, cfg.App.AdminToken))

	if len(cfg.App.CORSOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.App.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(r)
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func newImporter(cfg *config.Config, lists ingest.ListRegistry, entries ingest.EntryCommitter, log *logger.Logger) *ingest.Importer {
	writer := ingest.NewWriter(entries, cfg.Import.BatchSize, cfg.Import.Throttle)
	return ingest.NewImporter(lists, writer, cfg.Catalog.PriorityKeywords, log)
}

// newSessionStore picks redis when configured so several instances can
// share quiz sessions
func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if !cfg.Redis.Enabled() {
		return session.NewMemoryStore(cfg.Quiz.SessionTTL), func() {}, nil
	}
	store, err := session.NewRedisStore(ctx, &goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Redis.Prefix, cfg.Quiz.SessionTTL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func newGenerator(cfg config.GeneratorConfig, log *logger.Logger) ai.Generator {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return ai.NewOpenAI(cfg.APIKey, cfg.Model)
	case config.ProviderAnthropic:
		return ai.NewAnthropic(cfg.APIKey, cfg.Model, log)
	default:
		return nil
	}
}
