// Command requestbot runs the Telegram request-tracking bot together with its
// read-only ops HTTP API.
//
// Startup order:
//  1. Load .env (best effort) and environment configuration
//  2. Configure logging and OpenTelemetry tracing
//  3. Open SQLite and run migrations (fatal when unreachable)
//  4. Wire the catalog client, Telegram channel, conversation state registry,
//     request service, and update router
//  5. Start the long-poll loop and the ops HTTP server
//
// Shutdown: SIGINT/SIGTERM cancels the poller and drains the HTTP server
// before flushing traces.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-request-bot/internal/bot"
	"github.com/tbourn/go-request-bot/internal/catalog"
	"github.com/tbourn/go-request-bot/internal/config"
	"github.com/tbourn/go-request-bot/internal/convstate"
	"github.com/tbourn/go-request-bot/internal/domain"
	httpapi "github.com/tbourn/go-request-bot/internal/http"
	"github.com/tbourn/go-request-bot/internal/observability"
	"github.com/tbourn/go-request-bot/internal/repo"
	"github.com/tbourn/go-request-bot/internal/services"
	"github.com/tbourn/go-request-bot/internal/sysutil"
	"github.com/tbourn/go-request-bot/internal/telegram"
)

// cursorName keys the persisted long-poll offset. A single-bot deployment
// only ever has one row.
const cursorName = "requestbot"

// requestRepoShim adapts the repository free functions to the
// services.RequestRepo interface expected by the RequestService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type requestRepoShim struct{}

func (requestRepoShim) CreateRequest(ctx context.Context, db *gorm.DB, requesterID string, chatID int64, title string, catalogID *int64) (*domain.Request, error) {
	return repo.CreateRequest(ctx, db, requesterID, chatID, title, catalogID)
}

func (requestRepoShim) GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.Request, error) {
	return repo.GetRequest(ctx, db, id)
}

func (requestRepoShim) GetByRequesterTitle(ctx context.Context, db *gorm.DB, requesterID, title string) (*domain.Request, error) {
	return repo.GetByRequesterTitle(ctx, db, requesterID, title)
}

func (requestRepoShim) GetNewestPendingByTitle(ctx context.Context, db *gorm.DB, title string) (*domain.Request, error) {
	return repo.GetNewestPendingByTitle(ctx, db, title)
}

func (requestRepoShim) ListRequests(ctx context.Context, db *gorm.DB, f repo.Filter) ([]domain.Request, error) {
	return repo.ListRequests(ctx, db, f)
}

func (requestRepoShim) CountRequests(ctx context.Context, db *gorm.DB, f repo.Filter) (int64, error) {
	return repo.CountRequests(ctx, db, f)
}

func (requestRepoShim) ListRequestsPage(ctx context.Context, db *gorm.DB, f repo.Filter, offset, limit int) ([]domain.Request, error) {
	return repo.ListRequestsPage(ctx, db, f, offset, limit)
}

func (requestRepoShim) MarkCompleted(ctx context.Context, db *gorm.DB, id, link string) error {
	return repo.MarkCompleted(ctx, db, id, link)
}

func (requestRepoShim) MarkRejected(ctx context.Context, db *gorm.DB, id string) error {
	return repo.MarkRejected(ctx, db, id)
}

// cursorStore adapts the poll-cursor repository functions to the poller's
// CursorStore interface.
type cursorStore struct {
	db *gorm.DB
}

func (s cursorStore) Load(ctx context.Context) (int64, error) {
	return repo.GetPollCursor(ctx, s.db, cursorName)
}

func (s cursorStore) Save(ctx context.Context, offset int64) error {
	return repo.SavePollCursor(ctx, s.db, cursorName, offset)
}

func main() {
	// Best effort: local development convenience only.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	version := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), "dev")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(rootCtx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	cat := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, cfg.Catalog.Timeout)
	tg := telegram.NewClient(cfg.Bot.Token, cfg.Bot.SendRPS, cfg.Bot.SendBurst)

	states := convstate.NewRegistry(cfg.Bot.AwaitTTL)
	states.StartReaper(rootCtx, time.Minute)

	svc := services.NewRequestService(db, requestRepoShim{}, &bot.Notifier{Channel: tg})
	router := bot.NewRouter(tg, svc, cat, states, cfg.Bot.AdminUserIDs)

	poller := &telegram.Poller{
		Client:  tg,
		Handler: router,
		Cursor:  cursorStore{db: db},
	}

	pollDone := make(chan error, 1)
	go func() {
		pollDone <- poller.Run(rootCtx, telegram.PollerConfig{
			PollTimeoutSec: cfg.Bot.PollTimeout,
			MaxConcurrency: cfg.Bot.MaxConcurrency,
		})
	}()

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, svc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("ops server failed")
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("ops server shutdown failed")
	}
	if err := <-pollDone; err != nil {
		log.Warn().Err(err).Msg("poller exited with error")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("bye")
}
