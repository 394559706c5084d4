// Command moderator runs the chat moderation service: the webhook intake,
// the moderation pipeline, the notice sweeper, and the admin API.
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

	"github.com/modguard/go-chat-moderator/internal/classify"
	"github.com/modguard/go-chat-moderator/internal/config"
	"github.com/modguard/go-chat-moderator/internal/enforce"
	"github.com/modguard/go-chat-moderator/internal/floodguard"
	httpapi "github.com/modguard/go-chat-moderator/internal/http"
	"github.com/modguard/go-chat-moderator/internal/observability"
	"github.com/modguard/go-chat-moderator/internal/platform"
	"github.com/modguard/go-chat-moderator/internal/repo"
	"github.com/modguard/go-chat-moderator/internal/services"
	"github.com/modguard/go-chat-moderator/internal/sysutil"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// Local development convenience; absent .env files are not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	api := platform.NewBotClient(cfg.Platform.APIBaseURL, cfg.Platform.BotToken, cfg.Platform.BotID, cfg.Platform.Timeout)
	chats := services.NewChatInfoCache(api)

	engine := classify.NewEngine(
		classify.NewOpenAIClient(cfg.Classify.OpenAIKey),
		classify.NewQuotaSelector(cfg.Classify.PremiumModels, cfg.Classify.FallbackModel, cfg.Classify.PremiumDaily),
		chats,
		api,
	)
	engine.PollInterval = cfg.Classify.PollInterval

	guard := floodguard.New()
	executor := enforce.NewExecutor(api, guard)

	moderation := &services.ModerationService{
		DB:        db,
		Guard:     guard,
		Engine:    engine,
		Executor:  executor,
		API:       api,
		Chats:     chats,
		NoticeTTL: cfg.NoticeTTL,
		UpdateTTL: cfg.UpdateTTL,
		Workers:   cfg.Workers,
	}
	admin := &services.AdminService{
		DB:       db,
		Executor: executor,
		Manual:   executor,
	}

	sweeper := &services.Sweeper{DB: db, API: api, Interval: cfg.SweepInterval}
	go sweeper.Run(ctx)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{Moderation: moderation, Admin: admin}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Int64("bot_id", cfg.Platform.BotID).
			Msg("moderator listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
