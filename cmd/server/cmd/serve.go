package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/eventboard/server/internal/api"
	"github.com/eventboard/server/internal/api/middleware"
	"github.com/eventboard/server/internal/auth"
	"github.com/eventboard/server/internal/bot"
	"github.com/eventboard/server/internal/config"
	"github.com/eventboard/server/internal/domain/events"
	"github.com/eventboard/server/internal/domain/users"
	"github.com/eventboard/server/internal/metrics"
	"github.com/eventboard/server/internal/storage/postgres"
	"github.com/eventboard/server/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
	skipBot    bool
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and Telegram bot",
		Long: `Start the HTTP API and, when BOT_TOKEN is set, the Telegram bot.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Apply pending database migrations once the database answers
- Create the organizer account if ORGANIZER_EMAIL/ORGANIZER_PASSWORD are set
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  server serve
  server serve --host 127.0.0.1 --port 9090
  server serve --log-level debug --log-format console`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 5000)")
	cmd.Flags().BoolVar(&skipBot, "no-bot", false, "do not start the Telegram bot")
	return cmd
}

func runServer(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting eventboard server")

	metrics.Init(Version, GitCommit, BuildDate)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown error")
		}
	}()

	pool, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return err
	}

	userSvc := users.NewService(repo.Users(), cfg.Auth.DefaultRole, logger,
		users.WithProductionLogging(cfg.IsProduction()))
	eventSvc := events.NewService(repo.Events(), userSvc, cfg.Server.PublicURL, logger)

	// Requests fail with 500 and /readyz answers 503 until the database is up.
	go prepareDatabase(ctx, cfg, pool, userSvc, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Environment)
	go limiter.Run(ctx)

	go metrics.NewDBCollector(pool).Start(ctx, 15*time.Second)

	server := &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: api.NewRouter(api.Deps{
			Config:      cfg,
			Logger:      logger,
			Users:       userSvc,
			Events:      eventSvc,
			Tokens:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer),
			DB:          repo,
			RateLimiter: limiter,
			Build:       api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate},
		}),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	var bridge runner
	if b := newBridge(cfg, eventSvc, logger); b != nil {
		bridge = b
	}
	if err := runLoops(ctx, server, bridge, logger); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// runner is a long-running loop that stops when ctx is done.
type runner interface {
	Run(ctx context.Context) error
}

// runLoops serves HTTP and runs the bot side by side until ctx is done.
// Neither loop stops the other: a listener failure is logged and reported
// after shutdown, and a bot error only ends the bot.
func runLoops(ctx context.Context, server *http.Server, bridge runner, logger zerolog.Logger) error {
	// No errgroup context: one loop failing must not cancel the other.
	var g errgroup.Group

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
		return nil
	})

	if bridge != nil {
		g.Go(func() error {
			if err := bridge.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("bot stopped with error")
			}
			return nil
		})
	}

	return g.Wait()
}

// prepareDatabase waits for the database, applies migrations and creates
// the organizer account. Failures are logged; the server keeps running.
func prepareDatabase(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, userSvc *users.Service, logger zerolog.Logger) {
	if err := postgres.WaitReady(ctx, pool, logger); err != nil {
		logger.Error().Err(err).Msg("database unavailable")
		return
	}
	if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
		logger.Error().Err(err).Msg("apply migrations failed")
		return
	}

	bootstrapCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := userSvc.Bootstrap(bootstrapCtx, cfg.Bootstrap.OrganizerEmail, cfg.Bootstrap.OrganizerPassword); err != nil {
		logger.Error().Err(err).Msg("organizer bootstrap failed")
	}
}

func newBridge(cfg config.Config, eventSvc *events.Service, logger zerolog.Logger) *bot.Bridge {
	if skipBot || cfg.Bot.Token == "" {
		logger.Info().Msg("telegram bot disabled")
		return nil
	}

	var source bot.EventSource = bot.NewServiceSource(eventSvc)
	if cfg.Bot.EventsURL != "" {
		source = bot.NewHTTPSource(cfg.Bot.EventsURL)
	}

	bridge, err := bot.New(cfg.Bot, source, logger)
	if err != nil {
		logger.Error().Err(err).Msg("telegram bot disabled")
		return nil
	}
	return bridge
}
