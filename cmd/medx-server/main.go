package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/SrinivasaPrasadGade/med-x/internal/config"
	"github.com/SrinivasaPrasadGade/med-x/internal/domain/audit"
	"github.com/SrinivasaPrasadGade/med-x/internal/domain/extraction"
	"github.com/SrinivasaPrasadGade/med-x/internal/domain/identity"
	"github.com/SrinivasaPrasadGade/med-x/internal/domain/medication"
	"github.com/SrinivasaPrasadGade/med-x/internal/domain/scheduling"
	"github.com/SrinivasaPrasadGade/med-x/internal/platform/db"
	"github.com/SrinivasaPrasadGade/med-x/internal/platform/genai"
	"github.com/SrinivasaPrasadGade/med-x/internal/platform/middleware"
)

const (
	serviceName     = "med-x"
	rootMessage     = "med-x API is running"
	uploadBodyLimit = "12M"
	shutdownTimeout = 10 * time.Second
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medx-server",
		Short: "med-x clinical workflow API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			version, err := db.NewMigrator(cfg.DatabaseURL).Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Database is at version %d.\n", version)
			return nil
		},
	}
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			statuses, err := db.NewMigrator(cfg.DatabaseURL).Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %s\n", "VERSION", "NAME", "STATUS")
			fmt.Println("---------- ---------------------------------------- ----------")
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Printf("%-10d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}
	cmd.AddCommand(statusCmd)

	return cmd
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer(migrate bool) error {
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if migrate {
		version, err := db.NewMigrator(cfg.DatabaseURL).Up(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
		logger.Info().Int64("version", version).Msg("migrations applied")
	}

	// Database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	sink, closeSink, err := buildAuditSink(ctx, cfg, pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize audit sink")
	}
	defer closeSink()
	logger.Info().Str("backend", cfg.AuditSink).Msg("audit sink ready")

	invoker := buildInvoker(cfg, logger)
	if invoker.Configured() {
		logger.Info().Str("model", cfg.GeminiModel).Msg("generative model configured")
	} else {
		logger.Warn().Msg("no generative model credential; AI endpoints serve demo data")
	}

	tokens := identity.NewTokenIssuer(cfg.JWTSigningKey, cfg.TokenTTL)

	e := newEcho(cfg, logger)
	registerHealthRoutes(e, pool, invoker.Configured())
	e.GET("/health/db", db.HealthHandler(pool, db.SnapshotPool(pool)))

	api := e.Group("/api")
	api.Use(middleware.RateLimit(rateLimitConfig(cfg)))
	api.Use(identity.ActorMiddleware(tokens))

	// Core extraction pipeline
	extractionSvc := extraction.NewService(invoker, sink, cfg.AITimeout, logger)
	extraction.NewHandler(extractionSvc).RegisterRoutes(api)
	audit.NewHandler(sink).RegisterRoutes(api)

	// Identity
	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
	identitySvc := identity.NewService(identity.NewOrganizationRepo(pool), identity.NewUserRepo(pool), txRunner, tokens)
	identity.NewHandler(identitySvc).RegisterRoutes(api)

	// Scheduling
	schedulingSvc := scheduling.NewService(scheduling.NewAppointmentRepoPG(pool))
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)

	// Medication
	medicationSvc := medication.NewService(medication.NewMedicationRepo(pool), medication.NewAdherenceRepo(pool), sink, logger)
	medication.NewHandler(medicationSvc).RegisterRoutes(api)

	// Start server
	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newEcho builds the server with the global middleware chain.
func newEcho(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, uploadBodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	return e
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	return rl
}

type healthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
	AI       string `json:"ai"`
}

func registerHealthRoutes(e *echo.Echo, pinger db.Pinger, aiConfigured bool) {
	root := func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy", "message": rootMessage})
	}
	e.GET("/", root)
	e.GET("/api", root)

	ai := "demo"
	if aiConfigured {
		ai = "configured"
	}
	health := func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{
			Status:   "healthy",
			Service:  serviceName,
			Database: db.ConnectionStatus(c.Request().Context(), pinger),
			AI:       ai,
		})
	}
	for _, path := range []string{"/api/health", "/api/clinical/health", "/api/patient/health", "/api/ai/health"} {
		e.GET(path, health)
	}
}

// buildAuditSink selects the audit backend named by AUDIT_SINK. The returned
// close function releases any client the sink owns.
func buildAuditSink(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (audit.Sink, func(), error) {
	noop := func() {}
	switch cfg.AuditSink {
	case config.AuditSinkRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("ping redis: %w", err)
		}
		return audit.NewRedisSink(client, audit.DefaultRedisKey, cfg.AuditMaxEntries), func() { client.Close() }, nil
	case config.AuditSinkPostgres:
		if pool == nil {
			return nil, noop, errors.New("postgres audit sink requires a database pool")
		}
		return audit.NewPGSink(pool), noop, nil
	default:
		return audit.NewMemorySink(int(cfg.AuditMaxEntries)), noop, nil
	}
}

func buildInvoker(cfg *config.Config, logger zerolog.Logger) genai.Invoker {
	if !cfg.AIConfigured() {
		return genai.Unconfigured{}
	}
	return genai.NewGeminiClient(genai.GeminiConfig{
		APIKey:            cfg.GoogleAPIKey,
		Model:             cfg.GeminiModel,
		BaseURL:           cfg.GeminiBaseURL,
		RequestsPerMinute: cfg.AIRateLimitRPM,
		Burst:             cfg.AIRateLimitBurst,
		Logger:            logger,
	})
}
