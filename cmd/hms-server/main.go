package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/carehub/hms/internal/config"
	"github.com/carehub/hms/internal/domain/bed"
	"github.com/carehub/hms/internal/domain/dispensing"
	"github.com/carehub/hms/internal/domain/patient"
	"github.com/carehub/hms/internal/domain/pharmacy"
	"github.com/carehub/hms/internal/domain/staff"
	"github.com/carehub/hms/internal/platform/auth"
	"github.com/carehub/hms/internal/platform/db"
	"github.com/carehub/hms/internal/platform/middleware"
	"github.com/carehub/hms/internal/platform/telemetry"
)

const (
	serviceName = "hms-server"
	version     = "0.1.0"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Hospital back-office API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: serviceName,
	})
}

func migrationFiles(cfg *config.Config) fs.FS {
	if cfg.MigrationsDir != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return db.EmbeddedMigrations()
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

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(os.Stdout, statuses)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, migrationFiles(cfg)))
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <email> <password>",
		Short: "Create a user that can log in to the API",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			accounts := auth.NewAccountService(auth.NewUserRepoPG(pool), nil, nil)
			u, err := accounts.CreateUser(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Created user %s (%s)\n", u.Email, u.ID)
			return nil
		},
	})

	return cmd
}

// handlers holds every route group the server mounts under /api.
type handlers struct {
	auth     *auth.Handler
	pharmacy *pharmacy.Handler
	patients *patient.Handler
	beds     *bed.Handler
	staff    *staff.Handler
	dbHealth echo.HandlerFunc
}

func buildHandlers(cfg *config.Config, pool *pgxpool.Pool, metrics *telemetry.Metrics, tp trace.TracerProvider, revocations auth.RevocationStore) handlers {
	medicines := pharmacy.NewMedicineRepoPG(pool)
	visits := patient.NewVisitRepoPG(pool)

	engine := dispensing.NewEngine(medicines, visits, db.NewTxManager(pool),
		dispensing.WithObserver(metrics),
		dispensing.WithTracer(tp.Tracer("github.com/carehub/hms/internal/domain/dispensing")),
	)

	issuer := auth.NewTokenIssuer([]byte(cfg.AuthSigningKey), cfg.TokenTTL, serviceName)
	accounts := auth.NewAccountService(auth.NewUserRepoPG(pool), issuer, revocations)

	return handlers{
		auth:     auth.NewHandler(accounts),
		pharmacy: pharmacy.NewHandler(pharmacy.NewService(medicines, cfg.LowStockThreshold, cfg.ExpiryWindow())),
		patients: patient.NewHandler(patient.NewService(visits, medicines), engine, cfg.NormalizeClockTimes),
		beds:     bed.NewHandler(bed.NewService(bed.NewRepoPG(pool), bed.DefaultCount), cfg.NormalizeClockTimes),
		staff:    staff.NewHandler(staff.NewService(staff.NewEmployeeRepoPG(pool))),
		dbHealth: db.HealthHandler(pool),
	}
}

func newServer(cfg *config.Config, logger zerolog.Logger, metrics *telemetry.Metrics, tp trace.TracerProvider, revocations auth.RevocationStore, h handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(telemetry.TraceMiddleware(tp, serviceName))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "X-Total-Count"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Per-IP limit ahead of authentication, so login attempts and requests
	// without a valid token are counted too.
	preAuthCfg := rateLimitCfg
	preAuthCfg.Skipper = func(c echo.Context) bool {
		return !strings.HasPrefix(c.Request().URL.Path, "/api/")
	}
	e.Use(middleware.RateLimit(preAuthCfg))
	e.Use(auth.JWTMiddleware(auth.JWTConfig{
		SigningKey:  []byte(cfg.AuthSigningKey),
		Issuer:      serviceName,
		Revocations: revocations,
		Skipper:     auth.AuthSkipper,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if h.dbHealth != nil {
		e.GET("/health/db", h.dbHealth)
	}
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api", middleware.RateLimit(rateLimitCfg))
	h.auth.RegisterRoutes(api)
	h.pharmacy.RegisterRoutes(api)
	h.patients.RegisterRoutes(api)
	h.beds.RegisterRoutes(api)
	h.staff.RegisterRoutes(api)

	return e
}

func newRevocationStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (auth.RevocationStore, func(), error) {
	if cfg.RedisURL == "" {
		store := auth.NewMemoryRevocationStore(time.Minute)
		logger.Info().Msg("using in-memory token revocation")
		return store, store.Close, nil
	}
	client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("using redis token revocation")
	return auth.NewRedisRevocationStore(client), func() { _ = client.Close() }, nil
}

func runServer(migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if migrate {
		count, err := db.NewMigrator(pool, migrationFiles(cfg)).Up(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Int("applied", count).Msg("migrations applied")
	}

	tp, shutdownTracing, err := telemetry.InitTracerProvider(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	revocations, closeRevocations, err := newRevocationStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer closeRevocations()

	metrics := telemetry.NewMetrics()
	e := newServer(cfg, logger, metrics, tp, revocations, buildHandlers(cfg, pool, metrics, tp, revocations))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("tracer shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
