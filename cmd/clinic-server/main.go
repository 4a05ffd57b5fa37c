package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicops/clinicops/internal/config"
	"github.com/clinicops/clinicops/internal/domain/catalog"
	"github.com/clinicops/clinicops/internal/domain/identity"
	"github.com/clinicops/clinicops/internal/domain/patient"
	"github.com/clinicops/clinicops/internal/domain/scheduling"
	"github.com/clinicops/clinicops/internal/domain/search"
	"github.com/clinicops/clinicops/internal/domain/visitnote"
	"github.com/clinicops/clinicops/internal/platform/audit"
	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/internal/platform/blobstore"
	"github.com/clinicops/clinicops/internal/platform/db"
	"github.com/clinicops/clinicops/internal/platform/lock"
	"github.com/clinicops/clinicops/internal/platform/middleware"
	"github.com/clinicops/clinicops/pkg/apperror"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic operations API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Booking lock: redis when configured, otherwise an in-process keyed
	// mutex (single-instance deployments only).
	var locker lock.Locker
	lockTTL := time.Duration(cfg.LockTTLSeconds) * time.Second
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, lockTTL)
		logger.Info().Msg("using redis booking locks")
	} else {
		locker = lock.NewLocalLocker()
		logger.Warn().Msg("REDIS_URL not set, using in-process booking locks")
	}

	blobs, err := blobstore.NewDiskStore(cfg.AttachmentDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open attachment store")
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMin)*time.Minute)
	recorder := audit.NewPGRecorder(pool, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "Accept-Language", "X-Request-ID"},
	}))
	e.Use(auth.Middleware(issuer, auth.DefaultSkipper))
	e.Use(middleware.Audit(logger, recorder))

	e.GET("/health", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	admin := apiV1.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	doctor := apiV1.Group("/doctor", auth.RequireRole(auth.RoleDoctor))

	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}

	identityRepo := identity.NewRepo(pool)
	identitySvc := identity.NewService(identityRepo, issuer, recorder)
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1, admin)

	catalogSvc := catalog.NewCatalogService(catalog.NewRepo(pool))
	catalog.NewHandler(catalogSvc).RegisterRoutes(admin)

	patientSvc := patient.NewService(patient.NewRepo(pool))
	patient.NewHandler(patientSvc).RegisterRoutes(admin, doctor)

	schedSvc := scheduling.NewService(scheduling.NewRepo(pool), locker, txRunner, logger, scheduling.Options{
		EnforceAvailability: cfg.EnforceAvail,
		DoctorSelfBooking:   cfg.DoctorSelfBooking,
	})
	scheduling.NewHandler(schedSvc).RegisterRoutes(admin, doctor)

	noteSvc := visitnote.NewService(visitnote.NewRepo(pool), blobs, recorder, logger)
	visitnote.NewHandler(noteSvc).RegisterRoutes(doctor)

	searchSvc := search.NewService(search.NewRepo(pool))
	search.NewHandler(searchSvc).RegisterRoutes(apiV1)

	audit.NewHandler(recorder).RegisterRoutes(admin)

	// Serve with graceful shutdown.
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(timeoutCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
