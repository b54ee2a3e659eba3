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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medinexus/twin/internal/config"
	"github.com/medinexus/twin/internal/domain/appointments"
	"github.com/medinexus/twin/internal/domain/billing"
	"github.com/medinexus/twin/internal/domain/careplan"
	"github.com/medinexus/twin/internal/domain/doctors"
	"github.com/medinexus/twin/internal/domain/documents"
	"github.com/medinexus/twin/internal/domain/identity"
	"github.com/medinexus/twin/internal/domain/insights"
	"github.com/medinexus/twin/internal/domain/labs"
	"github.com/medinexus/twin/internal/domain/notifications"
	"github.com/medinexus/twin/internal/domain/symptoms"
	"github.com/medinexus/twin/internal/domain/twin"
	"github.com/medinexus/twin/internal/domain/vitals"
	"github.com/medinexus/twin/internal/platform/ai"
	"github.com/medinexus/twin/internal/platform/auth"
	"github.com/medinexus/twin/internal/platform/blobstore"
	"github.com/medinexus/twin/internal/platform/cache"
	"github.com/medinexus/twin/internal/platform/db"
	"github.com/medinexus/twin/internal/platform/metrics"
	"github.com/medinexus/twin/internal/platform/middleware"
	"github.com/medinexus/twin/internal/platform/mqtt"
	"github.com/medinexus/twin/internal/platform/notification"
	"github.com/medinexus/twin/internal/platform/payments"
	"github.com/medinexus/twin/internal/platform/video"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "twin-server",
		Short: "Digital twin health API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())

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

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("twin-server", version)
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
			target, _ := cmd.Flags().GetInt("to")

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

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.UpTo(ctx, target)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	upCmd.Flags().Int("to", 0, "Highest version to apply (0 applies all pending)")
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

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Redis is optional; without it token revocation falls back to the
	// in-process list.
	redisClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info().Msg("connected to redis")
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.TokenTTLHours)*time.Hour)
	var revoked auth.RevocationList
	if redisClient != nil {
		revoked = auth.NewRedisRevocationList(redisClient.Client)
	} else {
		revoked = auth.NewMemoryRevocationList()
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M", "10M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Liveness, readiness and metrics stay outside the API group.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	var redisPing func(context.Context) error
	if redisClient != nil {
		redisPing = redisClient.Health
	}
	e.GET("/ready", db.ReadyHandler(pool, redisPing))
	e.GET("/metrics", metrics.Handler())

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Event store
	eventRepo := twin.NewEventRepoPG(pool)
	twinSvc := twin.NewService(eventRepo, logger)

	// Identity
	userRepo := identity.NewRepoPG(pool)
	identitySvc := identity.NewService(userRepo, issuer, revoked)
	identityHandler := identity.NewHandler(identitySvc)

	// Notification center. Delivery uses the log senders until a real
	// mail/SMS provider is configured.
	notifRepo := notifications.NewRepoPG(pool)
	notifCenter := notifications.NewService(
		notifRepo,
		notification.NewTemplateEngine(),
		&notification.LogEmailSender{Logger: logger},
		&notification.LogSMSSender{Logger: logger},
		userRepo,
		logger,
	)
	notifHandler := notifications.NewHandler(notifCenter)

	// Provider clients shared across domains
	aiClient := ai.New(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, time.Duration(cfg.AITimeoutSeconds)*time.Second, logger)
	rtc := video.NewProvider(cfg.VideoAppID, cfg.VideoAppSecret, time.Duration(cfg.VideoTokenTTLMinutes)*time.Minute)
	payClient := payments.New(cfg.PaymentsBaseURL, cfg.PaymentsAPIKey, time.Duration(cfg.PaymentsTimeoutSeconds)*time.Second, logger)

	// Feature writers
	labsRepo := labs.NewRepoPG(pool)
	labsSvc := labs.NewService(labsRepo, twinSvc, notifCenter, labs.StatusPolicy{
		CriticalLowFactor:  cfg.LabCriticalLowFactor,
		CriticalHighFactor: cfg.LabCriticalHighFactor,
	})
	labsHandler := labs.NewHandler(labsSvc)

	docsRepo := documents.NewRepoPG(pool)
	docsSvc := documents.NewService(docsRepo, twinSvc, aiClient, blobstore.NewPGStore(pool))
	docsHandler := documents.NewHandler(docsSvc)

	planRepo := careplan.NewRepoPG(pool)
	planSvc := careplan.NewService(planRepo, twinSvc)
	planHandler := careplan.NewHandler(planSvc)

	apptRepo := appointments.NewRepoPG(pool)
	apptSvc := appointments.NewService(apptRepo, twinSvc, rtc, notifCenter)
	apptHandler := appointments.NewHandler(apptSvc)

	vitalRepo := vitals.NewRepoPG(pool)
	deviceRepo := vitals.NewDeviceRepoPG(pool)
	vitalsSvc := vitals.NewService(vitalRepo, deviceRepo, twinSvc)
	vitalsHandler := vitals.NewHandler(vitalsSvc)

	checkRepo := symptoms.NewRepoPG(pool)
	symptomsSvc := symptoms.NewService(checkRepo, twinSvc, aiClient)
	symptomsHandler := symptoms.NewHandler(symptomsSvc)

	// Reader side
	agg := twin.NewAggregator(planRepo, apptRepo, labsRepo, docsRepo, vitalRepo)
	twinHandler := twin.NewHandler(twinSvc, agg)

	insightsHandler := insights.NewHandler(insights.NewService(eventRepo))

	doctorsRepo := doctors.NewRepoPG(pool)
	doctorsHandler := doctors.NewHandler(doctors.NewService(doctorsRepo))

	// Billing. Webhook activation runs inside a transaction so the
	// status flip and the session lookup cannot race a replay.
	subRepo := billing.NewRepoPG(pool)
	billingSvc := billing.NewService(subRepo, payClient, notifCenter,
		func(ctx context.Context, fn func(context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
		cfg.PaymentsWebhookSecret, logger)
	billingHandler := billing.NewHandler(billingSvc)

	// Routes registered before the auth middleware stay public.
	identityHandler.RegisterPublicRoutes(apiV1)
	billingHandler.RegisterPublicRoutes(apiV1)

	apiV1.Use(auth.Middleware(issuer, revoked))

	identityHandler.RegisterRoutes(apiV1)
	twinHandler.RegisterRoutes(apiV1)
	labsHandler.RegisterRoutes(apiV1)
	docsHandler.RegisterRoutes(apiV1)
	planHandler.RegisterRoutes(apiV1)
	apptHandler.RegisterRoutes(apiV1)
	vitalsHandler.RegisterRoutes(apiV1)
	symptomsHandler.RegisterRoutes(apiV1)
	notifHandler.RegisterRoutes(apiV1)
	billingHandler.RegisterRoutes(apiV1)
	insightsHandler.RegisterRoutes(apiV1)
	doctorsHandler.RegisterRoutes(apiV1)

	// Device vitals bridge (optional)
	if cfg.MQTTEnabled {
		bridge := mqtt.NewBridge(cfg.MQTTBrokerURL, cfg.MQTTClientID, cfg.MQTTTopic, vitalsSvc, logger)
		if err := bridge.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start vitals bridge")
		}
		defer bridge.Stop()
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
