package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-integrity-api/internal/analysis"
	"github.com/noah-isme/gema-integrity-api/internal/config"
	"github.com/noah-isme/gema-integrity-api/internal/database"
	"github.com/noah-isme/gema-integrity-api/internal/events"
	"github.com/noah-isme/gema-integrity-api/internal/handler"
	"github.com/noah-isme/gema-integrity-api/internal/middleware"
	"github.com/noah-isme/gema-integrity-api/internal/repository"
	"github.com/noah-isme/gema-integrity-api/internal/router"
	"github.com/noah-isme/gema-integrity-api/internal/service"
	cloud "github.com/noah-isme/gema-integrity-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Redis is optional: without it run locks are process local and reports
	// are not cached.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	} else {
		logger.Warn().Msg("redis not configured, using in-process analysis locks")
	}

	var publisher events.Publisher
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Drain()
		publisher = events.NewNATSPublisher(conn, cfg.NATSSubject)
	}

	var uploader service.FileUploader
	if cfg.CloudinaryConfigured() {
		cloudinaryService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudinaryService
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	matrixRepo := repository.NewMatrixRepository(db)

	engine := analysis.NewEngine(cfg.AnalysisOptions(), nil)
	locker := service.NewAnalysisLocker(redisClient, cfg.AnalysisLockTTL, logger)

	assignmentService := service.NewAssignmentService(assignmentRepo, classRepo, validate, logger)
	reportCache := service.NewReportCache(redisClient, cfg.ReportCacheTTL, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, classRepo, validate, uploader, reportCache, logger)
	analysisService := service.NewAnalysisService(assignmentRepo, submissionRepo, matrixRepo, classRepo, engine, locker, publisher, reportCache, logger)
	seedService := service.NewSeedService(userRepo, classRepo, assignmentRepo, submissionRepo, cfg.SeedEnabled, cfg.SeedToken, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    2 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:         &logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		AnalysisHandler:   handler.NewAnalysisHandler(analysisService, logger),
		SeedHandler:       handler.NewSeedHandler(seedService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		HealthProbes:      probes,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Str("env", cfg.AppEnv).Msg("integrity api started")

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
