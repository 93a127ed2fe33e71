package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openlms/assignment-service/internal/auth"
	"github.com/openlms/assignment-service/internal/cache"
	"github.com/openlms/assignment-service/internal/config"
	"github.com/openlms/assignment-service/internal/events"
	"github.com/openlms/assignment-service/internal/handlers"
	"github.com/openlms/assignment-service/internal/models"
	"github.com/openlms/assignment-service/internal/repositories/postgres"
	"github.com/openlms/assignment-service/internal/services"
	"github.com/openlms/assignment-service/internal/storage"
	"github.com/openlms/assignment-service/internal/utils"
	"github.com/openlms/assignment-service/internal/validator"
	"github.com/openlms/assignment-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	var logger utils.Logger
	if cfg.IsProduction() {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Assignment{}, &models.Submission{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Optional infrastructure degrades to in-process fallbacks so the
	// service stays runnable in local development.
	cacheService := cache.NewNoopCache()
	if cfg.RedisURL != "" {
		redisClient, err := pkg.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, slogger)
	} else {
		logger.Warn("REDIS_URL not set, caching disabled")
	}

	var fileStore storage.FileStore
	if cfg.Cloudinary.Configured() {
		fileStore, err = storage.NewCloudinaryStore(storage.CloudinaryConfig{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
			Folder:    cfg.Cloudinary.Folder,
		}, slogger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
	} else {
		logger.Warn("Cloudinary not configured, storing uploads in memory")
		fileStore = storage.NewMemoryFileStore()
	}

	var publisher events.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: cfg.KafkaBrokers,
			TopicName:    cfg.KafkaTopic,
			Logger:       slogger,
		})
		if err != nil {
			log.Fatalf("failed to create kafka publisher: %v", err)
		}
		publisher = kafkaPublisher
	} else {
		logger.Warn("KAFKA_BROKERS not set, events stay in process")
		publisher = events.NewMockEventPublisher(slogger)
	}
	defer publisher.Close()

	if err := auth.Init(auth.CasdoorConfig(cfg.Casdoor)); err != nil {
		log.Fatalf("failed to initialize casdoor: %v", err)
	}

	v := validator.New()
	repo := postgres.NewRepository(db)

	assignmentService := services.NewAssignmentService(repo, cacheService, publisher, slogger, v)
	submissionService := services.NewSubmissionService(repo, fileStore, cacheService, publisher, slogger, v)
	exportService := services.NewExportService(repo, slogger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(assignmentService, submissionService, exportService, logger)
	handlerManager.SetupRoutes(router, auth.Middleware(logger, repo.User()))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(server, logger)
}

func waitForShutdown(server *http.Server, logger utils.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
		return
	}
	logger.Info("Server stopped")
}
