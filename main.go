package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"content-hub-cms/config"
	"content-hub-cms/handlers"
	"content-hub-cms/helper"
	"content-hub-cms/jobs"
	"content-hub-cms/logger"
	"content-hub-cms/notification"
	"content-hub-cms/repositories"
	"content-hub-cms/router"
	"content-hub-cms/services"
	"content-hub-cms/storage"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	appLog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer appLog.Sync()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		appLog.Fatal("database unavailable", "error", err)
	}
	if err := config.AutoMigrate(db); err != nil {
		appLog.Fatal("migration failed", "error", err)
	}

	// Collaborators
	var notifier notification.Notifier = notification.NewLogNotifier(appLog)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier := notification.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}
	var store storage.ObjectStore = storage.NopStore{}
	if cfg.MinIO.Endpoint != "" {
		minioStore, err := storage.NewMinIOStore(cfg.MinIO.Endpoint, cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, cfg.MinIO.BucketName, cfg.MinIO.UseSSL)
		if err != nil {
			appLog.Fatal("object storage unavailable", "error", err)
		}
		store = minioStore
	}

	// Initialize repositories and services
	repos := repositories.New(db)
	clock := services.SystemClock()
	authService := services.NewAuthService(repos.Users, cfg.JWT, clock)
	materialService := services.NewMaterialService(repos)
	submissionService := services.NewSubmissionService(repos, notifier, store, clock, cfg.Submission, appLog)

	// Initialize handlers
	httpHelper := helper.NewHTTPHelper()
	engine := router.New(router.Handlers{
		Auth:       handlers.NewAuthHandler(authService, httpHelper),
		Material:   handlers.NewMaterialHandler(materialService, httpHelper),
		Submission: handlers.NewSubmissionHandler(submissionService, httpHelper),
	}, cfg.JWT.Secret, httpHelper, appLog)

	sweeper := jobs.NewSubmissionSweeper(submissionService, cfg.Submission.Retention, appLog)
	if err := sweeper.Start(cfg.Submission.SweepSchedule); err != nil {
		appLog.Fatal("invalid sweep schedule", "schedule", cfg.Submission.SweepSchedule, "error", err)
	}
	defer sweeper.Stop()

	// Start server
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine}
	go func() {
		appLog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("graceful shutdown failed", "error", err)
	}
}
