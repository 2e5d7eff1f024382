package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cinescope/movie_reviewer/internal/config"
	"github.com/cinescope/movie_reviewer/internal/delivery/events"
	httpDelivery "github.com/cinescope/movie_reviewer/internal/delivery/http"
	"github.com/cinescope/movie_reviewer/internal/delivery/http/handler"
	"github.com/cinescope/movie_reviewer/internal/pkg/cache"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
	"github.com/cinescope/movie_reviewer/internal/pkg/session"
	cacheRepo "github.com/cinescope/movie_reviewer/internal/repository/cache"
	"github.com/cinescope/movie_reviewer/internal/storage/legacy"
	"github.com/cinescope/movie_reviewer/internal/storage/moviecat"
	"github.com/cinescope/movie_reviewer/internal/storage/oplog"
	"github.com/cinescope/movie_reviewer/internal/storage/reviewstore"
	"github.com/cinescope/movie_reviewer/internal/storage/userdir"
	"github.com/cinescope/movie_reviewer/internal/usecase/rating"
	"github.com/cinescope/movie_reviewer/internal/usecase/review"
	"github.com/cinescope/movie_reviewer/internal/usecase/user"
	"github.com/cinescope/movie_reviewer/internal/worker"
)

// @title Movie Reviews API
// @version 1.0
// @description A social movie review platform with durable flat-file storage, caching, and event-driven rating aggregation.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/cinescope/movie_reviewer
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @tag.name Auth
// @tag.description Registration and session endpoints

// @tag.name Users
// @tag.description Account and social graph endpoints

// @tag.name Movies
// @tag.description Movie catalog endpoints

// @tag.name Reviews
// @tag.description Review management endpoints

// @tag.name Admin
// @tag.description Administrative endpoints

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting Movie Reviews API...")

	// Flat-file stores. The operation log is replayed into memory on boot;
	// a malformed log is a startup failure, not something to limp past.
	appLogger.Info("Opening movie catalog...")
	catalog, err := moviecat.Open(cfg.MoviesPath(), appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open movie catalog", err)
	}

	appLogger.Info("Opening user directory...")
	users, err := userdir.Open(cfg.UsersPath(), appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open user directory", err)
	}

	appLogger.Info("Loading legacy review export...")
	legacyReviews, err := legacy.Load(cfg.LegacyExportPath(), catalog.TitleIndex())
	if err != nil {
		appLogger.Fatal("Failed to load legacy review export", err)
	}
	appLogger.Infof("Loaded %d legacy reviews", len(legacyReviews))

	appLogger.Info("Opening review operation log...")
	reviewLog, err := oplog.Open(cfg.ReviewLogPath())
	if err != nil {
		appLogger.Fatal("Failed to open review operation log", err)
	}

	store, err := reviewstore.New(reviewLog, legacyReviews, cfg.Data.CompactionThreshold, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to build review store", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Error("Failed to close review store", err)
		}
	}()
	appLogger.Infof("Review store ready with %d reviews", store.Count())

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	streamConfig := events.NewStreamConfig(publisher.JetStream(), appLogger)
	if err := streamConfig.EnsureStream(); err != nil {
		appLogger.Fatal("Failed to ensure stream", err)
	}
	if err := streamConfig.EnsureConsumer(); err != nil {
		appLogger.Fatal("Failed to ensure consumer", err)
	}

	redisCache := cacheRepo.NewRedisCache(
		redisClient,
		cfg.Cache.MovieRatingTTL,
		cfg.Cache.ReviewsListTTL,
	)

	sessions := session.NewManager(cfg.Session.TTL)
	sessionStop := make(chan struct{})
	sessions.StartCleanup(10*time.Minute, sessionStop)
	defer close(sessionStop)

	ratingService := rating.NewService(store, redisCache, appLogger)
	reviewService := review.NewService(store, catalog, users, redisCache, publisher, appLogger)
	userService := user.NewService(users, sessions, reviewService, appLogger)

	// The rating worker consumes review events in-process: the operation
	// log has a single owner, so the aggregates are computed here rather
	// than in a separate binary.
	ratingWorker := worker.NewRatingWorker(ratingService, appLogger)
	sub, err := publisher.JetStream().PullSubscribe(events.StreamSubjects, events.ConsumerName, nats.ManualAck())
	if err != nil {
		appLogger.Fatal("Failed to subscribe to JetStream consumer", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			appLogger.Error("Failed to unsubscribe from JetStream", err)
		}
	}()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	go ratingWorker.Run(workerCtx, sub)
	appLogger.WithFields(map[string]interface{}{
		"stream":   events.StreamName,
		"consumer": events.ConsumerName,
	}).Info("Rating worker subscribed to JetStream consumer")

	userHandler := handler.NewUserHandler(userService, cfg.Session.TTL, appLogger)
	movieHandler := handler.NewMovieHandler(catalog, ratingService, reviewService, userService, appLogger)
	reviewHandler := handler.NewReviewHandler(reviewService, appLogger)

	router := httpDelivery.NewRouter(userHandler, movieHandler, reviewHandler, sessions, users, cfg, appLogger)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	workerCancel()
	if err := ratingWorker.Shutdown(ctx); err != nil {
		appLogger.Error("Rating worker shutdown incomplete", err)
	}

	appLogger.Info("Server stopped gracefully")
}
