package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pitchlabs/pitchcoach/internal/api"
	"github.com/pitchlabs/pitchcoach/internal/auth"
	"github.com/pitchlabs/pitchcoach/internal/config"
	"github.com/pitchlabs/pitchcoach/internal/db"
	"github.com/pitchlabs/pitchcoach/internal/feedback"
	"github.com/pitchlabs/pitchcoach/internal/logging"
	"github.com/pitchlabs/pitchcoach/internal/queue"
	"github.com/pitchlabs/pitchcoach/internal/realtime"
	"github.com/pitchlabs/pitchcoach/internal/seed"
	"github.com/pitchlabs/pitchcoach/internal/store"
	"github.com/pitchlabs/pitchcoach/internal/transcripts"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger := logging.MustNewLogger(cfg.Logging).Sugar()
	defer logger.Sync()

	ctx := context.Background()

	postgres, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatalw("postgres connect failed", "error", err)
	}
	defer postgres.Close()

	if err := postgres.Ping(ctx); err != nil {
		logger.Fatalw("postgres ping failed", "error", err)
	}
	if err := postgres.EnsureSchema(ctx); err != nil {
		logger.Fatalw("postgres ensure schema failed", "error", err)
	}

	st := store.New(postgres.Pool)

	if err := seed.Run(ctx, st, logger); err != nil {
		logger.Fatalw("seed reference data failed", "error", err)
	}

	jobQueue := newQueue(cfg, logger)
	defer jobQueue.Close()

	authService, err := auth.NewService(st.Users, cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		logger.Fatalw("auth service init failed", "error", err)
	}

	transcriptService := transcripts.NewService(st, jobQueue, logger)
	generator := feedback.NewGenerator(st, cfg.OpenAI, logger)
	issuer := realtime.NewIssuer(st.Reference, cfg.OpenAI, logger)

	worker := queue.NewWorker(jobQueue, generator.Generate, cfg.Worker.Concurrency, cfg.Worker.JobTimeout, logger)
	worker.Start(ctx)
	defer worker.Stop()

	if requeued, err := transcriptService.RequeuePending(ctx); err != nil {
		logger.Warnw("requeue pending feedback failed", "error", err)
	} else if requeued > 0 {
		logger.Infow("requeued pending feedback", "count", requeued)
	}

	router := setupRouter(authService, transcriptService, st, issuer, logger)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infow("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server crashed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("graceful shutdown failed", "error", err)
	}

	logger.Info("server stopped cleanly")
}

// newQueue selects the Redis-backed queue when an address is configured and
// falls back to the in-process queue otherwise.
func newQueue(cfg *config.Config, logger *zap.SugaredLogger) queue.Queue {
	if cfg.Redis.Addr == "" {
		return queue.NewMemory(0)
	}

	redisQueue, err := queue.NewRedis(queue.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		Stream:   cfg.Redis.Stream,
		Group:    cfg.Redis.Group,
	}, logger)
	if err != nil {
		logger.Warnw("redis queue init failed, using in-process queue", "error", err)
		return queue.NewMemory(0)
	}

	logger.Infow("using redis feedback queue", "stream", cfg.Redis.Stream)
	return redisQueue
}

func setupRouter(authService *auth.Service, transcriptService *transcripts.Service, st *store.Store, issuer *realtime.Issuer, logger *zap.SugaredLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api.NewHandler(authService, transcriptService, st.Reference, issuer, logger).RegisterRoutes(router)

	return router
}
