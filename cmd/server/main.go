package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/accesscode"
	"github.com/cmclain4200/approcure/internal/api"
	"github.com/cmclain4200/approcure/internal/auth"
	"github.com/cmclain4200/approcure/internal/budget"
	"github.com/cmclain4200/approcure/internal/database"
	"github.com/cmclain4200/approcure/internal/events"
	"github.com/cmclain4200/approcure/internal/membership"
	"github.com/cmclain4200/approcure/internal/projects"
	"github.com/cmclain4200/approcure/internal/requests"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/cmclain4200/approcure/internal/tasks"
	"github.com/cmclain4200/approcure/pkg/config"
	"github.com/cmclain4200/approcure/pkg/metrics"
	"github.com/cmclain4200/approcure/pkg/queue"
	"github.com/cmclain4200/approcure/pkg/util"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting approcure server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	metrics.Init(cfg.Metrics.Prefix)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.Server.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	st := store.New(db, cfg.Store.Timeout())

	// Connect to Redis. Without it events are dropped but the API still works.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient = nil
	}

	var asynqClient *asynq.Client
	var publishers events.Multi
	if redisClient != nil {
		if cfg.Events.Channel != "" {
			publishers = append(publishers, events.NewRedisPublisher(redisClient, cfg.Events.Channel))
		}
		if cfg.Events.Asynq {
			asynqClient = queue.NewClient(&cfg.Redis)
			publishers = append(publishers, tasks.NewPublisher(asynqClient))
		}
	}
	var publisher events.Publisher = events.Nop{}
	if len(publishers) > 0 {
		publisher = publishers
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(st, jwtService)
	projectService := projects.NewService(st, logger)

	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		Tokens:         jwtService,
		AuthService:    authService,
		Resolver:       access.NewResolver(st),
		AccessCodes:    accesscode.NewService(st, publisher, logger),
		Requests:       requests.NewManager(st, publisher, logger).WithRequirements(st),
		Budget:         budget.NewService(st),
		Projects:       projectService,
		Members:        membership.NewService(st, logger),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
		ClaimLimitReqs: cfg.RateLimit.ClaimRequests,
		StoreTimeout:   cfg.Store.Timeout(),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
