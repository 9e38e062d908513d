package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmclain4200/approcure/internal/accesscode"
	"github.com/cmclain4200/approcure/internal/database"
	"github.com/cmclain4200/approcure/internal/events"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/cmclain4200/approcure/internal/tasks"
	"github.com/cmclain4200/approcure/pkg/config"
	"github.com/cmclain4200/approcure/pkg/queue"
	"github.com/cmclain4200/approcure/pkg/util"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
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

	logger.Info("starting approcure worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	st := store.New(db, cfg.Store.Timeout())

	// Sweeps expire codes in place; nothing downstream listens for that.
	codes := accesscode.NewService(st, events.Nop{}, logger)

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Create task handler
	handler := tasks.NewHandler(st, codes, logger)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Periodic access code sweep
	var scheduler *asynq.Scheduler
	if schedule := cfg.AccessCodes.SweepCron; schedule != "" {
		if err := util.ValidateCronExpr(schedule); err != nil {
			logger.Error("invalid access code sweep schedule", "cron", schedule, "error", err)
			os.Exit(1)
		}

		scheduler = queue.NewScheduler(&cfg.Redis)
		if _, err := scheduler.Register(schedule, tasks.NewAccessCodeSweepTask()); err != nil {
			logger.Error("failed to register access code sweep", "error", err)
			os.Exit(1)
		}
		if next, err := util.NextCronTime(schedule, time.Now()); err == nil {
			logger.Info("access code sweep scheduled", "cron", schedule, "next_run", next)
		}

		if err := scheduler.Start(); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
	}

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		if scheduler != nil {
			scheduler.Shutdown()
		}
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	// Wait for context cancellation
	<-ctx.Done()

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
