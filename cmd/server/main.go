package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/app"
	"github.com/stemsi/olympiad-backend/internal/config"
	"github.com/stemsi/olympiad-backend/internal/database"
	"github.com/stemsi/olympiad-backend/internal/handler"
	"github.com/stemsi/olympiad-backend/internal/logger"
	"github.com/stemsi/olympiad-backend/internal/middleware"
	"github.com/stemsi/olympiad-backend/internal/router"
	"github.com/stemsi/olympiad-backend/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Olympiad Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Services ──────────────────────────────────────────
	services := app.NewServices(cfg, pool, rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(services.Auth, log),
		Exam:        handler.NewExamHandler(services.Registry, log),
		Exercise:    handler.NewExerciseHandler(services.Registry, services.Allocator, log),
		Enrollment:  handler.NewEnrollmentHandler(services.Enrollment, services.Participants, services.Jobs, cfg.EnrollAsyncThreshold, log),
		Participant: handler.NewParticipantHandler(services.Registry, services.Clock, services.Gate, log),
		WS:          handler.NewWSHandler(services.Clock, log, cfg.AllowedOrigins),
		System:      handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	enrollmentWorker := services.NewEnrollmentWorker(cfg, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		enrollmentWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	guards := router.Guards{
		Auth:          services.Auth,
		Authorizer:    services.Authorizer,
		SubmitLimiter: middleware.NewRateLimiter(ctx, cfg.SubmitRateLimit, cfg.SubmitRateInterval),
	}
	r := router.SetupRouter(guards, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the worker; a job in flight finishes or is requeued.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
