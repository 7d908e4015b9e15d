package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/config"
	"github.com/stemsi/olympiad-backend/internal/database"
	"github.com/stemsi/olympiad-backend/internal/repository"
	"github.com/stemsi/olympiad-backend/internal/service"
	"github.com/stemsi/olympiad-backend/internal/worker"
)

// Services is the wired service layer shared by the server and examctl.
type Services struct {
	Auth         *service.AuthService
	Authorizer   *service.Authorizer
	Registry     *service.RegistryService
	Allocator    *service.AllocatorService
	Enrollment   *service.EnrollmentService
	Participants *service.ParticipantService
	Clock        *service.SessionClock
	Gate         *service.SubmissionGate
	Jobs         *service.JobService
}

// NewServices builds repositories and services on top of pool and rdb.
func NewServices(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *Services {
	// ─── Repositories ──────────────────────────────────────────────────
	tx := database.NewTxManager(pool)
	examRepo := repository.NewExamRepository(pool)
	exerciseRepo := repository.NewExerciseRepository(pool)
	testCaseRepo := repository.NewTestCaseRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	counterRepo := repository.NewCounterRepository(pool)

	// ─── Services ──────────────────────────────────────────────────────
	auth := service.NewAuthService(cfg, userRepo, rdb)
	allocator := service.NewAllocatorService(tx, exerciseRepo, testCaseRepo, enrollmentRepo, log)
	clock := service.NewSessionClock(examRepo, exerciseRepo, testCaseRepo, enrollmentRepo, rdb, log)

	return &Services{
		Auth:         auth,
		Authorizer:   service.NewAuthorizer(examRepo, exerciseRepo, groupRepo),
		Registry:     service.NewRegistryService(tx, examRepo, exerciseRepo, testCaseRepo, enrollmentRepo, userRepo, allocator, cfg.DefaultMaxSubmissions, log),
		Allocator:    allocator,
		Enrollment:   service.NewEnrollmentService(tx, examRepo, exerciseRepo, enrollmentRepo, groupRepo, userRepo, allocator, log),
		Participants: service.NewParticipantService(tx, userRepo, groupRepo, counterRepo, auth, log),
		Clock:        clock,
		Gate:         service.NewSubmissionGate(tx, examRepo, exerciseRepo, testCaseRepo, enrollmentRepo, clock, log),
		Jobs:         service.NewJobService(rdb, cfg.JobStatusTTL, log),
	}
}

// NewEnrollmentWorker builds the worker that drains the enrollment job queue.
func (s *Services) NewEnrollmentWorker(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) *worker.EnrollmentWorker {
	return worker.NewEnrollmentWorker(rdb, s.Jobs, s.Enrollment, s.Participants, cfg.JobMaxAttempts, log)
}
