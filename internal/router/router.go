package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/config"
	"github.com/stemsi/olympiad-backend/internal/handler"
	"github.com/stemsi/olympiad-backend/internal/middleware"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stemsi/olympiad-backend/internal/observability"
	"github.com/stemsi/olympiad-backend/internal/response"
	"github.com/stemsi/olympiad-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Exam        *handler.ExamHandler
	Exercise    *handler.ExerciseHandler
	Enrollment  *handler.EnrollmentHandler
	Participant *handler.ParticipantHandler
	WS          *handler.WSHandler
	System      *handler.SystemHandler
}

// Guards bundles what the route middlewares need.
type Guards struct {
	Auth          *service.AuthService
	Authorizer    *service.Authorizer
	SubmitLimiter *middleware.RateLimiter
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(guards Guards, handlers *Handlers, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Location", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware(log))

	if cfg.MetricsEnabled {
		observability.RegisterMetrics()
		router.Use(observability.Middleware())
		router.GET("/metrics", observability.MetricsHandler())
	}

	router.GET("/health", handlers.System.Health)

	authService := guards.Auth
	can := func(action model.Action, kind model.ResourceKind, param string) gin.HandlerFunc {
		return middleware.RequireCapability(guards.Authorizer, action, kind, param)
	}

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/participant/login", handlers.Auth.ParticipantLogin)
		auth.POST("/organizer/login", handlers.Auth.OrganizerLogin)

		auth.POST("/participant/logout",
			middleware.RequireParticipantJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Auth.ParticipantLogout,
		)
		auth.GET("/me",
			middleware.RequireAnyJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Auth.Me,
		)
	}

	// ─── 2. Participant Group (JWT + Single Device) ────────────────────
	participantAPI := router.Group("/api/v1/participant")
	participantAPI.Use(
		middleware.RequireParticipantJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		participantAPI.GET("/exams", handlers.Participant.ListExams)
		participantAPI.GET("/exams/:id", can(model.ActionTakeExam, model.ResourceExam, "id"), handlers.Participant.GetExamStatus)
		// Enrollment is checked by the gate itself, the exercise id is in the body.
		participantAPI.POST("/submissions", guards.SubmitLimiter.Middleware(), handlers.Participant.Submit)
	}

	// ─── 3. WebSocket Group (Participant WS Auth) ──────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireParticipantWSAuth(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		ws.GET("/participant/exams/:id/clock", can(model.ActionTakeExam, model.ResourceExam, "id"), handlers.WS.ExamClockStream)
	}

	// ─── 4. Organizer Group (JWT + Capabilities) ───────────────────────
	organizerAPI := router.Group("/api/v1/organizer")
	organizerAPI.Use(middleware.RequireOrganizerJWT(authService))
	{
		organizerAPI.GET("/system/stats", handlers.System.Stats)

		// Exams
		organizerAPI.GET("/exams", handlers.Exam.ListExams)
		organizerAPI.POST("/exams", handlers.Exam.CreateExam)
		organizerAPI.GET("/exams/:id", can(model.ActionViewExam, model.ResourceExam, "id"), handlers.Exam.GetExam)
		organizerAPI.PUT("/exams/:id", can(model.ActionEditExam, model.ResourceExam, "id"), handlers.Exam.UpdateExam)
		organizerAPI.DELETE("/exams/:id", can(model.ActionDeleteExam, model.ResourceExam, "id"), handlers.Exam.DeleteExam)
		organizerAPI.POST("/exams/:id/committee", can(model.ActionManageCommittee, model.ResourceExam, "id"), handlers.Exam.AddCommitteeMember)

		// Exercises
		organizerAPI.GET("/exams/:id/exercises", can(model.ActionViewExam, model.ResourceExam, "id"), handlers.Exercise.ListExercises)
		organizerAPI.POST("/exams/:id/exercises", can(model.ActionEditExam, model.ResourceExam, "id"), handlers.Exercise.CreateExercise)
		organizerAPI.PUT("/exercises/:id", can(model.ActionEditExercise, model.ResourceExercise, "id"), handlers.Exercise.UpdateExercise)
		organizerAPI.DELETE("/exercises/:id", can(model.ActionEditExercise, model.ResourceExercise, "id"), handlers.Exercise.DeleteExercise)

		// Test cases
		organizerAPI.POST("/exercises/:id/test-cases/allocate", can(model.ActionAllocate, model.ResourceExercise, "id"), handlers.Exercise.Allocate)
		organizerAPI.POST("/exercises/:id/test-cases/redistribute", can(model.ActionAllocate, model.ResourceExercise, "id"), handlers.Exercise.Redistribute)
		organizerAPI.DELETE("/exercises/:id/test-cases", can(model.ActionAllocate, model.ResourceExercise, "id"), handlers.Exercise.ClearTestCases)

		// Enrollment
		organizerAPI.POST("/exams/:id/enrollments", can(model.ActionEnroll, model.ResourceExam, "id"), handlers.Enrollment.EnrollParticipants)
		organizerAPI.POST("/exams/:id/groups/:group_id/enroll",
			can(model.ActionEnroll, model.ResourceExam, "id"),
			can(model.ActionManageOwnedGroup, model.ResourceGroup, "group_id"),
			handlers.Enrollment.EnrollGroup,
		)

		// Groups and jobs
		organizerAPI.GET("/groups", handlers.Enrollment.ListGroups)
		organizerAPI.POST("/groups", handlers.Enrollment.GenerateGroup)
		organizerAPI.GET("/jobs/:id", handlers.Enrollment.GetJob)
	}

	return router
}
