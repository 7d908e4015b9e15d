package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/config"
	"github.com/stemsi/olympiad-backend/internal/model"
)

// IsOpen reports whether now falls inside the exam's global window.
// Both bounds are inclusive; a nil bound is unbounded.
func IsOpen(exam *model.Exam, now time.Time) bool {
	if exam.StartsAt != nil && now.Before(*exam.StartsAt) {
		return false
	}
	if exam.EndsAt != nil && now.After(*exam.EndsAt) {
		return false
	}
	return true
}

// SessionClock derives exam state and remaining time for a participant and
// anchors the personal window on first access.
type SessionClock struct {
	exams       ExamStore
	exercises   ExerciseStore
	testCases   TestCaseStore
	enrollments EnrollmentStore
	rdb         *redis.Client
	log         zerolog.Logger

	now func() time.Time
}

// NewSessionClock creates a new SessionClock. rdb may be nil, in which case
// session starts are always read from PostgreSQL.
func NewSessionClock(
	exams ExamStore,
	exercises ExerciseStore,
	testCases TestCaseStore,
	enrollments EnrollmentStore,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionClock {
	return &SessionClock{
		exams:       exams,
		exercises:   exercises,
		testCases:   testCases,
		enrollments: enrollments,
		rdb:         rdb,
		log:         log.With().Str("component", "session_clock").Logger(),
		now:         time.Now,
	}
}

// Now returns the clock's current instant.
func (c *SessionClock) Now() time.Time {
	return c.now()
}

// personalEnd returns the end of the participant's own window, if any.
func personalEnd(exam *model.Exam, enrollment *model.ExamEnrollment) (time.Time, bool) {
	if !exam.EnforceDuration || exam.Duration() <= 0 || enrollment == nil || enrollment.SessionStart == nil {
		return time.Time{}, false
	}
	return enrollment.SessionStart.Add(exam.Duration()), true
}

// State derives the exam lifecycle state for the enrollment at now.
func (c *SessionClock) State(exam *model.Exam, enrollment *model.ExamEnrollment, now time.Time) model.ExamState {
	switch {
	case exam.StartsAt != nil && now.Before(*exam.StartsAt):
		return model.ExamStateNotStarted
	case exam.EndsAt != nil && now.After(*exam.EndsAt):
		return model.ExamStateClosed
	}
	if end, ok := personalEnd(exam, enrollment); ok && now.After(end) {
		return model.ExamStateTimeElapsed
	}
	return model.ExamStateOpen
}

// RemainingSeconds returns the whole seconds left before min(personal end,
// exam end), never negative. An enforced duration that has not started yet
// counts as a full duration from now. Returns model.NoDeadline when nothing
// bounds the window.
func (c *SessionClock) RemainingSeconds(exam *model.Exam, enrollment *model.ExamEnrollment, now time.Time) int {
	var end *time.Time
	if exam.EndsAt != nil {
		t := *exam.EndsAt
		end = &t
	}

	if exam.EnforceDuration && exam.Duration() > 0 {
		personal := now.Add(exam.Duration())
		if p, ok := personalEnd(exam, enrollment); ok {
			personal = p
		}
		if end == nil || personal.Before(*end) {
			end = &personal
		}
	}

	if end == nil {
		return model.NoDeadline
	}
	remaining := end.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining / time.Second)
}

// EnsureStarted returns the participant's exam enrollment, recording now as
// the session start on first access when the exam enforces a duration and is
// open. The start is written once and never reset.
func (c *SessionClock) EnsureStarted(ctx context.Context, exam *model.Exam, participantID int64) (*model.ExamEnrollment, error) {
	return c.ensureStarted(ctx, exam, participantID, c.now())
}

func (c *SessionClock) ensureStarted(ctx context.Context, exam *model.Exam, participantID int64, now time.Time) (*model.ExamEnrollment, error) {
	if cached, ok := c.cachedStart(ctx, exam.ID, participantID); ok {
		return &model.ExamEnrollment{ParticipantID: participantID, ExamID: exam.ID, SessionStart: &cached}, nil
	}

	var (
		enrollment *model.ExamEnrollment
		err        error
	)
	if exam.EnforceDuration && exam.Duration() > 0 && IsOpen(exam, now) {
		enrollment, err = c.enrollments.StartSession(ctx, exam.ID, participantID, now)
	} else {
		enrollment, err = c.enrollments.GetExamEnrollment(ctx, exam.ID, participantID)
	}
	if err != nil {
		return nil, notFound(err, ErrEnrollmentNotFound)
	}

	if enrollment.SessionStart != nil {
		c.cacheStart(ctx, exam, participantID, *enrollment.SessionStart)
	}
	return enrollment, nil
}

// cachedStart reads the session start from Redis. A miss or a Redis failure
// falls back to PostgreSQL.
func (c *SessionClock) cachedStart(ctx context.Context, examID, participantID int64) (time.Time, bool) {
	if c.rdb == nil {
		return time.Time{}, false
	}

	key := config.CacheKey.ExamSessionStartKey(examID, participantID)
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("Session start cache read failed")
		}
		return time.Time{}, false
	}

	micros, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Invalid session start in cache")
		return time.Time{}, false
	}
	return time.UnixMicro(micros), true
}

func (c *SessionClock) cacheStart(ctx context.Context, exam *model.Exam, participantID int64, start time.Time) {
	if c.rdb == nil {
		return
	}
	key := config.CacheKey.ExamSessionStartKey(exam.ID, participantID)
	ttl := exam.Duration() + 24*time.Hour
	if err := c.rdb.Set(ctx, key, start.UnixMicro(), ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Session start cache write failed")
	}
}

// Status starts the participant's clock if needed and returns the exam state,
// remaining time and, while open, the participant's exercises.
func (c *SessionClock) Status(ctx context.Context, examID, participantID int64) (*model.ExamStatus, error) {
	exam, err := c.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, notFound(err, ErrExamNotFound)
	}

	now := c.now()
	enrollment, err := c.ensureStarted(ctx, exam, participantID, now)
	if err != nil {
		return nil, err
	}

	status := &model.ExamStatus{
		Exam:             *exam,
		State:            c.State(exam, enrollment, now),
		RemainingSeconds: c.RemainingSeconds(exam, enrollment, now),
		SessionStart:     enrollment.SessionStart,
	}
	if status.State != model.ExamStateOpen {
		return status, nil
	}

	status.Exercises, err = c.exerciseViews(ctx, examID, participantID)
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (c *SessionClock) exerciseViews(ctx context.Context, examID, participantID int64) ([]model.ExerciseView, error) {
	exercises, err := c.exercises.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	enrollments, err := c.enrollments.ListExerciseEnrollments(ctx, examID, participantID)
	if err != nil {
		return nil, err
	}

	byExercise := make(map[int64]model.ExerciseEnrollment, len(enrollments))
	for _, e := range enrollments {
		byExercise[e.ExerciseID] = e
	}

	views := make([]model.ExerciseView, 0, len(exercises))
	for _, x := range exercises {
		e, ok := byExercise[x.ID]
		if !ok {
			continue
		}
		view := model.ExerciseView{
			ID:                   x.ID,
			Ordinal:              x.Ordinal,
			Title:                x.Title,
			Statement:            x.Statement,
			StatementCode:        x.StatementCode,
			CodeRequired:         x.CodeRequired,
			UsesTestCase:         x.UsesTestCase,
			MaxSubmissions:       x.MaxSubmissions,
			SubmissionCount:      e.SubmissionCount,
			RemainingSubmissions: max(0, x.MaxSubmissions-e.SubmissionCount),
			StoredCode:           e.Code,
			StoredAnswer:         e.Answer,
		}
		if x.UsesTestCase && e.TestCaseID != nil {
			tc, err := c.testCases.GetByID(ctx, *e.TestCaseID)
			if err == nil {
				view.Instance = &tc.Instance
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
		}
		views = append(views, view)
	}
	return views, nil
}
