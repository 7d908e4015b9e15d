package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/config"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stemsi/olympiad-backend/internal/observability"
	"github.com/stemsi/olympiad-backend/internal/service"
)

// JobPollTimeout bounds each blocking pop on the job queue.
const JobPollTimeout = 1 * time.Second

// Enroller performs the enrollment jobs.
type Enroller interface {
	EnrollParticipants(ctx context.Context, examID int64, participantIDs []int64) (*service.EnrollmentResult, error)
	EnrollGroup(ctx context.Context, examID, groupID int64) (*service.GroupEnrollmentResult, error)
}

// ParticipantGenerator performs participant generation jobs.
type ParticipantGenerator interface {
	GenerateGroup(ctx context.Context, organizerID int64, name string, count int) (*model.GeneratedGroup, error)
}

// EnrollmentWorker drains the job queue and runs bulk enrollment and
// participant generation outside the request path.
type EnrollmentWorker struct {
	rdb         *redis.Client
	jobs        *service.JobService
	enroller    Enroller
	generator   ParticipantGenerator
	maxAttempts int
	log         zerolog.Logger
}

func NewEnrollmentWorker(
	rdb *redis.Client,
	jobs *service.JobService,
	enroller Enroller,
	generator ParticipantGenerator,
	maxAttempts int,
	log zerolog.Logger,
) *EnrollmentWorker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &EnrollmentWorker{
		rdb:         rdb,
		jobs:        jobs,
		enroller:    enroller,
		generator:   generator,
		maxAttempts: maxAttempts,
		log:         log.With().Str("component", "enrollment_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

func (w *EnrollmentWorker) Start(ctx context.Context) {
	w.log.Info().Msg("EnrollmentWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("EnrollmentWorker stopped")
			return

		default:
			item, err := w.rdb.BLPop(ctx, JobPollTimeout, config.WorkerKey.EnrollmentJobsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			w.process(ctx, item[1])
		}
	}
}

// ----------------------------------------------------------------
// Job execution
// ----------------------------------------------------------------

func (w *EnrollmentWorker) process(ctx context.Context, jobID string) {
	log := w.log.With().Str("job_id", jobID).Logger()

	job, err := w.jobs.Get(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Msg("Job status unavailable, dropping")
		return
	}

	job.Status = model.JobStatusProcessing
	job.Attempts++
	if err := w.jobs.Save(ctx, job); err != nil {
		log.Warn().Err(err).Msg("Failed to mark job as processing")
	}

	result, runErr := w.run(ctx, job)
	if runErr == nil {
		job.Status = model.JobStatusCompleted
		job.Result = result
		job.LastError = ""
		w.finish(ctx, job, log)
		log.Info().Str("type", string(job.Type)).Int("attempts", job.Attempts).Msg("Job completed")
		return
	}

	job.LastError = runErr.Error()
	if permanent(runErr) || job.Attempts >= w.maxAttempts {
		job.Status = model.JobStatusFailed
		w.finish(ctx, job, log)
		log.Error().Err(runErr).Int("attempts", job.Attempts).Msg("Job failed")
		return
	}

	job.Status = model.JobStatusQueued
	if err := w.jobs.Save(ctx, job); err != nil {
		log.Warn().Err(err).Msg("Failed to record job retry")
	}
	if err := w.jobs.Requeue(ctx, job.ID); err != nil {
		log.Error().Err(err).Msg("Requeue failed")
		return
	}
	log.Warn().Err(runErr).Int("attempts", job.Attempts).Msg("Job failed, requeued")
}

func (w *EnrollmentWorker) finish(ctx context.Context, job *model.Job, log zerolog.Logger) {
	observability.Jobs().WithLabelValues(string(job.Type), string(job.Status)).Inc()
	if err := w.jobs.Save(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to store job outcome")
	}
}

// permanent reports errors that a retry cannot fix.
func permanent(err error) bool {
	return errors.Is(err, service.ErrValidation) ||
		errors.Is(err, service.ErrNotFound) ||
		errors.Is(err, service.ErrForbidden)
}

func (w *EnrollmentWorker) run(ctx context.Context, job *model.Job) (json.RawMessage, error) {
	var (
		out any
		err error
	)

	switch job.Type {
	case model.JobTypeEnrollParticipants:
		var p model.EnrollParticipantsJob
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrValidation, err)
		}
		out, err = w.enroller.EnrollParticipants(ctx, p.ExamID, p.ParticipantIDs)

	case model.JobTypeEnrollGroup:
		var p model.EnrollGroupJob
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrValidation, err)
		}
		out, err = w.enroller.EnrollGroup(ctx, p.ExamID, p.GroupID)

	case model.JobTypeGenerateParticipant:
		var p model.GenerateParticipantsJob
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrValidation, err)
		}
		out, err = w.generator.GenerateGroup(ctx, p.OrganizerID, p.Name, p.Count)

	default:
		return nil, fmt.Errorf("%w: unknown job type %q", service.ErrValidation, job.Type)
	}
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return raw, nil
}
