package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/config"
	"github.com/stemsi/olympiad-backend/internal/model"
)

// JobService stores background job status documents in Redis and feeds the
// enrollment worker queue.
type JobService struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewJobService creates a new JobService.
func NewJobService(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *JobService {
	return &JobService{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "job_service").Logger(),
	}
}

// Enqueue records a QUEUED job and pushes it onto the worker queue.
func (s *JobService) Enqueue(ctx context.Context, jobType model.JobType, requestedBy int64, payload any) (*model.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	now := time.Now()
	job := &model.Job{
		ID:          uuid.New().String(),
		Type:        jobType,
		Status:      model.JobStatusQueued,
		RequestedBy: requestedBy,
		Payload:     raw,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Save(ctx, job); err != nil {
		return nil, err
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.EnrollmentJobsQueue, job.ID).Err(); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.log.Info().Str("job_id", job.ID).Str("type", string(jobType)).Msg("Job queued")
	return job, nil
}

// Get returns a job's status document.
func (s *JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.JobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	var job model.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// Save overwrites a job's status document.
func (s *JobService) Save(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now()
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.JobKey(job.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	return nil
}

// Requeue puts a job back at the tail of the queue.
func (s *JobService) Requeue(ctx context.Context, id string) error {
	return s.rdb.RPush(ctx, config.WorkerKey.EnrollmentJobsQueue, id).Err()
}
