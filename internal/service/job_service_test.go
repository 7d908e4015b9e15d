package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/config"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	jobs := NewJobService(rdb, time.Hour, zerolog.Nop())
	ctx := t.Context()

	first, err := jobs.Enqueue(ctx, model.JobTypeEnrollGroup, 7, model.EnrollGroupJob{ExamID: 1, GroupID: 2})
	require.NoError(t, err)
	second, err := jobs.Enqueue(ctx, model.JobTypeEnrollParticipants, 7, model.EnrollParticipantsJob{ExamID: 1, ParticipantIDs: []int64{3}})
	require.NoError(t, err)

	queued, err := mr.List(config.WorkerKey.EnrollmentJobsQueue)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, queued)

	got, err := jobs.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, got.Status)
	assert.Equal(t, int64(7), got.RequestedBy)
	assert.JSONEq(t, `{"exam_id":1,"group_id":2}`, string(got.Payload))
	assert.Equal(t, time.Hour, mr.TTL(config.CacheKey.JobKey(first.ID)))

	got.Status = model.JobStatusFailed
	got.LastError = "boom"
	require.NoError(t, jobs.Save(ctx, got))
	got, err = jobs.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.LastError)

	require.NoError(t, jobs.Requeue(ctx, first.ID))
	queued, err = mr.List(config.WorkerKey.EnrollmentJobsQueue)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID, first.ID}, queued)

	_, err = jobs.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrJobNotFound)
	require.ErrorIs(t, err, ErrNotFound)
}
