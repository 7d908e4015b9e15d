package model

import "time"

// ExamState is derived from the wall clock; it is never persisted.
type ExamState string

const (
	ExamStateNotStarted  ExamState = "NOT_STARTED"
	ExamStateOpen        ExamState = "OPEN"
	ExamStateTimeElapsed ExamState = "TIME_ELAPSED"
	ExamStateClosed      ExamState = "CLOSED"
)

// Exam is a timed competition grouping exercises.
// A nil StartsAt or EndsAt leaves the window unbounded on that side.
type Exam struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	StartsAt        *time.Time `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at"`
	DurationMinutes *int       `json:"duration_minutes"`
	EnforceDuration bool       `json:"enforce_duration"`
	SequentialOnly  bool       `json:"sequential_only"`
	ReferentID      int64      `json:"referent_id"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Duration returns the per-participant duration, or zero when none is set.
func (e *Exam) Duration() time.Duration {
	if e.DurationMinutes == nil {
		return 0
	}
	return time.Duration(*e.DurationMinutes) * time.Minute
}

// ExamRequest is the payload for creating or updating an exam.
type ExamRequest struct {
	Name            string     `json:"name" binding:"required,notblank,max=100"`
	Description     string     `json:"description" binding:"max=5000"`
	StartsAt        *time.Time `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at"`
	DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,min=1,max=10080"`
	EnforceDuration bool       `json:"enforce_duration"`
	SequentialOnly  bool       `json:"sequential_only"`
}

// AddCommitteeMemberRequest is the payload for adding an organizer to an exam committee.
type AddCommitteeMemberRequest struct {
	Username string `json:"username" binding:"required,notblank,max=100"`
}
