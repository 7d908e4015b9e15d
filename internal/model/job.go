package model

import (
	"encoding/json"
	"time"
)

// JobType identifies the operation a background job performs.
type JobType string

const (
	JobTypeEnrollParticipants  JobType = "enroll_participants"
	JobTypeEnrollGroup         JobType = "enroll_group"
	JobTypeGenerateParticipant JobType = "generate_participants"
)

// JobStatus enumerates background job states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job is the status document of an asynchronous bulk operation.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	RequestedBy int64           `json:"requested_by"`
	Payload     json.RawMessage `json:"payload"`
	Result      json.RawMessage `json:"result,omitempty"`
	Attempts    int             `json:"attempts"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EnrollParticipantsJob is the payload of JobTypeEnrollParticipants.
type EnrollParticipantsJob struct {
	ExamID         int64   `json:"exam_id"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

// EnrollGroupJob is the payload of JobTypeEnrollGroup.
type EnrollGroupJob struct {
	ExamID  int64 `json:"exam_id"`
	GroupID int64 `json:"group_id"`
}

// GenerateParticipantsJob is the payload of JobTypeGenerateParticipant.
type GenerateParticipantsJob struct {
	OrganizerID int64  `json:"organizer_id"`
	Name        string `json:"name"`
	Count       int    `json:"count"`
}
