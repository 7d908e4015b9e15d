package model

import "time"

// ExamEnrollment binds a participant to an exam and anchors the personal time window.
type ExamEnrollment struct {
	ID            int64      `json:"id"`
	ParticipantID int64      `json:"participant_id"`
	ExamID        int64      `json:"exam_id"`
	SessionStart  *time.Time `json:"session_start"`
}

// ExerciseEnrollment carries a participant's mutable state for one exercise.
type ExerciseEnrollment struct {
	ID              int64   `json:"id"`
	ParticipantID   int64   `json:"participant_id"`
	ExerciseID      int64   `json:"exercise_id"`
	TestCaseID      *int64  `json:"test_case_id,omitempty"`
	Code            *string `json:"code"`
	Answer          *string `json:"answer"`
	SubmissionCount int     `json:"submission_count"`
}

// TestCaseAssignment pairs an exercise enrollment with the test case it receives.
type TestCaseAssignment struct {
	EnrollmentID int64
	TestCaseID   int64
}

// EnrollParticipantsRequest is the payload for enrolling participants into an exam.
type EnrollParticipantsRequest struct {
	ParticipantIDs []int64 `json:"participant_ids" binding:"required,min=1,max=5000,dive,gt=0"`
}
