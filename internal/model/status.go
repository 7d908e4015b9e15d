package model

import "time"

// NoDeadline is reported as remaining seconds when neither the exam end nor
// an enforced duration bounds the participant's window.
const NoDeadline = -1

// ExerciseView is an exercise as seen by an enrolled participant.
type ExerciseView struct {
	ID                   int64   `json:"id"`
	Ordinal              int     `json:"ordinal"`
	Title                string  `json:"title"`
	Statement            string  `json:"statement"`
	StatementCode        string  `json:"statement_code,omitempty"`
	CodeRequired         bool    `json:"code_required"`
	UsesTestCase         bool    `json:"uses_test_case"`
	Instance             *string `json:"instance,omitempty"`
	MaxSubmissions       int     `json:"max_submissions"`
	SubmissionCount      int     `json:"submission_count"`
	RemainingSubmissions int     `json:"remaining_submissions"`
	StoredCode           *string `json:"stored_code"`
	StoredAnswer         *string `json:"stored_answer"`
}

// ExamStatus is the participant's view of an exam at one instant.
// Exercises are only listed while the exam is open for the participant.
type ExamStatus struct {
	Exam             Exam           `json:"exam"`
	State            ExamState      `json:"state"`
	RemainingSeconds int            `json:"remaining_seconds"`
	SessionStart     *time.Time     `json:"session_start"`
	Exercises        []ExerciseView `json:"exercises,omitempty"`
}
