package model

// MaxCodeLength and MaxAnswerLength cap submitted texts, in runes.
const (
	MaxCodeLength   = 5000
	MaxAnswerLength = 1000
)

// SubmitRequest is the transport payload of a submission.
type SubmitRequest struct {
	ExerciseID int64   `json:"exercise_id" binding:"required,gt=0"`
	Code       *string `json:"code"`
	Answer     *string `json:"answer"`
}

// SubmissionResult is the authoritative outcome of an accepted submission.
// Correct is nil when the exercise is not graded against a test case.
type SubmissionResult struct {
	Success              bool    `json:"success"`
	Correct              *bool   `json:"correct"`
	RemainingSubmissions int     `json:"remaining_submissions"`
	StoredCode           *string `json:"stored_code"`
	StoredAnswer         *string `json:"stored_answer"`
	LiveFeedback         bool    `json:"-"`
}

// ForParticipant hides correctness when the exercise gives no live feedback.
func (r SubmissionResult) ForParticipant() SubmissionResult {
	if !r.LiveFeedback {
		r.Correct = nil
	}
	return r
}
