package model

// DefaultMaxSubmissions is used when an exercise is created without a limit.
const DefaultMaxSubmissions = 50

// Exercise is a gradable task within an exam.
type Exercise struct {
	ID                int64  `json:"id"`
	ExamID            int64  `json:"exam_id"`
	Ordinal           int    `json:"ordinal"`
	Title             string `json:"title"`
	Statement         string `json:"statement"`
	StatementCode     string `json:"statement_code"`
	CodeRequired      bool   `json:"code_required"`
	MaxSubmissions    int    `json:"max_submissions"`
	UsesTestCase      bool   `json:"uses_test_case"`
	LiveFeedback      bool   `json:"live_feedback"`
	InstanceSeparator string `json:"instance_separator,omitempty"`
	AnswerSeparator   string `json:"answer_separator,omitempty"`
	AuthorID          int64  `json:"author_id"`
	TestCaseCount     int    `json:"test_case_count"`
}

// ExerciseRequest is the payload for creating or updating an exercise.
// Instances and Answers hold one test case per line (or per separator) and
// are paired positionally.
type ExerciseRequest struct {
	Title             string  `json:"title" binding:"required,notblank,max=200"`
	Statement         string  `json:"statement" binding:"required_without=StatementCode"`
	StatementCode     string  `json:"statement_code"`
	CodeRequired      bool    `json:"code_required"`
	MaxSubmissions    *int    `json:"max_submissions" binding:"omitempty,min=1,max=1000"`
	UsesTestCase      bool    `json:"uses_test_case"`
	LiveFeedback      bool    `json:"live_feedback"`
	InstanceSeparator string  `json:"instance_separator" binding:"max=10"`
	AnswerSeparator   string  `json:"answer_separator" binding:"max=10"`
	Instances         *string `json:"instances"`
	Answers           *string `json:"answers"`
}
