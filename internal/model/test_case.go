package model

// TestCase is an (instance, expected answer) pair of an exercise.
type TestCase struct {
	ID             int64  `json:"id"`
	ExerciseID     int64  `json:"exercise_id"`
	Instance       string `json:"instance"`
	ExpectedAnswer string `json:"-"`
}
