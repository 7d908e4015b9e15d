package service

import (
	"testing"

	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateExamValidation(t *testing.T) {
	h := newHarness(t)
	referent := h.db.addUser("referent", model.RoleOrganizer)

	_, err := h.registry.CreateExam(t.Context(), referent, model.ExamRequest{Name: "Backwards", StartsAt: at(18, 0), EndsAt: at(9, 0)})
	require.ErrorIs(t, err, ErrInvalidWindow)
	require.ErrorIs(t, err, ErrValidation)

	_, err = h.registry.CreateExam(t.Context(), referent, model.ExamRequest{Name: "No duration", EnforceDuration: true})
	require.ErrorIs(t, err, ErrDurationRequired)

	exam, err := h.registry.CreateExam(t.Context(), referent, model.ExamRequest{Name: "  Open ended  "})
	require.NoError(t, err)
	assert.Equal(t, "Open ended", exam.Name)
	assert.Equal(t, referent, exam.ReferentID)
}

func TestUpdateExamKeepsReferent(t *testing.T) {
	h := newHarness(t)
	exam := h.algo1(t)

	updated, err := h.registry.UpdateExam(t.Context(), exam.ID, model.ExamRequest{Name: "Algo1 final", StartsAt: at(10, 0), EndsAt: at(12, 0)})
	require.NoError(t, err)
	assert.Equal(t, "Algo1 final", updated.Name)

	got, err := h.registry.GetExam(t.Context(), exam.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.ReferentID, got.ReferentID)
	assert.Equal(t, *at(12, 0), *got.EndsAt)

	_, err = h.registry.UpdateExam(t.Context(), 9999, model.ExamRequest{Name: "ghost"})
	require.ErrorIs(t, err, ErrExamNotFound)
}

func TestExerciseOrdinalsAreSequentialWithGaps(t *testing.T) {
	h := newHarness(t)
	exam := h.algo1(t)

	first := h.exercise(t, exam, "", "")
	second := h.exercise(t, exam, "", "")
	require.Equal(t, 1, first.Ordinal)
	require.Equal(t, 2, second.Ordinal)

	require.NoError(t, h.registry.DeleteExercise(t.Context(), first.ID))
	third := h.exercise(t, exam, "", "")
	require.Equal(t, 3, third.Ordinal)

	list, err := h.registry.ListExercises(t.Context(), exam.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []int{2, 3}, []int{list[0].Ordinal, list[1].Ordinal})

	// Updating never moves an exercise.
	updated, err := h.registry.UpdateExercise(t.Context(), second.ID, model.ExerciseRequest{Title: "Renamed", Statement: "s"})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Ordinal)
}

func TestCreateExerciseDefaultsMaxSubmissions(t *testing.T) {
	h := newHarness(t)
	exam := h.algo1(t)

	x := h.exercise(t, exam, "", "")
	assert.Equal(t, model.DefaultMaxSubmissions, x.MaxSubmissions)

	_, err := h.registry.CreateExercise(t.Context(), 9999, 1, model.ExerciseRequest{Title: "t", Statement: "s"})
	require.ErrorIs(t, err, ErrExamNotFound)
}

func TestParseTestCases(t *testing.T) {
	tests := []struct {
		name                 string
		instances, answers   string
		instSep, ansSep      string
		wantInst, wantAnswer []string
	}{
		{
			name:      "newline separated",
			instances: "1 2\n3 4\n5 6",
			answers:   "3\n7\n11",
			wantInst:  []string{"1 2", "3 4", "5 6"}, wantAnswer: []string{"3", "7", "11"},
		},
		{
			name:      "crlf input",
			instances: "a\r\nb",
			answers:   "A\r\nB",
			wantInst:  []string{"a", "b"}, wantAnswer: []string{"A", "B"},
		},
		{
			name:      "custom separators keep embedded newlines",
			instances: "line1\nline2;;line3",
			answers:   "x|y",
			instSep:   ";;", ansSep: "|",
			wantInst:  []string{"line1\nline2", "line3"}, wantAnswer: []string{"x", "y"},
		},
		{
			name:      "blank pairs dropped",
			instances: "a\n\nc\nd",
			answers:   "A\nB\n \nD",
			wantInst:  []string{"a", "d"}, wantAnswer: []string{"A", "D"},
		},
		{
			name:      "extra instances ignored",
			instances: "a\nb\nc",
			answers:   "A",
			wantInst:  []string{"a"}, wantAnswer: []string{"A"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cases := ParseTestCases(tt.instances, tt.answers, tt.instSep, tt.ansSep)
			var inst, ans []string
			for _, c := range cases {
				inst = append(inst, c.Instance)
				ans = append(ans, c.ExpectedAnswer)
			}
			assert.Equal(t, tt.wantInst, inst)
			assert.Equal(t, tt.wantAnswer, ans)
		})
	}
}

func TestCreateExerciseBackfillsEnrolledParticipants(t *testing.T) {
	h := newHarness(t)
	exam := h.algo1(t)
	participants := h.db.addParticipants(4)
	_, err := h.enrollment.EnrollParticipants(t.Context(), exam.ID, participants)
	require.NoError(t, err)

	x := h.exercise(t, exam, "a\nb", "A\nB")
	assert.Equal(t, 2, x.TestCaseCount)

	assigned := h.db.assignments(x.ID)
	require.Len(t, assigned, 4)
	assert.Equal(t, []int{2, 2}, sortedCounts(h.db.usage(x.ID)))
}

func TestUpdateExerciseTestCaseLifecycle(t *testing.T) {
	h := newHarness(t)
	exam := h.algo1(t)
	x := h.exercise(t, exam, "a\nb", "A\nB")
	_, err := h.enrollment.EnrollParticipants(t.Context(), exam.ID, h.db.addParticipants(6))
	require.NoError(t, err)
	require.Equal(t, []int{3, 3}, sortedCounts(h.db.usage(x.ID)))

	instances, answers := "p\nq\nr", "P\nQ\nR"
	updated, err := h.registry.UpdateExercise(t.Context(), x.ID, model.ExerciseRequest{
		Title: "E1", Statement: "s", UsesTestCase: true, Instances: &instances, Answers: &answers,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.TestCaseCount)
	assert.Equal(t, []int{2, 2, 2}, sortedCounts(h.db.usage(x.ID)))

	updated, err = h.registry.UpdateExercise(t.Context(), x.ID, model.ExerciseRequest{Title: "E1", Statement: "s"})
	require.NoError(t, err)
	assert.False(t, updated.UsesTestCase)
	assert.Empty(t, h.db.assignments(x.ID))

	got, err := h.registry.GetExercise(t.Context(), x.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TestCaseCount)
}

func TestAddCommitteeMember(t *testing.T) {
	h := newHarness(t)
	exam := h.algo1(t)
	h.db.addUser("colleague", model.RoleOrganizer)
	h.db.addUser("student", model.RoleParticipant)
	outsider := h.db.addUser("outsider", model.RoleOrganizer)

	tests := []struct {
		name     string
		actor    int64
		username string
		want     error
	}{
		{"referent adds colleague", exam.ReferentID, "colleague", nil},
		{"twice", exam.ReferentID, "colleague", ErrAlreadyCommitteeMember},
		{"self", exam.ReferentID, "referent", ErrCommitteeSelf},
		{"participant", exam.ReferentID, "student", ErrNotAnOrganizer},
		{"unknown user", exam.ReferentID, "nobody", ErrUserNotFound},
		{"not the referent", outsider, "colleague", ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.registry.AddCommitteeMember(t.Context(), exam.ID, tt.actor, tt.username)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}

	exams, err := h.registry.ListExamsForOrganizer(t.Context(), outsider)
	require.NoError(t, err)
	assert.Empty(t, exams)
	assert.NotNil(t, exams)
}

func TestDeleteExam(t *testing.T) {
	h := newHarness(t)
	exam := h.algo1(t)
	x := h.exercise(t, exam, "", "")

	require.NoError(t, h.registry.DeleteExam(t.Context(), exam.ID))
	_, err := h.registry.GetExercise(t.Context(), x.ID)
	require.ErrorIs(t, err, ErrExerciseNotFound)
	require.ErrorIs(t, h.registry.DeleteExam(t.Context(), exam.ID), ErrExamNotFound)
}
