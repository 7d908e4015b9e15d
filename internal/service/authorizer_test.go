package service

import (
	"testing"

	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	exam := h.algo1(t)
	x := h.exercise(t, exam, "", "")

	colleague := h.db.addUser("colleague", model.RoleOrganizer)
	stranger := h.db.addUser("stranger", model.RoleOrganizer)
	require.NoError(t, h.registry.AddCommitteeMember(ctx, exam.ID, exam.ReferentID, "colleague"))

	participant := h.db.addParticipants(1)[0]
	_, err := h.enrollment.EnrollParticipants(ctx, exam.ID, []int64{participant})
	require.NoError(t, err)
	outsider := h.db.addParticipants(1)[0]

	group := &model.Group{Name: "class A", CreatedBy: colleague}
	require.NoError(t, memGroups{h.db}.Create(ctx, group))

	referent := model.Actor{UserID: exam.ReferentID, Role: model.RoleOrganizer}
	member := model.Actor{UserID: colleague, Role: model.RoleOrganizer}
	examRes := model.Resource{Kind: model.ResourceExam, ID: exam.ID}
	exerciseRes := model.Resource{Kind: model.ResourceExercise, ID: x.ID}
	groupRes := model.Resource{Kind: model.ResourceGroup, ID: group.ID}

	tests := []struct {
		name   string
		actor  model.Actor
		action model.Action
		res    model.Resource
		want   error
	}{
		{"referent edits", referent, model.ActionEditExam, examRes, nil},
		{"referent deletes", referent, model.ActionDeleteExam, examRes, nil},
		{"committee edits", member, model.ActionEditExam, examRes, nil},
		{"committee cannot delete", member, model.ActionDeleteExam, examRes, ErrForbidden},
		{"committee cannot enroll", member, model.ActionEnroll, examRes, ErrForbidden},
		{"committee allocates exercise", member, model.ActionAllocate, exerciseRes, nil},
		{"stranger views", model.Actor{UserID: stranger, Role: model.RoleOrganizer}, model.ActionViewExam, examRes, ErrForbidden},
		{"participant submits", model.Actor{UserID: participant, Role: model.RoleParticipant}, model.ActionSubmit, exerciseRes, nil},
		{"participant cannot edit", model.Actor{UserID: participant, Role: model.RoleParticipant}, model.ActionEditExercise, exerciseRes, ErrForbidden},
		{"outsider cannot take", model.Actor{UserID: outsider, Role: model.RoleParticipant}, model.ActionTakeExam, examRes, ErrForbidden},
		{"organizer token cannot take", referent, model.ActionTakeExam, examRes, ErrForbidden},
		{"group creator manages", member, model.ActionManageOwnedGroup, groupRes, nil},
		{"other organizer cannot manage group", referent, model.ActionManageOwnedGroup, groupRes, ErrForbidden},
		{"unknown action", referent, model.Action("exam:explode"), examRes, ErrForbidden},
		{"missing exam", referent, model.ActionViewExam, model.Resource{Kind: model.ResourceExam, ID: 9999}, ErrExamNotFound},
		{"missing exercise", referent, model.ActionEditExercise, model.Resource{Kind: model.ResourceExercise, ID: 9999}, ErrExerciseNotFound},
		{"missing group", member, model.ActionManageOwnedGroup, model.Resource{Kind: model.ResourceGroup, ID: 9999}, ErrGroupNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.authorizer.Authorize(t.Context(), tt.actor, tt.action, tt.res)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}
