package service

import (
	"context"
	"slices"

	"github.com/stemsi/olympiad-backend/internal/model"
)

// Authorizer answers whether an actor may perform an action on a resource.
// Exercises inherit the capabilities their exam grants.
type Authorizer struct {
	exams     ExamStore
	exercises ExerciseStore
	groups    GroupStore
}

// NewAuthorizer creates a new Authorizer.
func NewAuthorizer(exams ExamStore, exercises ExerciseStore, groups GroupStore) *Authorizer {
	return &Authorizer{exams: exams, exercises: exercises, groups: groups}
}

// Authorize returns nil when the actor holds one of the capabilities that
// grant the action, ErrForbidden when it holds none, and a NotFound error
// when the resource does not exist.
func (a *Authorizer) Authorize(ctx context.Context, actor model.Actor, action model.Action, res model.Resource) error {
	granting, ok := model.ActionCapabilities[action]
	if !ok {
		return ErrForbidden
	}

	held, err := a.capabilities(ctx, actor, res)
	if err != nil {
		return err
	}
	for _, c := range held {
		if slices.Contains(granting, c) {
			return nil
		}
	}
	return ErrForbidden
}

func (a *Authorizer) capabilities(ctx context.Context, actor model.Actor, res model.Resource) ([]model.Capability, error) {
	switch res.Kind {
	case model.ResourceExam:
		if _, err := a.exams.GetByID(ctx, res.ID); err != nil {
			return nil, notFound(err, ErrExamNotFound)
		}
		return a.examCapabilities(ctx, actor, res.ID)

	case model.ResourceExercise:
		x, err := a.exercises.GetByID(ctx, res.ID)
		if err != nil {
			return nil, notFound(err, ErrExerciseNotFound)
		}
		return a.examCapabilities(ctx, actor, x.ExamID)

	case model.ResourceGroup:
		g, err := a.groups.GetByID(ctx, res.ID)
		if err != nil {
			return nil, notFound(err, ErrGroupNotFound)
		}
		if actor.Role == model.RoleOrganizer && g.CreatedBy == actor.UserID {
			return []model.Capability{model.CapabilityExamOrganizer}, nil
		}
		return nil, nil
	}
	return nil, nil
}

// examCapabilities filters the stored relations by role, so an organizer
// token never acts as a participant and vice versa.
func (a *Authorizer) examCapabilities(ctx context.Context, actor model.Actor, examID int64) ([]model.Capability, error) {
	caps, err := a.exams.Capabilities(ctx, examID, actor.UserID)
	if err != nil {
		return nil, err
	}

	allowed := caps[:0]
	for _, c := range caps {
		participantCap := c == model.CapabilityEnrolledParticipant
		if participantCap == (actor.Role == model.RoleParticipant) {
			allowed = append(allowed, c)
		}
	}
	return allowed, nil
}
