package model

// Action is an operation guarded by the capability check.
type Action string

const (
	ActionViewExam         Action = "exam:view"
	ActionEditExam         Action = "exam:edit"
	ActionDeleteExam       Action = "exam:delete"
	ActionManageCommittee  Action = "exam:committee"
	ActionEnroll           Action = "exam:enroll"
	ActionEditExercise     Action = "exercise:edit"
	ActionAllocate         Action = "exercise:allocate"
	ActionTakeExam         Action = "exam:take"
	ActionSubmit           Action = "exercise:submit"
	ActionManageOwnedGroup Action = "group:manage"
)

// Capability is a relationship between an actor and a resource.
// CapabilityExamOrganizer is held by the exam referent, and by the creator of a group.
type Capability string

const (
	CapabilityExamOrganizer       Capability = "EXAM_ORGANIZER"
	CapabilityCommitteeMember     Capability = "COMMITTEE_MEMBER"
	CapabilityEnrolledParticipant Capability = "ENROLLED_PARTICIPANT"
)

// ResourceKind names the entity an action targets.
type ResourceKind string

const (
	ResourceExam     ResourceKind = "exam"
	ResourceExercise ResourceKind = "exercise"
	ResourceGroup    ResourceKind = "group"
)

// Resource identifies the entity an action targets.
type Resource struct {
	Kind ResourceKind
	ID   int64
}

// Actor is the authenticated caller.
type Actor struct {
	UserID int64
	Role   Role
}

// ActionCapabilities lists the capabilities that grant each action.
var ActionCapabilities = map[Action][]Capability{
	ActionViewExam:         {CapabilityExamOrganizer, CapabilityCommitteeMember},
	ActionEditExam:         {CapabilityExamOrganizer, CapabilityCommitteeMember},
	ActionDeleteExam:       {CapabilityExamOrganizer},
	ActionManageCommittee:  {CapabilityExamOrganizer},
	ActionEnroll:           {CapabilityExamOrganizer},
	ActionEditExercise:     {CapabilityExamOrganizer, CapabilityCommitteeMember},
	ActionAllocate:         {CapabilityExamOrganizer, CapabilityCommitteeMember},
	ActionTakeExam:         {CapabilityEnrolledParticipant},
	ActionSubmit:           {CapabilityEnrolledParticipant},
	ActionManageOwnedGroup: {CapabilityExamOrganizer},
}
