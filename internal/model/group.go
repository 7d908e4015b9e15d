package model

import "time"

// MaxParticipantsPerGroup bounds a generated participant group.
const MaxParticipantsPerGroup = 999

// Group is a named set of participants created by an organizer.
type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	CreatedBy   int64     `json:"created_by"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// GenerateGroupRequest asks for a new group filled with freshly minted participants.
type GenerateGroupRequest struct {
	Name  string `json:"name" binding:"required,notblank,max=150"`
	Count int    `json:"count" binding:"required,min=1,max=999"`
}

// Credential is a generated participant login, returned exactly once.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GeneratedGroup is the outcome of participant generation.
type GeneratedGroup struct {
	Group       Group        `json:"group"`
	Credentials []Credential `json:"credentials"`
}
