package service

import (
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/config"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newParticipantService(db *memDB) *ParticipantService {
	auth := NewAuthService(&config.Config{BcryptCost: bcrypt.MinCost}, memUsers{db}, nil)
	return NewParticipantService(db, memUsers{db}, memGroups{db}, memCounters{db}, auth, zerolog.Nop())
}

func TestUsername(t *testing.T) {
	assert.Equal(t, "abcd102001", Username("abcd", 1, 1))
	assert.Equal(t, "WXYZ120999", Username("WXYZ", 10, 999))
	assert.Equal(t, "pqrs10001000", Username("pqrs", 450, 1000))
}

func TestGenerateGroup(t *testing.T) {
	db := newMemDB()
	svc := newParticipantService(db)
	organizer := db.addUser("organizer", model.RoleOrganizer)

	first, err := svc.GenerateGroup(t.Context(), organizer, "  Class A  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "Class A", first.Group.Name)
	assert.Equal(t, 3, first.Group.MemberCount)
	require.Len(t, first.Credentials, 3)

	pattern := regexp.MustCompile(`^[a-zA-Z]{4}\d+$`)
	for i, c := range first.Credentials {
		assert.Regexp(t, pattern, c.Username)
		assert.Len(t, c.Password, passwordLength)
		assert.Equal(t, Username(c.Username[:4], organizer, int64(i+1)), c.Username)

		u, err := memUsers{db}.GetByUsername(t.Context(), c.Username)
		require.NoError(t, err)
		assert.Equal(t, model.RoleParticipant, u.Role)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.Password)))
	}

	// The sequence continues across groups of the same organizer.
	second, err := svc.GenerateGroup(t.Context(), organizer, "Class B", 2)
	require.NoError(t, err)
	assert.Equal(t, Username(second.Credentials[0].Username[:4], organizer, 4), second.Credentials[0].Username)

	members, err := memGroups{db}.MemberIDs(t.Context(), second.Group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	groups, err := svc.ListGroups(t.Context(), organizer)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Class B", groups[0].Name)
}

func TestGenerateGroupLimits(t *testing.T) {
	db := newMemDB()
	svc := newParticipantService(db)

	_, err := svc.GenerateGroup(t.Context(), 1, "empty", 0)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.GenerateGroup(t.Context(), 1, "huge", model.MaxParticipantsPerGroup+1)
	require.ErrorIs(t, err, ErrGroupTooLarge)

	groups, err := svc.ListGroups(t.Context(), 1)
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}
