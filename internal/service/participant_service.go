package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/model"
)

const (
	usernameAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	usernamePrefix   = 4
	passwordLength   = 12
)

// ParticipantService mints participant accounts for organizers.
type ParticipantService struct {
	tx       Transactor
	users    UserStore
	groups   GroupStore
	counters CounterStore
	auth     *AuthService
	log      zerolog.Logger
}

// NewParticipantService creates a new ParticipantService.
func NewParticipantService(
	tx Transactor,
	users UserStore,
	groups GroupStore,
	counters CounterStore,
	auth *AuthService,
	log zerolog.Logger,
) *ParticipantService {
	return &ParticipantService{
		tx:       tx,
		users:    users,
		groups:   groups,
		counters: counters,
		auth:     auth,
		log:      log.With().Str("component", "participant_service").Logger(),
	}
}

func randomString(alphabet string, n int) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for range n {
		i, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[i.Int64()])
	}
	return b.String(), nil
}

// Username builds a generated participant username: a random prefix, an
// organizer marker derived from its id, and the organizer's sequence number.
func Username(prefix string, organizerID, seq int64) string {
	return fmt.Sprintf("%s%d%03d", prefix, 2*organizerID+100, seq)
}

// GenerateGroup creates count participant accounts in a new group owned by
// the organizer. Plain passwords are only returned here.
func (s *ParticipantService) GenerateGroup(ctx context.Context, organizerID int64, name string, count int) (*model.GeneratedGroup, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be positive", ErrValidation)
	}
	if count > model.MaxParticipantsPerGroup {
		return nil, ErrGroupTooLarge
	}

	creds := make([]model.Credential, count)
	prefixes := make([]string, count)
	hashes := make([]string, count)
	for i := range count {
		var err error
		if prefixes[i], err = randomString(usernameAlphabet, usernamePrefix); err != nil {
			return nil, fmt.Errorf("generate username: %w", err)
		}
		if creds[i].Password, err = randomString(passwordAlphabet, passwordLength); err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
		if hashes[i], err = s.auth.HashPassword(creds[i].Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	group := model.Group{Name: strings.TrimSpace(name), CreatedBy: organizerID}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		first, err := s.counters.Reserve(ctx, organizerID, count)
		if err != nil {
			return fmt.Errorf("reserve counter: %w", err)
		}

		usernames := make([]string, count)
		for i := range count {
			usernames[i] = Username(prefixes[i], organizerID, first+int64(i))
			creds[i].Username = usernames[i]
		}

		ids, err := s.users.CreateParticipants(ctx, organizerID, usernames, hashes)
		if err != nil {
			return fmt.Errorf("create participants: %w", err)
		}
		if err := s.groups.Create(ctx, &group); err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		if err := s.groups.AddMembers(ctx, group.ID, ids); err != nil {
			return fmt.Errorf("add members: %w", err)
		}
		group.MemberCount = len(ids)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("organizer_id", organizerID).
		Int64("group_id", group.ID).
		Int("participants", count).
		Msg("Participants generated")
	return &model.GeneratedGroup{Group: group, Credentials: creds}, nil
}

// ListGroups returns the groups an organizer created.
func (s *ParticipantService) ListGroups(ctx context.Context, organizerID int64) ([]model.Group, error) {
	groups, err := s.groups.ListByCreator(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []model.Group{}
	}
	return groups, nil
}
