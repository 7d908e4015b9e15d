package service

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stemsi/olympiad-backend/internal/repository"
)

// memDB is an in-memory stand-in for PostgreSQL. Transactions are serialized
// on one mutex and roll back to a snapshot when fn fails.
type memDB struct {
	mu     sync.Mutex
	nextID int64

	users      map[int64]model.User
	exams      map[int64]model.Exam
	committee  map[[2]int64]bool
	exercises  map[int64]model.Exercise
	testCases  map[int64]model.TestCase
	examEnr    map[[2]int64]model.ExamEnrollment
	exerciseEn map[int64]model.ExerciseEnrollment
	groups     map[int64]model.Group
	members    map[int64][]int64
	groupExams map[[2]int64]bool
	counters   map[int64]int64

	// failures makes the named operation return the error once.
	failures map[string]error
}

type memTxKey struct{}

func newMemDB() *memDB {
	return &memDB{
		users:      map[int64]model.User{},
		exams:      map[int64]model.Exam{},
		committee:  map[[2]int64]bool{},
		exercises:  map[int64]model.Exercise{},
		testCases:  map[int64]model.TestCase{},
		examEnr:    map[[2]int64]model.ExamEnrollment{},
		exerciseEn: map[int64]model.ExerciseEnrollment{},
		groups:     map[int64]model.Group{},
		members:    map[int64][]int64{},
		groupExams: map[[2]int64]bool{},
		counters:   map[int64]int64{},
		failures:   map[string]error{},
	}
}

func (m *memDB) snapshot() *memDB {
	s := &memDB{
		nextID:     m.nextID,
		users:      maps.Clone(m.users),
		exams:      maps.Clone(m.exams),
		committee:  maps.Clone(m.committee),
		exercises:  maps.Clone(m.exercises),
		testCases:  maps.Clone(m.testCases),
		examEnr:    maps.Clone(m.examEnr),
		exerciseEn: maps.Clone(m.exerciseEn),
		groups:     maps.Clone(m.groups),
		members:    map[int64][]int64{},
		groupExams: maps.Clone(m.groupExams),
		counters:   maps.Clone(m.counters),
	}
	for k, v := range m.members {
		s.members[k] = slices.Clone(v)
	}
	return s
}

func (m *memDB) restore(s *memDB) {
	m.nextID = s.nextID
	m.users, m.exams, m.committee = s.users, s.exams, s.committee
	m.exercises, m.testCases = s.exercises, s.testCases
	m.examEnr, m.exerciseEn = s.examEnr, s.exerciseEn
	m.groups, m.members, m.groupExams = s.groups, s.members, s.groupExams
	m.counters = s.counters
}

func (m *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// guard locks the store for a statement outside a transaction.
func (m *memDB) guard(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memDB) fail(op string) error {
	if err, ok := m.failures[op]; ok {
		delete(m.failures, op)
		return err
	}
	return nil
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

// ─── Seeding helpers ───

func (m *memDB) addUser(username string, role model.Role) int64 {
	u := model.User{ID: m.id(), Username: username, Role: role, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u.ID
}

func (m *memDB) addParticipants(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = m.addUser(fmt.Sprintf("participant-%d", m.nextID+1), model.RoleParticipant)
	}
	return ids
}

func (m *memDB) assignments(exerciseID int64) map[int64]int64 {
	out := map[int64]int64{}
	for _, e := range m.exerciseEn {
		if e.ExerciseID == exerciseID && e.TestCaseID != nil {
			out[e.ID] = *e.TestCaseID
		}
	}
	return out
}

func (m *memDB) usage(exerciseID int64) map[int64]int {
	out := map[int64]int{}
	for _, tc := range m.testCases {
		if tc.ExerciseID == exerciseID {
			out[tc.ID] = 0
		}
	}
	for _, id := range m.assignments(exerciseID) {
		out[id]++
	}
	return out
}

func (m *memDB) exerciseEnrollment(exerciseID, participantID int64) (model.ExerciseEnrollment, bool) {
	for _, e := range m.exerciseEn {
		if e.ExerciseID == exerciseID && e.ParticipantID == participantID {
			return e, true
		}
	}
	return model.ExerciseEnrollment{}, false
}

// ─── Exams ───

type memExams struct{ *memDB }

func (s memExams) Create(ctx context.Context, e *model.Exam) error {
	defer s.guard(ctx)()
	e.ID = s.id()
	e.CreatedAt = time.Now()
	s.exams[e.ID] = *e
	return nil
}

func (s memExams) Update(ctx context.Context, e *model.Exam) error {
	defer s.guard(ctx)()
	old, ok := s.exams[e.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	e.ReferentID, e.CreatedAt = old.ReferentID, old.CreatedAt
	s.exams[e.ID] = *e
	return nil
}

func (s memExams) GetByID(ctx context.Context, id int64) (*model.Exam, error) {
	defer s.guard(ctx)()
	e, ok := s.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (s memExams) LockByID(ctx context.Context, id int64) (*model.Exam, error) {
	return s.GetByID(ctx, id)
}

func (s memExams) Delete(ctx context.Context, id int64) error {
	defer s.guard(ctx)()
	if _, ok := s.exams[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.exams, id)
	for k := range s.examEnr {
		if k[0] == id {
			delete(s.examEnr, k)
		}
	}
	for xid, x := range s.exercises {
		if x.ExamID == id {
			s.deleteExercise(xid)
		}
	}
	return nil
}

func (s memExams) list(filter func(model.Exam) bool) []model.Exam {
	var out []model.Exam
	for _, e := range s.exams {
		if filter(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.Exam) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s memExams) ListForOrganizer(ctx context.Context, userID int64) ([]model.Exam, error) {
	defer s.guard(ctx)()
	return s.list(func(e model.Exam) bool {
		return e.ReferentID == userID || s.committee[[2]int64{e.ID, userID}]
	}), nil
}

func (s memExams) ListForParticipant(ctx context.Context, participantID int64) ([]model.Exam, error) {
	defer s.guard(ctx)()
	return s.list(func(e model.Exam) bool {
		_, ok := s.examEnr[[2]int64{e.ID, participantID}]
		return ok
	}), nil
}

func (s memExams) AddCommitteeMember(ctx context.Context, examID, userID int64) error {
	defer s.guard(ctx)()
	key := [2]int64{examID, userID}
	if s.committee[key] {
		return repository.ErrDuplicate
	}
	s.committee[key] = true
	return nil
}

func (s memExams) Capabilities(ctx context.Context, examID, userID int64) ([]model.Capability, error) {
	defer s.guard(ctx)()
	var caps []model.Capability
	if e, ok := s.exams[examID]; ok && e.ReferentID == userID {
		caps = append(caps, model.CapabilityExamOrganizer)
	}
	if s.committee[[2]int64{examID, userID}] {
		caps = append(caps, model.CapabilityCommitteeMember)
	}
	if _, ok := s.examEnr[[2]int64{examID, userID}]; ok {
		caps = append(caps, model.CapabilityEnrolledParticipant)
	}
	return caps, nil
}

// ─── Exercises ───

type memExercises struct{ *memDB }

func (s memExercises) withCount(x model.Exercise) *model.Exercise {
	x.TestCaseCount = 0
	for _, tc := range s.testCases {
		if tc.ExerciseID == x.ID {
			x.TestCaseCount++
		}
	}
	return &x
}

func (s memExercises) Create(ctx context.Context, x *model.Exercise) error {
	defer s.guard(ctx)()
	ordinal := 0
	for _, other := range s.exercises {
		if other.ExamID == x.ExamID {
			ordinal = max(ordinal, other.Ordinal)
		}
	}
	x.ID = s.id()
	x.Ordinal = ordinal + 1
	s.exercises[x.ID] = *x
	return nil
}

func (s memExercises) Update(ctx context.Context, x *model.Exercise) error {
	defer s.guard(ctx)()
	old, ok := s.exercises[x.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	x.ExamID, x.Ordinal, x.AuthorID = old.ExamID, old.Ordinal, old.AuthorID
	s.exercises[x.ID] = *x
	return nil
}

func (s memExercises) SetUsesTestCase(ctx context.Context, id int64, uses bool) error {
	defer s.guard(ctx)()
	x, ok := s.exercises[id]
	if !ok {
		return pgx.ErrNoRows
	}
	x.UsesTestCase = uses
	s.exercises[id] = x
	return nil
}

func (s memExercises) GetByID(ctx context.Context, id int64) (*model.Exercise, error) {
	defer s.guard(ctx)()
	x, ok := s.exercises[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s.withCount(x), nil
}

func (s memExercises) LockByID(ctx context.Context, id int64) (*model.Exercise, error) {
	return s.GetByID(ctx, id)
}

func (s memExercises) ListByExam(ctx context.Context, examID int64) ([]model.Exercise, error) {
	defer s.guard(ctx)()
	var out []model.Exercise
	for _, x := range s.exercises {
		if x.ExamID == examID {
			out = append(out, *s.withCount(x))
		}
	}
	slices.SortFunc(out, func(a, b model.Exercise) int { return cmp.Compare(a.Ordinal, b.Ordinal) })
	return out, nil
}

func (m *memDB) deleteExercise(id int64) {
	delete(m.exercises, id)
	for tid, tc := range m.testCases {
		if tc.ExerciseID == id {
			delete(m.testCases, tid)
		}
	}
	for eid, e := range m.exerciseEn {
		if e.ExerciseID == id {
			delete(m.exerciseEn, eid)
		}
	}
}

func (s memExercises) Delete(ctx context.Context, id int64) error {
	defer s.guard(ctx)()
	if _, ok := s.exercises[id]; !ok {
		return pgx.ErrNoRows
	}
	s.deleteExercise(id)
	return nil
}

// ─── Test cases ───

type memTestCases struct{ *memDB }

func (m *memDB) dropTestCases(exerciseID int64) int64 {
	var n int64
	for id, tc := range m.testCases {
		if tc.ExerciseID != exerciseID {
			continue
		}
		delete(m.testCases, id)
		n++
		for eid, e := range m.exerciseEn {
			if e.TestCaseID != nil && *e.TestCaseID == id {
				e.TestCaseID = nil
				m.exerciseEn[eid] = e
			}
		}
	}
	return n
}

func (s memTestCases) ReplaceForExercise(ctx context.Context, exerciseID int64, cases []model.TestCase) error {
	defer s.guard(ctx)()
	if err := s.fail("ReplaceForExercise"); err != nil {
		return err
	}
	s.dropTestCases(exerciseID)
	for _, tc := range cases {
		tc.ID = s.id()
		tc.ExerciseID = exerciseID
		s.testCases[tc.ID] = tc
	}
	return nil
}

func (s memTestCases) ListIDs(ctx context.Context, exerciseID int64) ([]int64, error) {
	defer s.guard(ctx)()
	var ids []int64
	for id, tc := range s.testCases {
		if tc.ExerciseID == exerciseID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s memTestCases) GetByID(ctx context.Context, id int64) (*model.TestCase, error) {
	defer s.guard(ctx)()
	tc, ok := s.testCases[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &tc, nil
}

func (s memTestCases) DeleteByExercise(ctx context.Context, exerciseID int64) (int64, error) {
	defer s.guard(ctx)()
	return s.dropTestCases(exerciseID), nil
}

// ─── Enrollments ───

type memEnrollments struct{ *memDB }

func (s memEnrollments) InsertExamEnrollments(ctx context.Context, examID int64, participantIDs []int64) (int64, error) {
	defer s.guard(ctx)()
	if err := s.fail("InsertExamEnrollments"); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range participantIDs {
		key := [2]int64{examID, p}
		if _, ok := s.examEnr[key]; ok {
			continue
		}
		s.examEnr[key] = model.ExamEnrollment{ID: s.id(), ParticipantID: p, ExamID: examID}
		n++
	}
	return n, nil
}

func (s memEnrollments) insertExercise(exerciseID, participantID int64) bool {
	if _, ok := s.exerciseEnrollment(exerciseID, participantID); ok {
		return false
	}
	id := s.id()
	s.exerciseEn[id] = model.ExerciseEnrollment{ID: id, ParticipantID: participantID, ExerciseID: exerciseID}
	return true
}

func (s memEnrollments) InsertExerciseEnrollments(ctx context.Context, exerciseIDs, participantIDs []int64) (int64, error) {
	defer s.guard(ctx)()
	if err := s.fail("InsertExerciseEnrollments"); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range participantIDs {
		for _, x := range exerciseIDs {
			if s.insertExercise(x, p) {
				n++
			}
		}
	}
	return n, nil
}

func (s memEnrollments) BackfillExercise(ctx context.Context, examID, exerciseID int64) (int64, error) {
	defer s.guard(ctx)()
	var n int64
	for key, e := range s.examEnr {
		if key[0] == examID && s.insertExercise(exerciseID, e.ParticipantID) {
			n++
		}
	}
	return n, nil
}

func (s memEnrollments) GetExamEnrollment(ctx context.Context, examID, participantID int64) (*model.ExamEnrollment, error) {
	defer s.guard(ctx)()
	e, ok := s.examEnr[[2]int64{examID, participantID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (s memEnrollments) StartSession(ctx context.Context, examID, participantID int64, at time.Time) (*model.ExamEnrollment, error) {
	defer s.guard(ctx)()
	key := [2]int64{examID, participantID}
	e, ok := s.examEnr[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if e.SessionStart == nil {
		e.SessionStart = &at
		s.examEnr[key] = e
	}
	return &e, nil
}

func (s memEnrollments) GetExerciseEnrollment(ctx context.Context, exerciseID, participantID int64) (*model.ExerciseEnrollment, error) {
	defer s.guard(ctx)()
	e, ok := s.exerciseEnrollment(exerciseID, participantID)
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (s memEnrollments) ListExerciseEnrollments(ctx context.Context, examID, participantID int64) ([]model.ExerciseEnrollment, error) {
	defer s.guard(ctx)()
	var out []model.ExerciseEnrollment
	for _, e := range s.exerciseEn {
		if x, ok := s.exercises[e.ExerciseID]; ok && x.ExamID == examID && e.ParticipantID == participantID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.ExerciseEnrollment) int {
		return cmp.Compare(s.exercises[a.ExerciseID].Ordinal, s.exercises[b.ExerciseID].Ordinal)
	})
	return out, nil
}

func (s memEnrollments) AssignedTestCaseIDs(ctx context.Context, exerciseID int64) ([]int64, error) {
	defer s.guard(ctx)()
	var ids []int64
	for _, e := range s.exerciseEn {
		if e.ExerciseID == exerciseID && e.TestCaseID != nil {
			ids = append(ids, *e.TestCaseID)
		}
	}
	return ids, nil
}

func (s memEnrollments) enrollmentIDs(exerciseID int64, keep func(model.ExerciseEnrollment) bool) []int64 {
	var ids []int64
	for id, e := range s.exerciseEn {
		if e.ExerciseID == exerciseID && keep(e) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (s memEnrollments) UnassignedIDs(ctx context.Context, exerciseID int64) ([]int64, error) {
	defer s.guard(ctx)()
	return s.enrollmentIDs(exerciseID, func(e model.ExerciseEnrollment) bool { return e.TestCaseID == nil }), nil
}

func (s memEnrollments) EnrollmentIDs(ctx context.Context, exerciseID int64) ([]int64, error) {
	defer s.guard(ctx)()
	return s.enrollmentIDs(exerciseID, func(model.ExerciseEnrollment) bool { return true }), nil
}

func (s memEnrollments) assign(plan []model.TestCaseAssignment, onlyUnassigned bool) int64 {
	var n int64
	for _, a := range plan {
		e, ok := s.exerciseEn[a.EnrollmentID]
		if !ok || (onlyUnassigned && e.TestCaseID != nil) {
			continue
		}
		tc := a.TestCaseID
		e.TestCaseID = &tc
		s.exerciseEn[a.EnrollmentID] = e
		n++
	}
	return n
}

func (s memEnrollments) AssignIfUnassigned(ctx context.Context, plan []model.TestCaseAssignment) (int64, error) {
	defer s.guard(ctx)()
	return s.assign(plan, true), nil
}

func (s memEnrollments) OverwriteAssignments(ctx context.Context, plan []model.TestCaseAssignment) (int64, error) {
	defer s.guard(ctx)()
	return s.assign(plan, false), nil
}

func (s memEnrollments) ClearAssignments(ctx context.Context, exerciseID int64) (int64, error) {
	defer s.guard(ctx)()
	var n int64
	for id, e := range s.exerciseEn {
		if e.ExerciseID == exerciseID && e.TestCaseID != nil {
			e.TestCaseID = nil
			s.exerciseEn[id] = e
			n++
		}
	}
	return n, nil
}

func (s memEnrollments) RecordSubmission(ctx context.Context, exerciseID, participantID int64, code, answer *string, maxSubmissions int) (*model.ExerciseEnrollment, error) {
	defer s.guard(ctx)()
	e, ok := s.exerciseEnrollment(exerciseID, participantID)
	if !ok || e.SubmissionCount >= maxSubmissions {
		return nil, pgx.ErrNoRows
	}
	e.Code, e.Answer = code, answer
	e.SubmissionCount++
	s.exerciseEn[e.ID] = e
	return &e, nil
}

// ─── Groups, users, counters ───

type memGroups struct{ *memDB }

func (s memGroups) GetByID(ctx context.Context, id int64) (*model.Group, error) {
	defer s.guard(ctx)()
	g, ok := s.groups[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	g.MemberCount = len(s.members[id])
	return &g, nil
}

func (s memGroups) Create(ctx context.Context, g *model.Group) error {
	defer s.guard(ctx)()
	g.ID = s.id()
	g.CreatedAt = time.Now()
	s.groups[g.ID] = *g
	return nil
}

func (s memGroups) AddMembers(ctx context.Context, groupID int64, participantIDs []int64) error {
	defer s.guard(ctx)()
	s.members[groupID] = append(s.members[groupID], participantIDs...)
	return nil
}

func (s memGroups) MemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	defer s.guard(ctx)()
	ids := slices.Clone(s.members[groupID])
	slices.Sort(ids)
	return ids, nil
}

func (s memGroups) LinkExam(ctx context.Context, groupID, examID int64) (bool, error) {
	defer s.guard(ctx)()
	key := [2]int64{groupID, examID}
	if s.groupExams[key] {
		return false, nil
	}
	s.groupExams[key] = true
	return true, nil
}

func (s memGroups) ListByCreator(ctx context.Context, organizerID int64) ([]model.Group, error) {
	defer s.guard(ctx)()
	var out []model.Group
	for id, g := range s.groups {
		if g.CreatedBy == organizerID {
			g.MemberCount = len(s.members[id])
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b model.Group) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

type memUsers struct{ *memDB }

func (s memUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	defer s.guard(ctx)()
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (s memUsers) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	defer s.guard(ctx)()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s memUsers) create(u *model.User) error {
	for _, other := range s.users {
		if other.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	u.ID = s.id()
	u.CreatedAt = time.Now()
	s.users[u.ID] = *u
	return nil
}

func (s memUsers) Create(ctx context.Context, u *model.User) error {
	defer s.guard(ctx)()
	return s.create(u)
}

func (s memUsers) CreateParticipants(ctx context.Context, _ int64, usernames, hashes []string) ([]int64, error) {
	defer s.guard(ctx)()
	ids := make([]int64, len(usernames))
	for i := range usernames {
		u := &model.User{Username: usernames[i], PasswordHash: hashes[i], Role: model.RoleParticipant}
		if err := s.create(u); err != nil {
			return nil, err
		}
		ids[i] = u.ID
	}
	return ids, nil
}

func (s memUsers) ExistingParticipantIDs(ctx context.Context, ids []int64) ([]int64, error) {
	defer s.guard(ctx)()
	var out []int64
	for _, id := range ids {
		if u, ok := s.users[id]; ok && u.Role == model.RoleParticipant {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

type memCounters struct{ *memDB }

func (s memCounters) Reserve(ctx context.Context, ownerID int64, n int) (int64, error) {
	defer s.guard(ctx)()
	s.counters[ownerID] += int64(n)
	return s.counters[ownerID] - int64(n) + 1, nil
}
