// Package backendfake is an in-memory Backend used in tests and by the demo
// client. It enforces the enrollment rule the real backend enforces: a user
// unrelated to a course gets NeedsEnrollment, not Forbidden.
package backendfake

import (
	"context"
	"sync"

	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-course-client/internal/errors"
	"github.com/jrsteele09/go-course-client/platform"
	"github.com/jrsteele09/go-course-client/rbac"
	"github.com/jrsteele09/go-course-client/sessions"
	"github.com/jrsteele09/go-course-client/users"
	"github.com/pkg/errors"
)

var _ platform.Backend = (*FakeBackend)(nil)

type FakeBackend struct {
	lock        sync.RWMutex
	courses     map[string]platform.Course
	tests       map[string]platform.Test
	questions   map[string]platform.Question
	attempts    map[string]platform.Attempt
	enrollments map[string]map[string]bool // courseID -> userID -> enrolled
	directory   users.Repo
}

// NewFakeBackend creates a fake backend over the given identity directory.
func NewFakeBackend(directory users.Repo) *FakeBackend {
	return &FakeBackend{
		courses:     make(map[string]platform.Course),
		tests:       make(map[string]platform.Test),
		questions:   make(map[string]platform.Question),
		attempts:    make(map[string]platform.Attempt),
		enrollments: make(map[string]map[string]bool),
		directory:   directory,
	}
}

func (b *FakeBackend) Courses(ctx context.Context, session sessions.Session) ([]platform.Course, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	list := make([]platform.Course, 0, len(b.courses))
	for _, course := range b.courses {
		list = append(list, course)
	}
	return list, nil
}

func (b *FakeBackend) Course(ctx context.Context, session sessions.Session, courseID string) (*platform.Course, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	course, ok := b.courses[courseID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &course, nil
}

func (b *FakeBackend) CreateCourse(ctx context.Context, session sessions.Session, input platform.Course) (*platform.Course, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	input.ID = uuid.New().String()
	if input.TeacherID == "" && session.User != nil {
		input.TeacherID = session.User.ID
	}
	b.courses[input.ID] = input
	return &input, nil
}

func (b *FakeBackend) UpdateCourse(ctx context.Context, session sessions.Session, courseID string, patch platform.Course) (*platform.Course, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	course, ok := b.courses[courseID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if patch.Title != "" {
		course.Title = patch.Title
	}
	if patch.Description != "" {
		course.Description = patch.Description
	}
	b.courses[courseID] = course
	return &course, nil
}

func (b *FakeBackend) DeleteCourse(ctx context.Context, session sessions.Session, courseID string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	delete(b.courses, courseID)
	delete(b.enrollments, courseID)
	return nil
}

func (b *FakeBackend) EnrollStudent(ctx context.Context, session sessions.Session, courseID, userID string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if _, ok := b.courses[courseID]; !ok {
		return errs.ErrNotFound
	}
	if userID == "" && session.User != nil {
		userID = session.User.ID
	}
	if b.enrollments[courseID] == nil {
		b.enrollments[courseID] = make(map[string]bool)
	}
	b.enrollments[courseID][userID] = true
	return nil
}

// TestsByCourse requires a relationship with the course: its teacher, an
// enrolled student, or an admin. Everyone else gets NeedsEnrollment.
func (b *FakeBackend) TestsByCourse(ctx context.Context, session sessions.Session, courseID string) ([]platform.Test, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	course, ok := b.courses[courseID]
	if !ok {
		return nil, errs.ErrNotFound
	}

	if !b.relatedToCourse(session, course) {
		return nil, errs.ErrNeedsEnrollment
	}

	var list []platform.Test
	for _, test := range b.tests {
		if test.CourseID == courseID {
			list = append(list, test)
		}
	}
	return list, nil
}

func (b *FakeBackend) relatedToCourse(session sessions.Session, course platform.Course) bool {
	if session.User == nil {
		return false
	}
	if session.User.HasRole(rbac.RoleAdmin) || session.User.ID == course.TeacherID {
		return true
	}
	return b.enrollments[course.ID][session.User.ID]
}

func (b *FakeBackend) CreateTest(ctx context.Context, session sessions.Session, input platform.Test) (*platform.Test, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if _, ok := b.courses[input.CourseID]; !ok {
		return nil, errs.ErrNotFound
	}
	input.ID = uuid.New().String()
	if input.AuthorID == "" && session.User != nil {
		input.AuthorID = session.User.ID
	}
	b.tests[input.ID] = input
	return &input, nil
}

func (b *FakeBackend) DeleteTest(ctx context.Context, session sessions.Session, testID string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	delete(b.tests, testID)
	return nil
}

func (b *FakeBackend) QuestionsByTest(ctx context.Context, session sessions.Session, testID string) ([]platform.Question, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	var list []platform.Question
	for _, question := range b.questions {
		if question.TestID == testID {
			list = append(list, question)
		}
	}
	return list, nil
}

func (b *FakeBackend) CreateQuestion(ctx context.Context, session sessions.Session, input platform.Question) (*platform.Question, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if _, ok := b.tests[input.TestID]; !ok {
		return nil, errs.ErrNotFound
	}
	input.ID = uuid.New().String()
	input.Version = 1
	b.questions[input.ID] = input
	return &input, nil
}

func (b *FakeBackend) Attempts(ctx context.Context, session sessions.Session) ([]platform.Attempt, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	list := make([]platform.Attempt, 0, len(b.attempts))
	for _, attempt := range b.attempts {
		list = append(list, attempt)
	}
	return list, nil
}

func (b *FakeBackend) Users(ctx context.Context, session sessions.Session) ([]platform.UserData, error) {
	all, err := b.directory.List(0, 0)
	if err != nil {
		return nil, errors.Wrap(err, "[FakeBackend.Users] directory.List")
	}

	list := make([]platform.UserData, 0, len(all))
	for _, user := range all {
		list = append(list, platform.UserData{
			ID:        user.ID,
			Username:  user.Username,
			FullName:  user.FullName,
			Email:     user.Email,
			IsBlocked: user.Blocked,
			Roles:     user.Roles,
		})
	}
	return list, nil
}

func (b *FakeBackend) SetUserBlocked(ctx context.Context, session sessions.Session, userID string, blocked bool) error {
	return b.directory.SetBlocked(userID, blocked)
}

func (b *FakeBackend) AssignRoles(ctx context.Context, session sessions.Session, userID string, roles []rbac.RoleType) error {
	user, err := b.directory.GetByID(userID)
	if err != nil {
		return errors.Wrap(err, "[FakeBackend.AssignRoles] directory.GetByID")
	}
	user.Roles = append([]rbac.RoleType(nil), roles...)
	return b.directory.Upsert(user)
}
