package platform

import (
	"context"

	"github.com/jrsteele09/go-course-client/rbac"
	"github.com/jrsteele09/go-course-client/sessions"
)

// Backend is the transport boundary to the platform's main API. Operations
// receive the resolved session and return domain values or taxonomy errors;
// the transport itself (HTTP, fake, ...) is an implementation detail.
type Backend interface {
	Courses(ctx context.Context, session sessions.Session) ([]Course, error)
	Course(ctx context.Context, session sessions.Session, courseID string) (*Course, error)
	CreateCourse(ctx context.Context, session sessions.Session, input Course) (*Course, error)
	UpdateCourse(ctx context.Context, session sessions.Session, courseID string, patch Course) (*Course, error)
	DeleteCourse(ctx context.Context, session sessions.Session, courseID string) error
	EnrollStudent(ctx context.Context, session sessions.Session, courseID, userID string) error

	TestsByCourse(ctx context.Context, session sessions.Session, courseID string) ([]Test, error)
	CreateTest(ctx context.Context, session sessions.Session, input Test) (*Test, error)
	DeleteTest(ctx context.Context, session sessions.Session, testID string) error

	QuestionsByTest(ctx context.Context, session sessions.Session, testID string) ([]Question, error)
	CreateQuestion(ctx context.Context, session sessions.Session, input Question) (*Question, error)

	Attempts(ctx context.Context, session sessions.Session) ([]Attempt, error)

	Users(ctx context.Context, session sessions.Session) ([]UserData, error)
	SetUserBlocked(ctx context.Context, session sessions.Session, userID string, blocked bool) error
	AssignRoles(ctx context.Context, session sessions.Session, userID string, roles []rbac.RoleType) error
}
