package platform

import (
	"context"

	"github.com/jrsteele09/go-course-client/dispatch"
	"github.com/jrsteele09/go-course-client/rbac"
	"github.com/jrsteele09/go-course-client/sessions"
	"github.com/pkg/errors"
)

// Client exposes the platform operations behind the dispatch policy. Course
// and test reads are open to any authorized user; writes and admin reads
// declare the permission the backend will enforce, so the check happens once,
// in the dispatcher.
type Client struct {
	d       *dispatch.Dispatcher
	backend Backend
}

// NewClient creates a platform client.
func NewClient(d *dispatch.Dispatcher, backend Backend) (*Client, error) {
	if d == nil {
		return nil, errors.New("[NewClient] dispatcher is required")
	}
	if backend == nil {
		return nil, errors.New("[NewClient] backend is required")
	}
	return &Client{d: d, backend: backend}, nil
}

func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	return dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) ([]Course, error) {
		return c.backend.Courses(ctx, s)
	})
}

func (c *Client) Course(ctx context.Context, courseID string) (*Course, error) {
	return dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) (*Course, error) {
		return c.backend.Course(ctx, s, courseID)
	})
}

func (c *Client) CreateCourse(ctx context.Context, input Course) (*Course, error) {
	return dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) (*Course, error) {
		return c.backend.CreateCourse(ctx, s, input)
	}, dispatch.RequirePermission(rbac.PermCourseAdd))
}

func (c *Client) UpdateCourse(ctx context.Context, courseID string, patch Course) (*Course, error) {
	return dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) (*Course, error) {
		return c.backend.UpdateCourse(ctx, s, courseID, patch)
	}, dispatch.RequirePermission(rbac.PermCourseInfoWrite))
}

func (c *Client) DeleteCourse(ctx context.Context, courseID string) error {
	_, err := dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) (struct{}, error) {
		return struct{}{}, c.backend.DeleteCourse(ctx, s, courseID)
	}, dispatch.RequirePermission(rbac.PermCourseDelete))
	return err
}

// Enroll adds the current user (or the given one) to a course. Forbidden is
// suppressed here: a student who cannot see a course yet is offered
// enrollment in-page rather than bounced to the forbidden view.
func (c *Client) Enroll(ctx context.Context, courseID, userID string) error {
	_, err := dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) (struct{}, error) {
		return struct{}{}, c.backend.EnrollStudent(ctx, s, courseID, userID)
	}, dispatch.SuppressForbiddenRedirect())
	return err
}

// TestsByCourse lists a course's tests. A backend answer of NeedsEnrollment
// propagates to the caller so the page can offer enrollment.
func (c *Client) TestsByCourse(ctx context.Context, courseID string) ([]Test, error) {
	return dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) ([]Test, error) {
		return c.backend.TestsByCourse(ctx, s, courseID)
	}, dispatch.SuppressForbiddenRedirect())
}

func (c *Client) CreateTest(ctx context.Context, input Test) (*Test, error) {
	return dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) (*Test, error) {
		return c.backend.CreateTest(ctx, s, input)
	}, dispatch.RequirePermission(rbac.PermTestAdd))
}

func (c *Client) DeleteTest(ctx context.Context, testID string) error {
	_, err := dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) (struct{}, error) {
		return struct{}{}, c.backend.DeleteTest(ctx, s, testID)
	}, dispatch.RequirePermission(rbac.PermTestDelete))
	return err
}

func (c *Client) QuestionsByTest(ctx context.Context, testID string) ([]Question, error) {
	return dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) ([]Question, error) {
		return c.backend.QuestionsByTest(ctx, s, testID)
	}, dispatch.RequirePermission(rbac.PermQuestionsRead))
}

func (c *Client) CreateQuestion(ctx context.Context, input Question) (*Question, error) {
	return dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) (*Question, error) {
		return c.backend.CreateQuestion(ctx, s, input)
	}, dispatch.RequirePermission(rbac.PermQuestionCreate))
}

func (c *Client) Attempts(ctx context.Context) ([]Attempt, error) {
	return dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) ([]Attempt, error) {
		return c.backend.Attempts(ctx, s)
	}, dispatch.RequirePermission(rbac.PermAnswersRead))
}

func (c *Client) Users(ctx context.Context) ([]UserData, error) {
	return dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) ([]UserData, error) {
		return c.backend.Users(ctx, s)
	}, dispatch.RequirePermission(rbac.PermUserListRead))
}

func (c *Client) BlockUser(ctx context.Context, userID string) error {
	return c.setBlocked(ctx, userID, true)
}

func (c *Client) UnblockUser(ctx context.Context, userID string) error {
	return c.setBlocked(ctx, userID, false)
}

func (c *Client) setBlocked(ctx context.Context, userID string, blocked bool) error {
	_, err := dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) (struct{}, error) {
		return struct{}{}, c.backend.SetUserBlocked(ctx, s, userID, blocked)
	}, dispatch.RequirePermission(rbac.PermUserBlockWrite))
	return err
}

func (c *Client) AssignRoles(ctx context.Context, userID string, roles []rbac.RoleType) error {
	_, err := dispatch.Do(ctx, c.d, func(ctx context.Context, s sessions.Session) (struct{}, error) {
		return struct{}{}, c.backend.AssignRoles(ctx, s, userID, roles)
	}, dispatch.RequirePermission(rbac.PermUserRolesWrite))
	return err
}
