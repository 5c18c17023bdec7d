// Package platform is the typed client for course, test, question, and user
// operations. Every privileged call routes through the authenticated
// dispatcher exactly once, with its required permission declared at the call
// site and checked centrally.
package platform

import (
	"time"

	"github.com/jrsteele09/go-course-client/rbac"
)

type Course struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TeacherID   string `json:"teacher_id"`
}

type Test struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	IsActive bool   `json:"is_active"`
	AuthorID string `json:"author_id"`
}

type Question struct {
	ID                 string   `json:"id"`
	TestID             string   `json:"test_id"`
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
	Version            int      `json:"version"`
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptCompleted  AttemptStatus = "COMPLETED"
)

type AttemptAnswer struct {
	QuestionID          string `json:"question_id"`
	SelectedOptionIndex *int   `json:"selected_option_index"`
}

type Attempt struct {
	ID         string                   `json:"id"`
	TestID     string                   `json:"test_id"`
	UserID     string                   `json:"user_id"`
	Status     AttemptStatus            `json:"status"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at,omitzero"`
	Answers    map[string]AttemptAnswer `json:"answers"`
	Score      int                      `json:"score"`
	MaxScore   int                      `json:"max_score"`
}

// UserData is the admin view of a platform user.
type UserData struct {
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	IsBlocked     bool            `json:"is_blocked"`
	Roles         []rbac.RoleType `json:"roles"`
	CoursesCount  int             `json:"courses_count"`
	AttemptsCount int             `json:"attempts_count"`
}
