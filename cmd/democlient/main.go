// Command democlient walks a full session lifecycle against an in-process
// backend: login, confirmation, authenticated calls, token rotation and
// logout. Point REDIS_ADDR at a Redis instance to persist session records
// there instead of in memory.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-course-client/dispatch"
	"github.com/jrsteele09/go-course-client/events"
	"github.com/jrsteele09/go-course-client/internal/config"
	"github.com/jrsteele09/go-course-client/platform"
	"github.com/jrsteele09/go-course-client/platform/backendfake"
	"github.com/jrsteele09/go-course-client/rbac"
	"github.com/jrsteele09/go-course-client/sessionmgr"
	"github.com/jrsteele09/go-course-client/sessions/store"
	"github.com/jrsteele09/go-course-client/token"
	"github.com/jrsteele09/go-course-client/tokencarrier"
	"github.com/jrsteele09/go-course-client/users"
	"github.com/jrsteele09/go-course-client/users/repofake"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("demo client failed")
	}
	log.Info().Msg("demo client finished")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())
	log.Info().Str("env", c.GetEnv()).Msg("starting")

	ctx := context.Background()

	recordRepo, err := newRecordRepo(c)
	if err != nil {
		return err
	}

	directory := repofake.NewFakeUserRepo()
	teacher := &users.User{
		ID:       "teacher-1",
		Username: "ada",
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Roles:    []rbac.RoleType{rbac.RoleTeacher},
	}
	student := &users.User{
		ID:       "student-1",
		Username: "charles",
		FullName: "Charles Babbage",
		Email:    "charles@example.com",
		Roles:    []rbac.RoleType{rbac.RoleStudent},
	}
	for _, user := range []*users.User{teacher, student} {
		if err := directory.Upsert(user); err != nil {
			return err
		}
	}

	sessionStore, err := store.NewClient(recordRepo, fixedResolver{user: teacher}, token.NewManager(c), c, c)
	if err != nil {
		return err
	}

	carrier := tokencarrier.NewFileCarrier(filepath.Join(os.TempDir(), c.GetSlotName()))
	bus := events.NewBus()
	unsubscribe := bus.Subscribe(func(event events.Event) {
		log.Info().Str("kind", string(event.Kind)).Str("message", event.Message).Msg("session event")
	})
	defer unsubscribe()

	manager := sessionmgr.New(sessionStore, carrier, c)
	defer manager.Close()

	login, err := manager.BeginLogin(ctx, "code")
	if err != nil {
		return err
	}
	log.Info().Str("auth_url", login.AuthURL).Msg("login started, visit the authority URL")
	manager.StartLoginPoll(ctx)

	// Normally the external authority confirms the login. The demo stands in
	// for it and confirms directly.
	if _, err := sessionStore.ConfirmLogin(ctx, login.SessionToken); err != nil {
		return err
	}

	if !waitForAuthorized(manager) {
		return errors.New("login was not confirmed in time")
	}
	snapshot := manager.Snapshot()
	log.Info().Str("user", snapshot.Session.User.Username).Strs("permissions", snapshot.Session.Permissions).Msg("signed in")

	client, err := platform.NewClient(
		dispatch.New(sessionStore, carrier, bus, logNavigator{}, c),
		backendfake.NewFakeBackend(directory),
	)
	if err != nil {
		return err
	}

	if err := runCourseDemo(ctx, client); err != nil {
		return err
	}

	manager.Logout(ctx, false)
	log.Info().Str("status", string(manager.Snapshot().Session.Status)).Msg("logged out")
	return nil
}

func runCourseDemo(ctx context.Context, client *platform.Client) error {
	course, err := client.CreateCourse(ctx, platform.Course{Title: "Analytical Engines", Description: "A first course in computation"})
	if err != nil {
		return err
	}
	log.Info().Str("course_id", course.ID).Str("title", course.Title).Msg("course created")

	test, err := client.CreateTest(ctx, platform.Test{CourseID: course.ID, Title: "Week 1 quiz", IsActive: true})
	if err != nil {
		return err
	}

	if _, err := client.CreateQuestion(ctx, platform.Question{
		TestID:             test.ID,
		Text:               "Who designed the Analytical Engine?",
		Options:            []string{"Babbage", "Turing", "von Neumann"},
		CorrectOptionIndex: 0,
	}); err != nil {
		return err
	}

	tests, err := client.TestsByCourse(ctx, course.ID)
	if err != nil {
		return err
	}
	log.Info().Int("tests", len(tests)).Msg("course contents listed")
	return nil
}

func newRecordRepo(c config.Config) (store.RecordRepo, error) {
	if c.GetRedisAddr() == "" {
		log.Info().Msg("no REDIS_ADDR set, keeping session records in memory")
		return store.NewInMemoryRecordRepo(), nil
	}
	log.Info().Str("addr", c.GetRedisAddr()).Msg("storing session records in Redis")
	return store.NewRedisRecordRepo(c)
}

func waitForAuthorized(manager *sessionmgr.Manager) bool {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snapshot := manager.Snapshot()
		if snapshot.Session.Authorized() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

type fixedResolver struct {
	user *users.User
}

func (r fixedResolver) Resolve(ctx context.Context, loginToken string) (*users.User, error) {
	return r.user, nil
}

type logNavigator struct{}

func (logNavigator) ToSignIn(from string) {
	log.Info().Str("from", from).Msg("redirecting to sign-in")
}

func (logNavigator) ToForbidden() {
	log.Info().Msg("redirecting to forbidden page")
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
