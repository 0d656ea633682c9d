package testutil

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/exam"
	"github.com/trezcool/lingo/core/grading"
	"github.com/trezcool/lingo/core/scoring"
	"github.com/trezcool/lingo/core/user"
	emailsvc "github.com/trezcool/lingo/services/email"
	logsvc "github.com/trezcool/lingo/services/logger"
	"github.com/trezcool/lingo/storage/database"
	inmemdb "github.com/trezcool/lingo/storage/database/inmem"
	sqlxrepos "github.com/trezcool/lingo/storage/database/sqlx"
)

// Env wires the core services on top of a fresh store.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Publisher  *RecordingPublisher
	Mailer     core.EmailService

	Tx         core.Transactor
	UserRepo   user.Repository
	CourseRepo course.Repository
	ExamRepo   exam.Repository

	UserSvc    *user.Service
	CourseSvc  *course.Service
	ExamSvc    *exam.Service
	GradingSvc *grading.Service
}

func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), conf)
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)
	grading.InitValidators(validate, translator)
	return validate
}

type store struct {
	tx      core.Transactor
	users   user.Repository
	courses course.Repository
	exams   exam.Repository
}

// Setup returns a new Env on the in-memory store, the store is dropped with the test.
func Setup(t *testing.T, confOpts ...func(*core.Config)) *Env {
	t.Helper()

	db := inmemdb.Open()
	t.Cleanup(db.Reset)
	return newEnv(core.NewTestConfig(), confOpts, store{
		tx:      db,
		users:   inmemdb.NewUserRepository(db),
		courses: inmemdb.NewCourseRepository(db),
		exams:   inmemdb.NewExamRepository(db),
	})
}

// SetupPostgres returns a new Env on the postgres store of PrepareDB.
func SetupPostgres(t *testing.T, confOpts ...func(*core.Config)) *Env {
	t.Helper()

	conf, sqlDB := PrepareDB(t)
	db := sqlxrepos.NewDB(sqlDB)
	return newEnv(conf, confOpts, store{
		tx:      db,
		users:   sqlxrepos.NewUserRepository(db),
		courses: sqlxrepos.NewCourseRepository(db),
		exams:   sqlxrepos.NewExamRepository(db),
	})
}

func newEnv(conf *core.Config, confOpts []func(*core.Config), s store) *Env {
	for _, opt := range confOpts {
		opt(conf)
	}
	logger := NewLogger(conf)
	translator := NewTranslator()
	publisher := &RecordingPublisher{}
	emailsvc.ResetSentMessages()

	return &Env{
		Conf:       conf,
		Logger:     logger,
		Validate:   NewValidator(translator),
		Translator: translator,
		Publisher:  publisher,
		Mailer:     emailsvc.NewConsoleServiceMock(conf, logger),
		Tx:         s.tx,
		UserRepo:   s.users,
		CourseRepo: s.courses,
		ExamRepo:   s.exams,
		UserSvc:    user.NewService(s.users, publisher, logger),
		CourseSvc:  course.NewService(s.courses, s.users, s.tx, publisher, logger),
		ExamSvc:    exam.NewService(s.exams, s.courses, s.tx, publisher, logger, conf),
		GradingSvc: grading.NewService(s.exams, s.courses, publisher, logger),
	}
}

// PrepareDB opens the postgres database of the TEST env (TEST_DATABASE_* variables or config/.env.test),
// migrates it and empties its tables. The test is skipped unless ENV=TEST and TEST_DATABASE_HOST are set.
func PrepareDB(t *testing.T) (*core.Config, *sql.DB) {
	t.Helper()
	if os.Getenv("ENV") != "TEST" || os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("no test database: set ENV=TEST and TEST_DATABASE_HOST")
	}

	conf := core.NewTestConfig()
	conf.Database = core.NewConfig().Database
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	truncate(t, db)
	t.Cleanup(func() {
		truncate(t, db)
		_ = db.Close()
	})
	return conf, db
}

func truncate(t *testing.T, db *sql.DB) {
	t.Helper()
	var tables []string
	err := sqlx.NewDb(db, "postgres").Select(&tables, `
		SELECT quote_ident(tablename) FROM pg_tables
		WHERE schemaname = 'public' AND tablename <> 'goose_db_version'`)
	if err != nil {
		t.Fatalf("truncate() failed: %v", err)
	}
	if len(tables) == 0 {
		return
	}
	if _, err = db.Exec("TRUNCATE " + strings.Join(tables, ", ") + " CASCADE"); err != nil {
		t.Fatalf("truncate() failed: %v", err)
	}
}

// RecordingPublisher keeps every published event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
}

var _ core.EventPublisher = (*RecordingPublisher)(nil)

func (p *RecordingPublisher) Publish(_ context.Context, events ...core.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

// Names returns the names of the published events, in order.
func (p *RecordingPublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.Name)
	}
	return names
}

// Last returns the last event published with name.
func (p *RecordingPublisher) Last(name string) (core.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Name == name {
			return p.events[i], true
		}
	}
	return core.Event{}, false
}

func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

func IntPtr(i int) *int { return &i }

func FloatPtr(f float64) *float64 { return &f }

func (env *Env) CreateUser(t *testing.T, name, role string, active bool) user.User {
	t.Helper()
	usr, err := env.UserSvc.UpdateOrCreate(context.Background(), user.NewProfile{
		ID:    "auth0|" + uuid.New().String(),
		Name:  name,
		Email: name + "@lingo.test",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if !active {
		if usr, err = env.UserSvc.SetActive(context.Background(), usr.ID, false); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	return usr
}

// CreateCourse saves a course of one unit and one lesson holding:
// a SELECT challenge (default points), a SELECT challenge worth 5 points and an option-less ASSIST challenge.
func (env *Env) CreateCourse(t *testing.T, enrollmentType string) course.Course {
	t.Helper()
	c, err := env.CourseSvc.CreateCourse(context.Background(), course.Course{
		Title:          "English A1 " + uuid.New().String()[:8],
		EnrollmentType: enrollmentType,
		Units: []course.Unit{{
			Title: "Greetings",
			Order: 1,
			Lessons: []course.Lesson{{
				Title: "Hello",
				Order: 1,
				Challenges: []course.Challenge{
					{
						Type:   scoring.ChallengeSelect,
						Prompt: "Which one means hello?",
						Order:  1,
						Questions: []course.Question{{
							Text: "Pick one",
							Options: []course.Option{
								{Text: "Hello", Correct: true},
								{Text: "Goodbye"},
							},
						}},
					},
					{
						Type:   scoring.ChallengeSelect,
						Prompt: "Hi means hello",
						Points: IntPtr(5),
						Order:  2,
						Questions: []course.Question{{
							Text: "True or false?",
							Options: []course.Option{
								{Text: "True", Correct: true},
								{Text: "False"},
							},
						}},
					},
					{
						Type:   scoring.ChallengeAssist,
						Prompt: "Listen and repeat",
						Order:  3,
					},
				},
			}},
		}},
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

// CreateTest saves a test of courseID with a READING section holding a SINGLE_CHOICE question (2 points),
// a MULTIPLE_CHOICE question (3 points) and a FILL_BLANK question (defaults to 1 point),
// then a WRITING section with an ESSAY question and a SPEAKING section with a RECORDING question.
func (env *Env) CreateTest(t *testing.T, courseID string, durationMinutes int) exam.Test {
	t.Helper()
	tst, err := env.ExamSvc.CreateTest(context.Background(), exam.Test{
		CourseID:        courseID,
		Title:           "Mock exam",
		DurationMinutes: durationMinutes,
		Sections: []exam.Section{
			{
				Title:     "Reading",
				SkillType: exam.SkillReading,
				Order:     1,
				Questions: []exam.Question{
					{
						Type:   exam.QuestionSingleChoice,
						Prompt: "The cat is ___ the table.",
						Points: IntPtr(2),
						Order:  1,
						Options: []exam.Option{
							{Text: "on", Correct: true, Order: 1},
							{Text: "at", Order: 2},
						},
					},
					{
						Type:   exam.QuestionMultipleChoice,
						Prompt: "Which are colours?",
						Points: IntPtr(3),
						Order:  2,
						Options: []exam.Option{
							{Text: "red", Correct: true, Order: 1},
							{Text: "blue", Correct: true, Order: 2},
							{Text: "dog", Order: 3},
						},
					},
					{
						Type:   exam.QuestionFillBlank,
						Prompt: "I ___ a student.",
						Order:  3,
						Options: []exam.Option{
							{Text: "am", Correct: true, Order: 1},
						},
					},
				},
			},
			{
				Title:     "Writing",
				SkillType: exam.SkillWriting,
				Order:     2,
				Questions: []exam.Question{{
					Type:   exam.QuestionEssay,
					Prompt: "Describe your hometown.",
					Order:  1,
				}},
			},
			{
				Title:     "Speaking",
				SkillType: exam.SkillSpeaking,
				Order:     3,
				Questions: []exam.Question{{
					Type:   exam.QuestionRecording,
					Prompt: "Introduce yourself.",
					Order:  1,
				}},
			},
		},
	})
	if err != nil {
		t.Fatalf("CreateTest() failed: %v", err)
	}
	return tst
}

// Enroll enrolls usr in c regardless of its enrollment type.
func (env *Env) Enroll(t *testing.T, usr user.User, c course.Course) {
	t.Helper()
	if _, err := env.CourseSvc.EnrollPaid(context.Background(), usr.ID, c.ID); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
}

func (env *Env) AssignTeacher(t *testing.T, teacher user.User, c course.Course) {
	t.Helper()
	if err := env.CourseSvc.AssignTeacher(context.Background(), teacher.ID, c.ID); err != nil {
		t.Fatalf("AssignTeacher() failed: %v", err)
	}
}

// QuestionOf returns the first question of tst with typ.
func QuestionOf(t *testing.T, tst exam.Test, typ string) exam.Question {
	t.Helper()
	for _, q := range tst.Questions() {
		if q.Type == typ {
			return q
		}
	}
	t.Fatalf("QuestionOf(): no %s question", typ)
	return exam.Question{}
}

// CorrectOptionIDs returns the ids of the correct options of q.
func CorrectOptionIDs(q exam.Question) []string {
	var ids []string
	for _, o := range q.Options {
		if o.Correct {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func WrongOptionID(q exam.Question) string {
	for _, o := range q.Options {
		if !o.Correct {
			return o.ID
		}
	}
	return ""
}
