package dig_container

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/lingo/apps/api/echo"
	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/authz"
	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/exam"
	"github.com/trezcool/lingo/core/grading"
	"github.com/trezcool/lingo/core/user"
	emailsvc "github.com/trezcool/lingo/services/email"
	logsvc "github.com/trezcool/lingo/services/logger"
	notifysvc "github.com/trezcool/lingo/services/notify"
	"github.com/trezcool/lingo/storage/database"
	inmemdb "github.com/trezcool/lingo/storage/database/inmem"
	sqlxrepos "github.com/trezcool/lingo/storage/database/sqlx"
)

// EngineMemory runs the API on the in-memory store, nothing is persisted.
const EngineMemory = "memory"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Store is what the storage layer provides to the core services.
	Store struct {
		dig.Out
		Closer      io.Closer `name:"dbCloser"`
		Tx          core.Transactor
		Users       user.Repository
		Courses     course.Repository
		Tests       exam.Repository
		Grading     grading.Repository
		Assignments authz.AssignmentSource
	}

	DBCloserParam struct {
		dig.In
		Closer io.Closer `name:"dbCloser"`
	}

	nopCloser struct{}
)

func (nopCloser) Close() error { return nil }

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newStore(conf *core.Config, loggerParam DBLoggerParam) Store {
	if conf.Database.Engine == EngineMemory {
		loggerParam.Logger.Warn("running on the in-memory store")
		db := inmemdb.Open()
		courses := inmemdb.NewCourseRepository(db)
		tests := inmemdb.NewExamRepository(db)
		return Store{
			Closer:      nopCloser{},
			Tx:          db,
			Users:       inmemdb.NewUserRepository(db),
			Courses:     courses,
			Tests:       tests,
			Grading:     tests,
			Assignments: courses,
		}
	}

	sqlDB, err := setUpDB(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db := sqlxrepos.NewDB(sqlDB)
	courses := sqlxrepos.NewCourseRepository(db)
	tests := sqlxrepos.NewExamRepository(db)
	return Store{
		Closer:      sqlDB,
		Tx:          db,
		Users:       sqlxrepos.NewUserRepository(db),
		Courses:     courses,
		Tests:       tests,
		Grading:     tests,
		Assignments: courses,
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newPublisher(users user.Repository, mailer core.EmailService, logger core.Logger) core.EventPublisher {
	return notifysvc.NewPublisher(users, mailer, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	usrSvc *user.Service,
	courseSvc *course.Service,
	examSvc *exam.Service,
	gradingSvc *grading.Service,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		UserSvc:    usrSvc,
		CourseSvc:  courseSvc,
		ExamSvc:    examSvc,
		GradingSvc: gradingSvc,
	})
}

type NewConfigFunc func() *core.Config

// New returns a new dependency injection dig.Container
func New(newConfig ...NewConfigFunc) *dig.Container {
	c := dig.New()

	if len(newConfig) > 0 {
		must(c.Provide(newConfig[0]))
	} else {
		must(c.Provide(core.NewConfig))
	}
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore))
	must(c.Provide(newEmailService))
	must(c.Provide(newPublisher))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(exam.NewService))
	must(c.Provide(grading.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
