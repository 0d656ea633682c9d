package main

import (
	"log"
	"os"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/exam"
	"github.com/trezcool/lingo/core/user"
	logsvc "github.com/trezcool/lingo/services/logger"
	"github.com/trezcool/lingo/storage/database"
	sqlxrepos "github.com/trezcool/lingo/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(false)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	sqlDB, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	// set up services
	db := sqlxrepos.NewDB(sqlDB)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	examRepo := sqlxrepos.NewExamRepository(db)

	// start CLI
	cli := commandLine{
		conf:      conf,
		db:        sqlDB,
		usrSvc:    user.NewService(usrRepo, nil, logger),
		courseSvc: course.NewService(courseRepo, usrRepo, db, nil, logger),
		examSvc:   exam.NewService(examRepo, courseRepo, db, nil, logger, conf),
		out:       os.Stdout,
	}
	err = cli.run(os.Args)
	_ = sqlDB.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
