package main

import (
	"context"
	"expvar"
	"log"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	dig_container "github.com/trezcool/lingo/apps/api/di/dig"
	echoapi "github.com/trezcool/lingo/apps/api/echo"
	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/exam"
	"github.com/trezcool/lingo/core/grading"
	"github.com/trezcool/lingo/core/user"
	appfs "github.com/trezcool/lingo/fs"
)

func main() {
	c := dig_container.New()

	err := c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		dbCloser dig_container.DBCloserParam,
		validate *validator.Validate,
		translator ut.Translator,
		server *echoapi.Server,
	) {
		registerValidators(validate, translator)
		core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)
		logger.Info("api starting", map[string]interface{}{"build": conf.Build, "env": conf.Env, "engine": conf.Database.Engine})

		go serveDebug(conf, logger)

		runErr := run(conf, server)
		if closeErr := dbCloser.Closer.Close(); closeErr != nil {
			logger.Error("closing database", closeErr)
		}
		if runErr != nil {
			logger.Fatal("api stopped", runErr)
		}
		logger.Info("api stopped")
	})
	if err != nil {
		log.Fatal(err)
	}
}

func registerValidators(validate *validator.Validate, translator ut.Translator) {
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)
	grading.InitValidators(validate, translator)
}

// serveDebug exposes the build info under /debug/vars on the debug host.
func serveDebug(conf *core.Config, logger core.Logger) {
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	if err := http.ListenAndServe(conf.Server.DebugHost, mux); err != nil {
		logger.Error("debug server closed", err)
	}
}

// run serves the API until it fails or a shutdown signal is received,
// outstanding requests are then given Server.ShutdownTimeout to complete.
func run(conf *core.Config, server *echoapi.Server) error {
	go server.Start()

	select {
	case err := <-server.Errors():
		return errors.Wrap(err, "serving api")
	case <-server.ShutdownSignal():
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		if closeErr := server.Close(); closeErr != nil {
			return errors.Wrap(closeErr, "forcing server stop")
		}
		return errors.Wrap(err, "stopping server gracefully")
	}
	return nil
}
