package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errInvalidToken  = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// statusOf maps an error to its response status & body, ok is false for server errors.
func statusOf(err error, translator ut.Translator) (code int, body interface{}, ok bool) {
	switch cause := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if cause == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, cause.Message, true
		}
		if inner, isHTTP := cause.Internal.(*echo.HTTPError); isHTTP {
			cause = inner
		}
		return cause.Code, cause.Message, true
	case validator.ValidationErrors:
		fields := make(map[string]string, len(cause))
		for _, fe := range cause {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return http.StatusBadRequest, fields, true
	case *core.ValidationError:
		if len(cause.Fields) == 0 {
			return http.StatusBadRequest, cause.Error(), true
		}
		fields := make(map[string]string, len(cause.Fields))
		for _, fe := range cause.Fields {
			fields[fe.Field] = fe.Error
		}
		return http.StatusBadRequest, fields, true
	case *core.ForbiddenError:
		return http.StatusForbidden, cause.Error(), true
	case *core.NotFoundError:
		return http.StatusNotFound, cause.Error(), true
	case *core.InvalidStateError:
		return http.StatusConflict, cause.Error(), true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}

// newAppHTTPErrorHandler renders our errors as JSON. Server errors are logged,
// a core shutdown error also stops the server through signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := statusOf(err, translator)
		if !ok {
			msg := http.StatusText(code)
			args := []interface{}{errors.Wrap(err, msg)}
			if usr, uErr := getContextUser(ctx); uErr == nil {
				args = append(args, usr)
			}
			logger.Error(msg, args...)

			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				body = err.Error()
			}
		}
		if msg, isStr := body.(string); isStr {
			body = echo.Map{"error": msg}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
