package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core/grading"
	"github.com/trezcool/lingo/core/user"
)

type gradingApi struct {
	svc      *grading.Service
	validate *validator.Validate
}

func registerGradingAPI(g *echo.Group, auth []echo.MiddlewareFunc, deps ServerDeps) {
	api := gradingApi{
		svc:      deps.GradingSvc,
		validate: deps.Validate,
	}

	gg := g.Group("/grading", append(auth, roleMiddleware(user.RoleTeacher))...)
	gg.GET("/submissions", api.queue)
	gg.POST("/submissions/:id/grade", api.grade)
}

// Handlers

func (api *gradingApi) queue(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	var filter grading.QueueFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueueFilter")
	}
	if err = filter.Validate(api.validate); err != nil {
		return err
	}

	items, err := api.svc.ListQueue(ctx.Request().Context(), caller, filter)
	if err != nil {
		return errors.Wrap(err, "listing grading queue")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *gradingApi) grade(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	var data grading.Grade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Grade")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
