package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/user"
)

type userApi struct {
	svc       *user.Service
	courseSvc *course.Service
	validate  *validator.Validate
}

func registerUserAPI(g *echo.Group, auth []echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:       deps.UserSvc,
		courseSvc: deps.CourseSvc,
		validate:  deps.Validate,
	}

	mg := g.Group("/me", auth...)
	mg.GET("", api.me)
	mg.PUT("/active-course", api.setActiveCourse)
	mg.GET("/enrollments", api.enrollments)

	ug := g.Group("/users", append(auth, adminMiddleware())...)
	ug.GET("", api.query)
	ug.GET("/roles", api.queryRoles)
}

// Handlers

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) setActiveCourse(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	var data user.SetActiveCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetActiveCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.courseSvc.SwitchActiveCourse(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "switching active course")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) enrollments(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	enrollments, err := api.courseSvc.Enrollments(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	users, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}
