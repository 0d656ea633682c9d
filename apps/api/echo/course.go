package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core/course"
)

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, auth []echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{svc: deps.CourseSvc}

	cg := g.Group("/courses", auth...)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/enroll", api.enroll)
	cg.GET("/:id/progress", api.progress)

	g.GET("/lessons/:id/progress", api.lessonProgress, auth...)
	g.POST("/challenges/:id/complete", api.completeChallenge, auth...)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Enroll(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, e)
}

// progress returns the progress of the caller, or of `?user_id=` for the teachers of the course.
func (api *courseApi) progress(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	userID := ctx.QueryParam("user_id")
	if userID == "" {
		userID = caller.ID
	}

	p, err := api.svc.CourseProgress(ctx.Request().Context(), caller, userID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *courseApi) lessonProgress(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	lp, err := api.svc.LessonProgress(ctx.Request().Context(), caller.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting lesson progress")
	}
	return ctx.JSON(http.StatusOK, lp)
}

func (api *courseApi) completeChallenge(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	var data course.CompleteChallenge
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteChallenge")
	}

	res, err := api.svc.CompleteChallenge(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "completing challenge")
	}
	return ctx.JSON(http.StatusOK, res)
}
