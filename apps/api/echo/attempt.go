package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core/exam"
)

type attemptApi struct {
	svc      *exam.Service
	validate *validator.Validate
}

func registerAttemptAPI(g *echo.Group, auth []echo.MiddlewareFunc, deps ServerDeps) {
	api := attemptApi{
		svc:      deps.ExamSvc,
		validate: deps.Validate,
	}

	tg := g.Group("/tests/:id", auth...)
	tg.GET("", api.retrieveTest)
	tg.POST("/attempts", api.start)
	tg.GET("/attempts", api.history)

	ag := g.Group("/attempts/:id", auth...)
	ag.GET("", api.result)
	ag.DELETE("", api.abandon)
	ag.GET("/answers", api.answers)
	ag.PUT("/answers/:questionId", api.answer)
	ag.POST("/submit", api.submit)
	ag.POST("/submissions", api.respond)

	g.GET("/answers/:id", api.retrieveAnswer, auth...)
}

// Handlers

func (api *attemptApi) retrieveTest(ctx echo.Context) error {
	t, err := api.svc.GetTest(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting test")
	}
	return ctx.JSON(http.StatusOK, t)
}

// start returns 201 with a new attempt, 200 when the attempt in progress is resumed.
func (api *attemptApi) start(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.Start(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "starting attempt")
	}
	if res.Resumed {
		return ctx.JSON(http.StatusOK, res)
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *attemptApi) history(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	attempts, err := api.svc.ListAttempts(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *attemptApi) result(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.Result(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting attempt result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attemptApi) answers(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	answers, err := api.svc.QueryAnswers(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying answers")
	}
	return ctx.JSON(http.StatusOK, answers)
}

func (api *attemptApi) retrieveAnswer(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	ans, err := api.svc.GetAnswer(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting answer")
	}
	return ctx.JSON(http.StatusOK, ans)
}

func (api *attemptApi) answer(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	var data exam.NewAnswer
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnswer")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ans, err := api.svc.Answer(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("questionId"), data)
	if err != nil {
		return errors.Wrap(err, "answering")
	}
	return ctx.JSON(http.StatusOK, ans)
}

func (api *attemptApi) submit(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.SubmitObjective(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attemptApi) respond(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	var data exam.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.SubmitResponse(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting response")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *attemptApi) abandon(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Abandon(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "abandoning attempt")
	}
	return ctx.NoContent(http.StatusNoContent)
}
