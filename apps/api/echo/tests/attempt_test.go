package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/exam"
	"github.com/trezcool/lingo/core/user"
	"github.com/trezcool/lingo/tests"
)

func Test_attemptApi_flow(t *testing.T) {
	env, app := setup(t)

	c := env.CreateCourse(t, course.EnrollmentFree)
	tst := env.CreateTest(t, c.ID, 45)
	student := env.CreateUser(t, "student", user.RoleStudent, true)
	token := getToken(t, env.Conf, student)
	otherToken := getToken(t, env.Conf, env.CreateUser(t, "other", user.RoleStudent, true))

	single := testutil.QuestionOf(t, tst, exam.QuestionSingleChoice)
	multi := testutil.QuestionOf(t, tst, exam.QuestionMultipleChoice)
	essay := testutil.QuestionOf(t, tst, exam.QuestionEssay)
	recording := testutil.QuestionOf(t, tst, exam.QuestionRecording)

	t.Run("test", func(t *testing.T) {
		rec := do(app, httpTest{path: "/v1/tests/" + tst.ID, token: token})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "correct", "correct options must not leak")

		rec = do(app, httpTest{path: "/v1/tests/c0ffee", token: token})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	// start
	rec := do(app, httpTest{method: http.MethodPost, path: "/v1/tests/" + tst.ID + "/attempts", token: token})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var started exam.StartResult
	decode(t, rec, &started)
	assert.False(t, started.Resumed)
	assert.Equal(t, exam.StatusInProgress, started.Status)
	assert.Equal(t, 8, started.TotalPoints)

	rec = do(app, httpTest{method: http.MethodPost, path: "/v1/tests/" + tst.ID + "/attempts", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resumed exam.StartResult
	decode(t, rec, &resumed)
	assert.True(t, resumed.Resumed)
	assert.Equal(t, started.ID, resumed.ID)

	attemptPath := "/v1/attempts/" + started.ID
	answerPath := func(questionID string) string { return attemptPath + "/answers/" + questionID }
	answer := func(value string) []byte { return marchallObj(t, exam.NewAnswer{Value: value}) }
	respond := func(ns exam.NewSubmission) []byte { return marchallObj(t, ns) }

	tests := []httpTest{
		{name: "answer: auth required", method: http.MethodPut, path: answerPath(single.ID), body: answer(single.Options[0].ID), wantCode: http.StatusUnauthorized},
		{
			name: "answer: not the owner", method: http.MethodPut, path: answerPath(single.ID), body: answer(single.Options[0].ID), token: otherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "answer: value required", method: http.MethodPut, path: answerPath(single.ID), body: []byte("{}"), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"value": "this field is required"}),
		},
		{
			name: "answer: unknown option", method: http.MethodPut, path: answerPath(single.ID), body: answer("c0ffee"), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"value": "unknown option"}),
		},
		{
			name: "answer: unknown question", method: http.MethodPut, path: answerPath("c0ffee"), body: answer("x"), token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "question not found"}),
		},
		{name: "answer: single choice", method: http.MethodPut, path: answerPath(single.ID), body: answer(testutil.CorrectOptionIDs(single)[0]), token: token, wantCode: http.StatusOK},
		{name: "answer: multiple choice", method: http.MethodPut, path: answerPath(multi.ID), body: answer(strings.Join(testutil.CorrectOptionIDs(multi), ",")), token: token, wantCode: http.StatusOK},
		{
			name: "respond: speaking without audio", method: http.MethodPost, path: attemptPath + "/submissions", token: token,
			body:     respond(exam.NewSubmission{QuestionID: recording.ID, SkillType: exam.SkillSpeaking}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"audio_url": "this field is required"}),
		},
		{
			name: "respond: invalid skill", method: http.MethodPost, path: attemptPath + "/submissions", token: token,
			body:     respond(exam.NewSubmission{QuestionID: essay.ID, SkillType: exam.SkillReading, TextAnswer: "Goma"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"skill_type": "must be one of SPEAKING, WRITING"}),
		},
		{
			name: "respond: writing", method: http.MethodPost, path: attemptPath + "/submissions", token: token,
			body:     respond(exam.NewSubmission{QuestionID: essay.ID, SkillType: exam.SkillWriting, TextAnswer: "Goma sits by lake Kivu."}),
			wantCode: http.StatusCreated,
		},
		{
			name: "respond: speaking", method: http.MethodPost, path: attemptPath + "/submissions", token: token,
			body:     respond(exam.NewSubmission{QuestionID: recording.ID, SkillType: exam.SkillSpeaking, AudioURL: "https://cdn.lingo.test/intro.webm"}),
			wantCode: http.StatusCreated,
		},
		{name: "result: not the owner", path: attemptPath, token: otherToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "answers", path: attemptPath + "/answers", token: token, wantCode: http.StatusOK, extra: 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			checkCodeAndData(t, tt, rec)

			if n, ok := tt.extra.(int); ok {
				var answers []exam.Answer
				decode(t, rec, &answers)
				assert.Len(t, answers, n)
			}
		})
	}

	// submit
	rec = do(app, httpTest{method: http.MethodPost, path: attemptPath + "/submit", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res exam.Result
	decode(t, rec, &res)
	assert.Equal(t, exam.StatusCompleted, res.Status)
	require.NotNil(t, res.Score)
	assert.Equal(t, 5, *res.Score)
	assert.Equal(t, 2, res.PendingSubmissions)
	assert.True(t, res.AwaitingGrading)
	assert.False(t, res.FullyGraded)

	terminal := []httpTest{
		{
			name: "submit twice", method: http.MethodPost, path: attemptPath + "/submit", token: token,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "cannot submit attempt: status is COMPLETED"}),
		},
		{
			name: "answer after submit", method: http.MethodPut, path: answerPath(single.ID), body: answer(single.Options[0].ID), token: token,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "cannot answer attempt: status is COMPLETED"}),
		},
		{
			name: "abandon after submit", method: http.MethodDelete, path: attemptPath, token: token,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "cannot abandon attempt: status is COMPLETED"}),
		},
		{name: "history", path: "/v1/tests/" + tst.ID + "/attempts", token: token, wantCode: http.StatusOK},
		{name: "history of others", path: "/v1/tests/" + tst.ID + "/attempts", token: otherToken, wantCode: http.StatusOK, wantData: []byte("[]")},
	}
	for _, tt := range terminal {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, do(app, tt))
		})
	}
}

func Test_attemptApi_abandon(t *testing.T) {
	env, app := setup(t)

	c := env.CreateCourse(t, course.EnrollmentFree)
	tst := env.CreateTest(t, c.ID, 0)
	token := getToken(t, env.Conf, env.CreateUser(t, "student", user.RoleStudent, true))

	rec := do(app, httpTest{method: http.MethodPost, path: "/v1/tests/" + tst.ID + "/attempts", token: token})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var started exam.StartResult
	decode(t, rec, &started)

	tests := []httpTest{
		{name: "abandon", method: http.MethodDelete, path: "/v1/attempts/" + started.ID, token: token, wantCode: http.StatusNoContent},
		{
			name: "gone", path: "/v1/attempts/" + started.ID, token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "attempt not found"}),
		},
		{name: "start afresh", method: http.MethodPost, path: "/v1/tests/" + tst.ID + "/attempts", token: token, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, do(app, tt))
		})
	}
}
