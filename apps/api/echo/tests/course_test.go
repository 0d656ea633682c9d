package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/user"
)

func Test_courseApi_enroll(t *testing.T) {
	env, app := setup(t)

	free := env.CreateCourse(t, course.EnrollmentFree)
	paid := env.CreateCourse(t, course.EnrollmentPaid)
	token := getToken(t, env.Conf, env.CreateUser(t, "student", user.RoleStudent, true))
	path := func(courseID string) string { return "/v1/courses/" + courseID + "/enroll" }

	tests := []httpTest{
		{name: "auth required", method: http.MethodPost, path: path(free.ID), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "unknown course", method: http.MethodPost, path: path("c0ffee"), token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"})},
		{name: "paid course", method: http.MethodPost, path: path(paid.ID), token: token, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "free course", method: http.MethodPost, path: path(free.ID), token: token, wantCode: http.StatusCreated},
		{
			name: "already enrolled", method: http.MethodPost, path: path(free.ID), token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"course_id": course.ErrAlreadyEnrolled.Error()}),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, do(app, tt))
		})
	}
}

func Test_courseApi_query(t *testing.T) {
	env, app := setup(t)

	c := env.CreateCourse(t, course.EnrollmentFree)
	token := getToken(t, env.Conf, env.CreateUser(t, "student", user.RoleStudent, true))

	rec := do(app, httpTest{path: "/v1/courses", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var courses []course.Course
	decode(t, rec, &courses)
	require.Len(t, courses, 1)
	assert.Equal(t, c.ID, courses[0].ID)

	rec = do(app, httpTest{path: "/v1/courses/" + c.ID, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correct", "correct options must not leak")
	var got course.Course
	decode(t, rec, &got)
	assert.Len(t, got.Lessons(), 1)
}

func Test_courseApi_completeChallenge(t *testing.T) {
	env, app := setup(t)

	c := env.CreateCourse(t, course.EnrollmentFree)
	lesson := c.Lessons()[0]
	selectCh, boldCh, assistCh := lesson.Challenges[0], lesson.Challenges[1], lesson.Challenges[2]

	student := env.CreateUser(t, "student", user.RoleStudent, true)
	stranger := env.CreateUser(t, "stranger", user.RoleStudent, true)
	env.Enroll(t, student, c)
	token := getToken(t, env.Conf, student)

	path := func(challengeID string) string { return "/v1/challenges/" + challengeID + "/complete" }
	body := func(optionIDs ...string) []byte { return marchallObj(t, course.CompleteChallenge{OptionIDs: optionIDs}) }
	wrongOption := selectCh.Questions[0].Options[1].ID

	tests := []httpTest{
		{name: "auth required", method: http.MethodPost, path: path(selectCh.ID), body: body(), wantCode: http.StatusUnauthorized},
		{
			name: "not enrolled", method: http.MethodPost, path: path(selectCh.ID), body: body(selectCh.CorrectOptionIDs()...),
			token: getToken(t, env.Conf, stranger), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unknown challenge", method: http.MethodPost, path: path("c0ffee"), body: body(), token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "challenge not found"}),
		},
		{
			name: "wrong option", method: http.MethodPost, path: path(selectCh.ID), body: body(wrongOption), token: token,
			wantCode: http.StatusOK, extra: course.CompletionResult{ChallengeID: selectCh.ID},
		},
		{
			name: "correct option", method: http.MethodPost, path: path(selectCh.ID), body: body(selectCh.CorrectOptionIDs()...), token: token,
			wantCode: http.StatusOK, extra: course.CompletionResult{ChallengeID: selectCh.ID, Correct: true, PointsAwarded: 1, UserPoints: 1},
		},
		{
			name: "practice", method: http.MethodPost, path: path(selectCh.ID), body: body(selectCh.CorrectOptionIDs()...), token: token,
			wantCode: http.StatusOK, extra: course.CompletionResult{ChallengeID: selectCh.ID, Correct: true, Practice: true, UserPoints: 1},
		},
		{
			name: "own points", method: http.MethodPost, path: path(boldCh.ID), body: body(boldCh.CorrectOptionIDs()...), token: token,
			wantCode: http.StatusOK, extra: course.CompletionResult{ChallengeID: boldCh.ID, Correct: true, PointsAwarded: 5, UserPoints: 6},
		},
		{
			name: "option-less challenge completes the lesson", method: http.MethodPost, path: path(assistCh.ID), token: token,
			wantCode: http.StatusOK, extra: course.CompletionResult{ChallengeID: assistCh.ID, Correct: true, PointsAwarded: 1, UserPoints: 7, LessonCompleted: true},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			checkCodeAndData(t, tt, rec)

			if want, ok := tt.extra.(course.CompletionResult); ok {
				var got course.CompletionResult
				decode(t, rec, &got)
				assert.Equal(t, want, got)
			}
		})
	}

	t.Run("lesson progress", func(t *testing.T) {
		rec := do(app, httpTest{path: "/v1/lessons/" + lesson.ID + "/progress", token: token})
		require.Equal(t, http.StatusOK, rec.Code)
		var lp course.LessonProgress
		decode(t, rec, &lp)
		assert.Equal(t, 3, lp.TotalChallenges)
		assert.Equal(t, 3, lp.CompletedChallenges)
		assert.True(t, lp.Completed)
	})
}

func Test_courseApi_progress(t *testing.T) {
	env, app := setup(t)

	c := env.CreateCourse(t, course.EnrollmentFree)
	student := env.CreateUser(t, "student", user.RoleStudent, true)
	teacher := env.CreateUser(t, "teacher", user.RoleTeacher, true)
	outsider := env.CreateUser(t, "outsider", user.RoleTeacher, true)
	other := env.CreateUser(t, "other", user.RoleStudent, true)
	env.Enroll(t, student, c)
	env.AssignTeacher(t, teacher, c)

	// complete the first challenge
	ch := c.Lessons()[0].Challenges[0]
	tt := httpTest{
		method: http.MethodPost, path: "/v1/challenges/" + ch.ID + "/complete",
		body: marchallObj(t, course.CompleteChallenge{OptionIDs: ch.CorrectOptionIDs()}), token: getToken(t, env.Conf, student),
	}
	require.Equal(t, http.StatusOK, do(app, tt).Code)

	path := "/v1/courses/" + c.ID + "/progress"
	tests := []httpTest{
		{name: "own progress", path: path, token: getToken(t, env.Conf, student), wantCode: http.StatusOK, extra: student.ID},
		{name: "course teacher", path: path + "?user_id=" + student.ID, token: getToken(t, env.Conf, teacher), wantCode: http.StatusOK, extra: student.ID},
		{
			name: "other teacher", path: path + "?user_id=" + student.ID, token: getToken(t, env.Conf, outsider),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "other student", path: path + "?user_id=" + student.ID, token: getToken(t, env.Conf, other),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unknown course", path: "/v1/courses/c0ffee/progress", token: getToken(t, env.Conf, student),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			checkCodeAndData(t, tt, rec)

			if userID, ok := tt.extra.(string); ok {
				var p course.Progress
				decode(t, rec, &p)
				assert.Equal(t, userID, p.UserID)
				assert.Equal(t, 1, p.TotalLessons)
				assert.Zero(t, p.CompletedLessons)
				assert.Zero(t, p.Percentage)
				require.Len(t, p.Lessons, 1)
				assert.Equal(t, 1, p.Lessons[0].CompletedChallenges)
			}
		})
	}
}
