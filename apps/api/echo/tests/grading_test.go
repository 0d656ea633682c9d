package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lingo/core/authz"
	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/exam"
	"github.com/trezcool/lingo/core/grading"
	"github.com/trezcool/lingo/core/scoring"
	"github.com/trezcool/lingo/core/user"
	"github.com/trezcool/lingo/tests"
)

func Test_gradingApi(t *testing.T) {
	env, app := setup(t)
	ctx := context.Background()

	c := env.CreateCourse(t, course.EnrollmentFree)
	tst := env.CreateTest(t, c.ID, 0)
	student := env.CreateUser(t, "student", user.RoleStudent, true)
	teacher := env.CreateUser(t, "teacher", user.RoleTeacher, true)
	outsider := env.CreateUser(t, "outsider", user.RoleTeacher, true)
	env.AssignTeacher(t, teacher, c)

	started, err := env.ExamSvc.Start(ctx, authz.CallerFrom(student), tst.ID)
	require.NoError(t, err)
	sub, err := env.ExamSvc.SubmitResponse(ctx, authz.CallerFrom(student), started.ID, exam.NewSubmission{
		QuestionID: testutil.QuestionOf(t, tst, exam.QuestionEssay).ID,
		SkillType:  exam.SkillWriting,
		TextAnswer: "Goma sits by lake Kivu, under the volcano.",
	})
	require.NoError(t, err)

	teacherToken := getToken(t, env.Conf, teacher)
	gradePath := "/v1/grading/submissions/" + sub.ID + "/grade"
	grade := func(g grading.Grade) []byte { return marchallObj(t, g) }
	bandErr := map[string]string{"overall_band_score": "must be between 0 and 9 in steps of 0.5"}
	f := testutil.FloatPtr

	queue := []httpTest{
		{name: "queue: auth required", path: "/v1/grading/submissions", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "queue: student", path: "/v1/grading/submissions", token: getToken(t, env.Conf, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "queue: unassigned teacher", path: "/v1/grading/submissions", token: getToken(t, env.Conf, outsider), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "queue: invalid skill", path: "/v1/grading/submissions?skill_type=READING", token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"skill_type": "must be one of SPEAKING, WRITING"}),
		},
		{name: "queue: pending", path: "/v1/grading/submissions", token: teacherToken, wantCode: http.StatusOK, extra: []string{sub.ID}},
		{name: "queue: speaking", path: "/v1/grading/submissions?skill_type=SPEAKING", token: teacherToken, wantCode: http.StatusOK, wantData: []byte("[]")},
		{name: "queue: course", path: "/v1/grading/submissions?course_id=" + c.ID, token: teacherToken, wantCode: http.StatusOK, extra: []string{sub.ID}},
		{
			name: "queue: other course", path: "/v1/grading/submissions?course_id=c0ffee", token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range queue {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			checkCodeAndData(t, tt, rec)

			if wantIDs, ok := tt.extra.([]string); ok {
				var items []grading.QueueItem
				decode(t, rec, &items)
				ids := make([]string, 0, len(items))
				for _, item := range items {
					ids = append(ids, item.ID)
					assert.Equal(t, c.ID, item.CourseID)
					assert.Equal(t, tst.Title, item.TestTitle)
				}
				assert.Equal(t, wantIDs, ids)
			}
		})
	}

	grades := []httpTest{
		{
			name: "grade: student", method: http.MethodPost, path: gradePath, body: grade(grading.Grade{OverallBandScore: f(6)}),
			token: getToken(t, env.Conf, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "grade: unassigned teacher", method: http.MethodPost, path: gradePath, body: grade(grading.Grade{OverallBandScore: f(6)}),
			token: getToken(t, env.Conf, outsider), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "grade: unknown submission", method: http.MethodPost, path: "/v1/grading/submissions/c0ffee/grade", body: grade(grading.Grade{OverallBandScore: f(6)}),
			token: teacherToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "submission not found"}),
		},
		{
			name: "grade: band above 9", method: http.MethodPost, path: gradePath, body: grade(grading.Grade{OverallBandScore: f(9.5)}),
			token: teacherToken, wantCode: http.StatusBadRequest, wantData: marchallObj(t, bandErr),
		},
		{
			name: "grade: negative band", method: http.MethodPost, path: gradePath, body: grade(grading.Grade{OverallBandScore: f(-1)}),
			token: teacherToken, wantCode: http.StatusBadRequest, wantData: marchallObj(t, bandErr),
		},
		{
			name: "grade: missing criteria", method: http.MethodPost, path: gradePath, body: grade(grading.Grade{Criteria: scoring.Criteria{Lexical: f(6)}}),
			token: teacherToken, wantCode: http.StatusBadRequest,
		},
		{
			name: "grade: speaking criterion on writing", method: http.MethodPost, path: gradePath,
			body: grade(grading.Grade{OverallBandScore: f(6), Criteria: scoring.Criteria{Fluency: f(6)}}), token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"fluency": "not applicable to WRITING"}),
		},
		{
			name: "grade: criteria", method: http.MethodPost, path: gradePath, token: teacherToken, wantCode: http.StatusOK, extra: 6.5,
			body: grade(grading.Grade{
				Criteria: scoring.Criteria{TaskAchievement: f(6), Coherence: f(6.5), Lexical: f(7), Grammar: f(6)},
				Feedback: "Good structure.",
			}),
		},
		{
			name: "grade: zero", method: http.MethodPost, path: gradePath, body: grade(grading.Grade{OverallBandScore: f(0)}),
			token: teacherToken, wantCode: http.StatusOK, extra: 0.0,
		},
		{
			name: "re-grade", method: http.MethodPost, path: gradePath, body: grade(grading.Grade{OverallBandScore: f(9), Feedback: "Excellent."}),
			token: teacherToken, wantCode: http.StatusOK, extra: 9.0,
		},
	}
	for _, tt := range grades {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			checkCodeAndData(t, tt, rec)

			if band, ok := tt.extra.(float64); ok {
				var got exam.Submission
				decode(t, rec, &got)
				assert.Equal(t, exam.SubmissionGraded, got.Status)
				require.NotNil(t, got.OverallBandScore)
				assert.Equal(t, band, *got.OverallBandScore)
				assert.Equal(t, teacher.ID, got.GradedBy)
				assert.NotNil(t, got.GradedAt)
			}
		})
	}

	after := []httpTest{
		{name: "queue: nothing pending", path: "/v1/grading/submissions", token: teacherToken, wantCode: http.StatusOK, wantData: []byte("[]")},
		{name: "queue: graded", path: "/v1/grading/submissions?status=GRADED", token: teacherToken, wantCode: http.StatusOK, extra: []string{sub.ID}},
		{name: "queue: invalid status", path: "/v1/grading/submissions?status=LOL", token: teacherToken, wantCode: http.StatusBadRequest},
	}
	for _, tt := range after {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			checkCodeAndData(t, tt, rec)

			if wantIDs, ok := tt.extra.([]string); ok {
				var items []grading.QueueItem
				decode(t, rec, &items)
				require.Len(t, items, len(wantIDs))
				assert.Equal(t, wantIDs[0], items[0].ID)
			}
		})
	}

	// the student sees the grade on the result
	rec := do(app, httpTest{path: "/v1/attempts/" + started.ID, token: getToken(t, env.Conf, student)})
	require.Equal(t, http.StatusOK, rec.Code)
	var res exam.Result
	decode(t, rec, &res)
	assert.Equal(t, 1, res.GradedSubmissions)
	require.Len(t, res.Submissions, 1)
	assert.Equal(t, "Excellent.", res.Submissions[0].Feedback)
}
