package authz

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/user"
)

func TestAuthorize(t *testing.T) {
	student := Caller{ID: "s1", Role: user.RoleStudent, Active: true}
	teacher := Caller{ID: "t1", Role: user.RoleTeacher, Active: true, TeacherCourseIDs: []string{"c1"}}
	idleTeacher := Caller{ID: "t2", Role: user.RoleTeacher, Active: true, TeacherCourseIDs: []string{}}
	admin := Caller{ID: "a1", Role: user.RoleAdmin, Active: true}

	own := Resource{OwnerID: "s1", CourseID: "c1"}
	others := Resource{OwnerID: "s2", CourseID: "c1"}
	otherCourse := Resource{OwnerID: "s2", CourseID: "c2"}

	tests := []struct {
		name   string
		caller Caller
		action Action
		res    Resource
		want   bool
	}{
		{name: "anonymous", caller: Caller{}, action: ActionCourseEnroll, want: false},
		{name: "deactivated", caller: Caller{ID: "s1", Role: user.RoleStudent}, action: ActionAttemptView, res: own, want: false},
		{name: "deactivated admin", caller: Caller{ID: "a1", Role: user.RoleAdmin}, action: ActionGradingQueue, want: false},
		{name: "unknown action", caller: admin, action: "course:delete", want: false},

		{name: "student enrolls", caller: student, action: ActionCourseEnroll, res: own, want: true},
		{name: "student views own attempt", caller: student, action: ActionAttemptView, res: own, want: true},
		{name: "student views others attempt", caller: student, action: ActionAttemptView, res: others, want: false},
		{name: "student answers own attempt", caller: student, action: ActionAttemptAnswer, res: own, want: true},
		{name: "student reads own progress", caller: student, action: ActionCourseProgress, res: own, want: true},
		{name: "student lists own enrollments", caller: student, action: ActionEnrollmentList, res: own, want: true},
		{name: "student switches own course", caller: student, action: ActionCourseSwitch, res: own, want: true},
		{name: "deactivated student lists enrollments", caller: Caller{ID: "s1", Role: user.RoleStudent}, action: ActionEnrollmentList, res: own, want: false},
		{name: "student grades", caller: student, action: ActionSubmissionGrade, res: own, want: false},

		{name: "teacher views course attempt", caller: teacher, action: ActionAttemptView, res: others, want: true},
		{name: "teacher views other course attempt", caller: teacher, action: ActionAttemptView, res: otherCourse, want: false},
		{name: "teacher answers others attempt", caller: teacher, action: ActionAttemptAnswer, res: others, want: false},
		{name: "teacher abandons others attempt", caller: teacher, action: ActionAttemptAbandon, res: others, want: false},
		{name: "teacher lists queue", caller: teacher, action: ActionGradingQueue, want: true},
		{name: "teacher grades course", caller: teacher, action: ActionSubmissionGrade, res: others, want: true},
		{name: "teacher grades other course", caller: teacher, action: ActionSubmissionGrade, res: otherCourse, want: false},
		{name: "idle teacher lists queue", caller: idleTeacher, action: ActionGradingQueue, want: false},

		{name: "admin views any attempt", caller: admin, action: ActionAttemptView, res: otherCourse, want: true},
		{name: "admin grades any course", caller: admin, action: ActionSubmissionGrade, res: otherCourse, want: true},
		{name: "admin switches others course", caller: admin, action: ActionCourseSwitch, res: others, want: false},
		{name: "admin submits others attempt", caller: admin, action: ActionAttemptSubmit, res: others, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.caller, tt.action, tt.res))

			err := Check(tt.caller, tt.action, tt.res)
			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.True(t, core.IsForbidden(err))
			}
		})
	}
}

type assignments map[string][]string

func (a assignments) QueryTeacherCourseIDs(_ context.Context, teacherID string) ([]string, error) {
	if teacherID == "broken" {
		return nil, errors.New("connection reset")
	}
	return a[teacherID], nil
}

func TestWithTeacherCourses(t *testing.T) {
	src := assignments{"t1": {"c1", "c2"}}
	ctx := context.Background()

	got, err := WithTeacherCourses(ctx, src, Caller{ID: "t1", Role: user.RoleTeacher, Active: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, got.TeacherCourseIDs)

	got, err = WithTeacherCourses(ctx, src, Caller{ID: "t2", Role: user.RoleTeacher, Active: true})
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.TeacherCourseIDs, "loaded but empty")

	got, err = WithTeacherCourses(ctx, src, Caller{ID: "t1", Role: user.RoleTeacher, TeacherCourseIDs: []string{"c9"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c9"}, got.TeacherCourseIDs, "already loaded")

	got, err = WithTeacherCourses(ctx, src, Caller{ID: "s1", Role: user.RoleStudent})
	require.NoError(t, err)
	assert.Nil(t, got.TeacherCourseIDs)

	_, err = WithTeacherCourses(ctx, src, Caller{ID: "broken", Role: user.RoleTeacher})
	assert.EqualError(t, err, "querying teacher courses: connection reset")
}
