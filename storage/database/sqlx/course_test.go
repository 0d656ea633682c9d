package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/user"
	"github.com/trezcool/lingo/tests"
)

func TestCourseRepository_GetCourse(t *testing.T) {
	env := testutil.SetupPostgres(t)
	ctx := context.Background()
	c := env.CreateCourse(t, course.EnrollmentPaid)

	got, err := env.CourseRepo.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, course.EnrollmentPaid, got.EnrollmentType)
	require.Len(t, got.Units, 1)
	require.Len(t, got.Units[0].Lessons, 1)
	challenges := got.Units[0].Lessons[0].Challenges
	require.Len(t, challenges, 3)
	assert.Equal(t, 1, challenges[0].PointsWorth())
	assert.Equal(t, 5, challenges[1].PointsWorth())
	assert.Empty(t, challenges[2].Questions)

	_, err = env.CourseRepo.GetCourse(ctx, "lol")
	assert.True(t, core.IsNotFound(err))
}

func TestCourseRepository_challengeProgress(t *testing.T) {
	env := testutil.SetupPostgres(t)
	ctx := context.Background()
	c := env.CreateCourse(t, course.EnrollmentFree)
	ch := c.Units[0].Lessons[0].Challenges[1]
	usr := env.CreateUser(t, "learner", user.RoleStudent, true)
	cp := course.ChallengeProgress{UserID: usr.ID, ChallengeID: ch.ID, UpdatedAt: time.Now()}

	require.NoError(t, env.CourseRepo.RecordChallengeAttempt(ctx, cp))
	require.NoError(t, env.CourseRepo.RecordChallengeAttempt(ctx, cp))
	got, err := env.CourseRepo.GetChallengeProgress(ctx, usr.ID, ch.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.Zero(t, got.Score)

	cp.Completed, cp.Score = true, 5
	completed, err := env.CourseRepo.MarkChallengeCompleted(ctx, cp)
	require.NoError(t, err)
	assert.True(t, completed)

	cp.Score = 50
	completed, err = env.CourseRepo.MarkChallengeCompleted(ctx, cp)
	require.NoError(t, err)
	assert.False(t, completed)

	// a later wrong answer does not undo the completion
	require.NoError(t, env.CourseRepo.RecordChallengeAttempt(ctx, course.ChallengeProgress{UserID: usr.ID, ChallengeID: ch.ID, UpdatedAt: time.Now()}))
	got, err = env.CourseRepo.GetChallengeProgress(ctx, usr.ID, ch.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, 5, got.Score)

	cps, err := env.CourseRepo.QueryChallengeProgress(ctx, usr.ID, []string{ch.ID, c.Units[0].Lessons[0].Challenges[0].ID})
	require.NoError(t, err)
	assert.Len(t, cps, 1)
}

func TestCourseRepository_CreateEnrollment(t *testing.T) {
	env := testutil.SetupPostgres(t)
	ctx := context.Background()
	c := env.CreateCourse(t, course.EnrollmentFree)
	usr := env.CreateUser(t, "learner", user.RoleStudent, true)

	e := course.Enrollment{
		UserID:    usr.ID,
		CourseID:  c.ID,
		Type:      course.EnrollmentFree,
		Status:    course.EnrollmentActive,
		CreatedAt: time.Now(),
	}
	first, err := env.CourseRepo.CreateEnrollment(ctx, e)
	require.NoError(t, err)

	_, err = env.CourseRepo.CreateEnrollment(ctx, e)
	assert.Equal(t, course.ErrAlreadyEnrolled, errors.Cause(err))

	enrollments, err := env.CourseRepo.QueryEnrollments(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, first.ID, enrollments[0].ID)
}

func TestCourseRepository_AssignTeacher(t *testing.T) {
	env := testutil.SetupPostgres(t)
	ctx := context.Background()
	c := env.CreateCourse(t, course.EnrollmentFree)
	teacher := env.CreateUser(t, "teacher", user.RoleTeacher, true)

	for i := 0; i < 2; i++ {
		require.NoError(t, env.CourseRepo.AssignTeacher(ctx, course.TeacherAssignment{TeacherID: teacher.ID, CourseID: c.ID}))
	}
	ids, err := env.CourseRepo.QueryTeacherCourseIDs(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, ids)
}
