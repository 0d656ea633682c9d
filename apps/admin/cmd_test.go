package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/lingo/apps/api/echo"
	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/user"
	"github.com/trezcool/lingo/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	env := testutil.Setup(t)
	out := new(bytes.Buffer)

	// start CLI
	return &commandLine{
		conf:      env.Conf,
		usrSvc:    env.UserSvc,
		courseSvc: env.CourseSvc,
		examSvc:   env.ExamSvc,
		out:       out,
	}, env, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	origRun := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = origRun })
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "grading_rubric", "sql"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			checkErr(t, tt, err)
		})
	}
}

func Test_commandLine_addProfile(t *testing.T) {
	cli, env, _ := setup(t)

	existing := env.CreateUser(t, "jane", user.RoleStudent, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addprofile"}, wantErr: errHelp},
		{name: "no name", args: []string{"addprofile", "-id", "auth0|new"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"addprofile", "-id", "auth0|new", "-name", "New", "-role", "ROOT"}, extra: core.IsValidation},
		{name: "create teacher", args: []string{"addprofile", "-id", "auth0|teacher", "-name", "Mr T", "-role", user.RoleTeacher}, extra: user.RoleTeacher},
		{name: "promote existing", args: []string{"addprofile", "-id", existing.ID, "-name", "Jane", "-role", user.RoleAdmin}, extra: user.RoleAdmin},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			if isErr, ok := tt.extra.(func(error) bool); ok {
				assert.True(t, isErr(err), "unexpected error: %v", err)
				return
			}
			checkErr(t, tt, err)

			if role, ok := tt.extra.(string); ok {
				usr, err := env.UserRepo.GetUser(context.Background(), tt.args[2])
				require.NoError(t, err)
				assert.Equal(t, role, usr.Role)
				assert.True(t, usr.IsActive)
			}
		})
	}
}

func Test_commandLine_setActive(t *testing.T) {
	cli, env, _ := setup(t)
	usr := env.CreateUser(t, "joe", user.RoleStudent, true)

	require.Equal(t, errHelp, cli.run([]string{"admin", "setactive"}))
	require.NoError(t, cli.run([]string{"admin", "setactive", "-user", usr.ID, "-active=false"}))

	got, err := env.UserRepo.GetUser(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	err = cli.run([]string{"admin", "setactive", "-user", "auth0|nobody"})
	assert.True(t, core.IsNotFound(err))
}

func Test_commandLine_assignTeacher(t *testing.T) {
	cli, env, _ := setup(t)

	c := env.CreateCourse(t, course.EnrollmentFree)
	teacher := env.CreateUser(t, "teach", user.RoleTeacher, true)
	student := env.CreateUser(t, "stud", user.RoleStudent, true)

	tests := []cliTest{
		{name: "no args", args: []string{"assignteacher"}, wantErr: errHelp},
		{name: "no course", args: []string{"assignteacher", "-teacher", teacher.ID}, wantErr: errHelp},
		{name: "not a teacher", args: []string{"assignteacher", "-teacher", student.ID, "-course", c.ID}, wantErrStr: "teacher_id: user is not a teacher"},
		{name: "unknown course", args: []string{"assignteacher", "-teacher", teacher.ID, "-course", "c0ffee"}, wantErrStr: "course not found"},
		{name: "assign", args: []string{"assignteacher", "-teacher", teacher.ID, "-course", c.ID}},
		{name: "assign twice", args: []string{"assignteacher", "-teacher", teacher.ID, "-course", c.ID}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	ids, err := env.CourseRepo.QueryTeacherCourseIDs(context.Background(), teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, ids)
}

func Test_commandLine_enroll(t *testing.T) {
	cli, env, _ := setup(t)

	c := env.CreateCourse(t, course.EnrollmentPaid)
	usr := env.CreateUser(t, "payer", user.RoleStudent, true)

	require.Equal(t, errHelp, cli.run([]string{"admin", "enroll", "-user", usr.ID}))
	require.NoError(t, cli.run([]string{"admin", "enroll", "-user", usr.ID, "-course", c.ID}))

	e, err := env.CourseRepo.GetEnrollment(context.Background(), usr.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, course.EnrollmentPaid, e.Type)
	assert.True(t, e.IsActive())

	err = cli.run([]string{"admin", "enroll", "-user", usr.ID, "-course", c.ID})
	assert.True(t, core.IsValidation(err))
}

func Test_commandLine_seed(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()

	require.NoError(t, cli.run([]string{"admin", "seed"}))

	courses, err := env.CourseSvc.QueryCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "English for Beginners", courses[0].Title)

	c, err := env.CourseSvc.GetCourse(ctx, courses[0].ID)
	require.NoError(t, err)
	require.Len(t, c.Units, 1)
	assert.Len(t, c.Lessons(), 2)
	ch := c.Lessons()[0].Challenges[0]
	assert.Len(t, ch.CorrectOptionIDs(), 1)
	assert.Contains(t, out.String(), "test \"Beginners Mock Test\" created")

	// seeding again skips the existing courses
	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Contains(t, out.String(), "exists, skipped")
	courses, err = env.CourseSvc.QueryCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 1)

	err = cli.run([]string{"admin", "seed", "-file", "does-not-exist.json"})
	assert.Error(t, err)
}

func Test_commandLine_issueToken(t *testing.T) {
	cli, env, out := setup(t)
	usr := env.CreateUser(t, "tok", user.RoleStudent, true)

	origRead := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = origRead })

	// parseToken parses the token printed on the last line of out
	parseToken := func(t *testing.T, secret string) *echoapi.Claims {
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		claims := new(echoapi.Claims)
		_, err := jwt.ParseWithClaims(lines[len(lines)-1], claims, func(*jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		require.NoError(t, err)
		return claims
	}

	tests := []struct {
		name    string
		args    []string
		prompt  string
		secret  string
		wantErr error
	}{
		{name: "no args", args: []string{"issuetoken"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"issuetoken", "-user", "auth0|nobody"}, wantErr: core.NewNotFoundError("user", "auth0|nobody")},
		{name: "prompt: empty secret", args: []string{"issuetoken", "-user", usr.ID, "-prompt"}, wantErr: errHelp},
		{name: "configured secret", args: []string{"issuetoken", "-user", usr.ID}, secret: env.Conf.SecretKey},
		{name: "prompted secret", args: []string{"issuetoken", "-user", usr.ID, "-prompt"}, prompt: "s3cr3t", secret: "s3cr3t"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			readPasswordFunc = func(fd int) ([]byte, error) { return []byte(tt.prompt), nil }
			out.Reset()

			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			claims := parseToken(t, tt.secret)
			assert.Equal(t, usr.ID, claims.Subject)
			assert.Equal(t, usr.Email, claims.Email)
		})
	}
}
