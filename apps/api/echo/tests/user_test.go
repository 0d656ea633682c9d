package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/lingo/apps/api/echo"
	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/user"
)

func TestServer_home(t *testing.T) {
	_, app := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Lingo API!", rec.Body.String())
}

func Test_userApi_me(t *testing.T) {
	env, app := setup(t)

	student := env.CreateUser(t, "student", user.RoleStudent, true)
	naughty := env.CreateUser(t, "naughty", user.RoleStudent, false)

	newcomer := user.User{ID: "auth0|newcomer", Name: "New Comer", Email: "NEW@lingo.test"}
	type wantProfile struct{ id, name, email string }
	expired := echoapi.GetUserClaims(env.Conf, student)
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	expiredToken, err := echoapi.GenerateToken(env.Conf, expired)
	require.NoError(t, err)
	noSubToken := getToken(t, env.Conf, user.User{Name: "Nobody"})

	tests := []httpTest{
		{name: "auth required", path: "/v1/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "malformed token", path: "/v1/me", token: "lol", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "expired token", path: "/v1/me", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "token without subject", path: "/v1/me", token: noSubToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "deactivated profile", path: "/v1/me", token: getToken(t, env.Conf, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "existing profile", path: "/v1/me", token: getToken(t, env.Conf, student), wantCode: http.StatusOK, extra: wantProfile{student.ID, "student", "student@lingo.test"}},
		{name: "first login", path: "/v1/me", token: getToken(t, env.Conf, newcomer), wantCode: http.StatusOK, extra: wantProfile{newcomer.ID, "New Comer", "new@lingo.test"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			checkCodeAndData(t, tt, rec)

			if want, ok := tt.extra.(wantProfile); ok {
				var got user.User
				decode(t, rec, &got)
				assert.Equal(t, want.id, got.ID)
				assert.Equal(t, want.name, got.Name)
				assert.Equal(t, want.email, got.Email)
				assert.Equal(t, user.RoleStudent, got.Role)
				assert.True(t, got.IsActive)
				assert.False(t, got.LastLogin.IsZero())
			}
		})
	}

	// the newcomer profile was created once
	users, err := env.UserSvc.Query(context.Background(), &user.QueryFilter{Search: "newcomer"}, nil)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, []string{core.EventProfileCreated}, env.Publisher.Names())
}

func Test_userApi_query(t *testing.T) {
	env, app := setup(t)

	student := env.CreateUser(t, "bob", user.RoleStudent, true)
	teacher := env.CreateUser(t, "carla", user.RoleTeacher, true)
	admin := env.CreateUser(t, "alice", user.RoleAdmin, true)
	adminToken := getToken(t, env.Conf, admin)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin required", path: "/v1/users", token: getToken(t, env.Conf, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "teacher is not admin", path: "/v1/users", token: getToken(t, env.Conf, teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "order by name", path: "/v1/users?ordering=name", token: adminToken, wantCode: http.StatusOK, extra: []string{admin.ID, student.ID, teacher.ID}},
		{name: "order by -name", path: "/v1/users?ordering=-name", token: adminToken, wantCode: http.StatusOK, extra: []string{teacher.ID, student.ID, admin.ID}},
		{name: "role=TEACHER", path: "/v1/users?role=TEACHER", token: adminToken, wantCode: http.StatusOK, extra: []string{teacher.ID}},
		{name: "search=AL", path: "/v1/users?search=AL", token: adminToken, wantCode: http.StatusOK, extra: []string{admin.ID}},
		{name: "search (unknown)", path: "/v1/users?search=lol", token: adminToken, wantCode: http.StatusOK, wantData: []byte("[]")},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			checkCodeAndData(t, tt, rec)

			if wantIDs, ok := tt.extra.([]string); ok {
				var got []user.User
				decode(t, rec, &got)
				ids := make([]string, 0, len(got))
				for _, usr := range got {
					ids = append(ids, usr.ID)
				}
				assert.Equal(t, wantIDs, ids)
			}
		})
	}
}

func Test_userApi_queryRoles(t *testing.T) {
	env, app := setup(t)
	admin := env.CreateUser(t, "admin", user.RoleAdmin, true)

	tt := httpTest{path: "/v1/users/roles", token: getToken(t, env.Conf, admin), wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)}
	checkCodeAndData(t, tt, do(app, tt))
}

func Test_userApi_setActiveCourse(t *testing.T) {
	env, app := setup(t)

	c := env.CreateCourse(t, course.EnrollmentFree)
	other := env.CreateCourse(t, course.EnrollmentFree)
	student := env.CreateUser(t, "student", user.RoleStudent, true)
	env.Enroll(t, student, c)
	token := getToken(t, env.Conf, student)

	body := func(courseID string) []byte {
		return marchallObj(t, user.SetActiveCourse{CourseID: courseID})
	}

	tests := []httpTest{
		{name: "auth required", method: http.MethodPut, path: "/v1/me/active-course", body: body(c.ID), wantCode: http.StatusUnauthorized},
		{
			name: "course required", method: http.MethodPut, path: "/v1/me/active-course", body: []byte("{}"), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"course_id": "this field is required"}),
		},
		{
			name: "unknown course", method: http.MethodPut, path: "/v1/me/active-course", body: body("c0ffee"), token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "not enrolled", method: http.MethodPut, path: "/v1/me/active-course", body: body(other.ID), token: token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "enrolled", method: http.MethodPut, path: "/v1/me/active-course", body: body(c.ID), token: token, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, do(app, tt))
		})
	}

	usr, err := env.UserRepo.GetUser(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, usr.ActiveCourseID)

	t.Run("enrollments", func(t *testing.T) {
		rec := do(app, httpTest{path: "/v1/me/enrollments", token: token})
		require.Equal(t, http.StatusOK, rec.Code)

		var got []course.Enrollment
		decode(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, c.ID, got[0].CourseID)
		assert.Equal(t, course.EnrollmentPaid, got[0].Type)
		assert.Zero(t, got[0].Progress)
	})
}
