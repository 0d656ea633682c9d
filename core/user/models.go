package user

import (
	"time"

	"github.com/trezcool/lingo/core"
)

// Roles
const (
	RoleStudent = "STUDENT"
	RoleTeacher = "TEACHER"
	RoleAdmin   = "ADMIN"
)

var (
	AllRoles = []string{RoleStudent, RoleTeacher, RoleAdmin}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is the learner profile of an identity authenticated by the external provider.
// It is never hard-deleted: a deactivated profile has IsActive set to false.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	ActiveCourseID string    `json:"active_course_id"`
	Points         int       `json:"points"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
	LastLogin      time.Time `json:"last_login"` // UTC
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

// Identity holds the verified claims of the external identity provider.
type Identity struct {
	Subject string
	Name    string
	Email   string
}

func (id *Identity) Clean() {
	id.Subject = core.CleanString(id.Subject)
	id.Name = core.CleanString(id.Name)
	id.Email = core.CleanString(id.Email, true /* lower */)
}

// NewProfile contains information needed to create a profile by an admin.
type NewProfile struct {
	ID    string `json:"id" validate:"required,notblank"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role" validate:"required,role"`
}

func (np *NewProfile) Clean() {
	np.ID = core.CleanString(np.ID)
	np.Name = core.CleanString(np.Name)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Role = core.CleanString(np.Role)
}

type SetActiveCourse struct {
	CourseID string `json:"course_id" validate:"required,notblank"`
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
