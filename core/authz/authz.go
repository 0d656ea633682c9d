// Package authz holds the single capability check consulted by every core service.
package authz

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/user"
)

type Action string

// Actions
const (
	ActionCourseEnroll      Action = "course:enroll"
	ActionCourseProgress    Action = "course:progress"
	ActionChallengeComplete Action = "challenge:complete"
	ActionEnrollmentList    Action = "enrollment:list"
	ActionCourseSwitch      Action = "course:switch"

	ActionAttemptStart   Action = "attempt:start"
	ActionAttemptView    Action = "attempt:view"
	ActionAttemptAnswer  Action = "attempt:answer"
	ActionAttemptSubmit  Action = "attempt:submit"
	ActionAttemptRespond Action = "attempt:respond"
	ActionAttemptAbandon Action = "attempt:abandon"

	ActionGradingQueue    Action = "grading:queue"
	ActionSubmissionGrade Action = "submission:grade"
)

// Caller is the authenticated principal a core operation runs for.
// TeacherCourseIDs must be loaded by the service before checking course-scoped grading actions.
type Caller struct {
	ID               string
	Role             string
	Active           bool
	TeacherCourseIDs []string
}

func CallerFrom(usr user.User) Caller {
	return Caller{ID: usr.ID, Role: usr.Role, Active: usr.IsActive}
}

func (c Caller) IsAdmin() bool   { return c.Role == user.RoleAdmin }
func (c Caller) IsTeacher() bool { return c.Role == user.RoleTeacher }

func (c Caller) teaches(courseID string) bool {
	for _, id := range c.TeacherCourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

// Resource describes what an action is about. Empty fields are not considered.
type Resource struct {
	OwnerID  string
	CourseID string
}

type rule func(c Caller, res Resource) bool

var (
	anyone = func(c Caller, res Resource) bool { return true }
	owner  = func(c Caller, res Resource) bool { return res.OwnerID != "" && res.OwnerID == c.ID }

	ownerOrStaff = func(c Caller, res Resource) bool {
		return owner(c, res) || c.IsAdmin() || (c.IsTeacher() && c.teaches(res.CourseID))
	}
	grader = func(c Caller, res Resource) bool {
		if c.IsAdmin() {
			return true
		}
		if !c.IsTeacher() {
			return false
		}
		if res.CourseID == "" {
			return len(c.TeacherCourseIDs) > 0
		}
		return c.teaches(res.CourseID)
	}

	policy = map[Action]rule{
		ActionCourseEnroll:      anyone,
		ActionCourseProgress:    ownerOrStaff,
		ActionChallengeComplete: anyone,
		ActionEnrollmentList:    owner,
		ActionCourseSwitch:      owner,

		ActionAttemptStart:   anyone,
		ActionAttemptView:    ownerOrStaff,
		ActionAttemptAnswer:  owner,
		ActionAttemptSubmit:  owner,
		ActionAttemptRespond: owner,
		ActionAttemptAbandon: owner,

		ActionGradingQueue:    grader,
		ActionSubmissionGrade: grader,
	}
)

// Authorize reports whether caller may perform action on res.
// Unknown actions, anonymous and deactivated callers are always denied.
func Authorize(caller Caller, action Action, res Resource) bool {
	if caller.ID == "" || !caller.Active {
		return false
	}
	r, ok := policy[action]
	if !ok {
		return false
	}
	return r(caller, res)
}

// Check is Authorize returning a *core.ForbiddenError when denied.
func Check(caller Caller, action Action, res Resource) error {
	if !Authorize(caller, action, res) {
		return core.NewForbiddenError(string(action))
	}
	return nil
}

// AssignmentSource lists the courses a teacher is assigned to.
type AssignmentSource interface {
	QueryTeacherCourseIDs(ctx context.Context, teacherID string) ([]string, error)
}

// WithTeacherCourses loads the course assignments of a teacher caller, other callers are returned as is.
func WithTeacherCourses(ctx context.Context, src AssignmentSource, caller Caller) (Caller, error) {
	if !caller.IsTeacher() || caller.TeacherCourseIDs != nil {
		return caller, nil
	}
	ids, err := src.QueryTeacherCourseIDs(ctx, caller.ID)
	if err != nil {
		return caller, errors.Wrap(err, "querying teacher courses")
	}
	if ids == nil {
		ids = []string{}
	}
	caller.TeacherCourseIDs = ids
	return caller, nil
}
