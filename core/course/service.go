package course

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/authz"
	"github.com/trezcool/lingo/core/user"
)

var (
	// errors
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateCourse saves the whole content tree, assigning ids to every node.
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// GetCourse returns the course with its whole content tree.
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context) ([]Course, error)
		// GetLesson returns the lesson with its challenges.
		GetLesson(ctx context.Context, id string) (Lesson, error)
		// GetChallenge returns the challenge with its questions & options and its CourseID set.
		GetChallenge(ctx context.Context, id string) (Challenge, error)

		GetChallengeProgress(ctx context.Context, userID, challengeID string) (ChallengeProgress, error)
		QueryChallengeProgress(ctx context.Context, userID string, challengeIDs []string) ([]ChallengeProgress, error)
		// MarkChallengeCompleted upserts a completed ChallengeProgress and reports whether this call completed it,
		// it returns false without writing when the progress was already completed.
		MarkChallengeCompleted(ctx context.Context, cp ChallengeProgress) (bool, error)
		// RecordChallengeAttempt upserts an uncompleted ChallengeProgress, completed ones are left untouched.
		RecordChallengeAttempt(ctx context.Context, cp ChallengeProgress) error

		// CreateEnrollment returns ErrAlreadyEnrolled when (UserID, CourseID) exists.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
		QueryEnrollments(ctx context.Context, userID string) ([]Enrollment, error)

		// AssignTeacher is idempotent.
		AssignTeacher(ctx context.Context, ta TeacherAssignment) error
		QueryTeacherCourseIDs(ctx context.Context, teacherID string) ([]string, error)
	}

	Service struct {
		repo      Repository
		usrRepo   user.Repository
		tx        core.Transactor
		publisher core.EventPublisher
		logger    core.Logger
	}
)

func NewService(repo Repository, usrRepo user.Repository, tx core.Transactor, publisher core.EventPublisher, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(usrRepo, "usrRepo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	if publisher == nil {
		publisher = core.NoopPublisher
	}
	return &Service{repo: repo, usrRepo: usrRepo, tx: tx, publisher: publisher, logger: logger}
}

func (svc *Service) requireEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error) {
	e, err := svc.repo.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		if core.IsNotFound(err) {
			return Enrollment{}, core.NewForbiddenError("course:access")
		}
		return Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	if !e.IsActive() {
		return Enrollment{}, core.NewForbiddenError("course:access")
	}
	return e, nil
}

// CompleteChallenge checks the submitted options of a challenge and, on a first correct completion,
// marks it completed and awards its points to the caller. Re-completing it is practice: nothing changes.
func (svc *Service) CompleteChallenge(ctx context.Context, caller authz.Caller, challengeID string, data CompleteChallenge) (CompletionResult, error) {
	if err := authz.Check(caller, authz.ActionChallengeComplete, authz.Resource{OwnerID: caller.ID}); err != nil {
		return CompletionResult{}, err
	}

	ch, err := svc.repo.GetChallenge(ctx, challengeID)
	if err != nil {
		return CompletionResult{}, err
	}
	if _, err = svc.requireEnrollment(ctx, caller.ID, ch.CourseID); err != nil {
		return CompletionResult{}, err
	}

	res := CompletionResult{ChallengeID: ch.ID, Correct: ch.IsCorrect(data.OptionIDs)}

	existing, err := svc.repo.GetChallengeProgress(ctx, caller.ID, ch.ID)
	if err != nil && !core.IsNotFound(err) {
		return CompletionResult{}, errors.Wrap(err, "getting challenge progress")
	}
	if err == nil && existing.Completed {
		res.Practice = true
		return svc.withLessonState(ctx, caller.ID, ch.LessonID, res)
	}
	if !res.Correct {
		err = svc.repo.RecordChallengeAttempt(ctx, ChallengeProgress{UserID: caller.ID, ChallengeID: ch.ID, UpdatedAt: nowFunc().UTC()})
		if err != nil {
			return CompletionResult{}, errors.Wrap(err, "recording challenge attempt")
		}
		return res, nil
	}

	points := ch.PointsWorth()
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		completed, err := svc.repo.MarkChallengeCompleted(ctx, ChallengeProgress{
			UserID:      caller.ID,
			ChallengeID: ch.ID,
			Completed:   true,
			Score:       points,
			UpdatedAt:   nowFunc().UTC(),
		})
		if err != nil {
			return errors.Wrap(err, "marking challenge completed")
		}
		if !completed { // completed concurrently
			res.Practice = true
			return nil
		}
		usr, err := svc.usrRepo.AddPoints(ctx, caller.ID, points)
		if err != nil {
			return errors.Wrap(err, "awarding points")
		}
		res.PointsAwarded = points
		res.UserPoints = usr.Points
		return nil
	})
	if err != nil {
		return CompletionResult{}, err
	}

	if !res.Practice {
		svc.logger.Info("challenge completed", map[string]interface{}{"user_id": caller.ID, "challenge_id": ch.ID, "points": points})
		svc.publisher.Publish(ctx, core.NewEvent(core.EventChallengeCompleted, caller.ID, ch.ID, map[string]interface{}{
			"lesson_id": ch.LessonID,
			"course_id": ch.CourseID,
			"points":    points,
		}))
	}
	return svc.withLessonState(ctx, caller.ID, ch.LessonID, res)
}

func (svc *Service) withLessonState(ctx context.Context, userID, lessonID string, res CompletionResult) (CompletionResult, error) {
	if res.UserPoints == 0 {
		usr, err := svc.usrRepo.GetUser(ctx, userID)
		if err != nil {
			return CompletionResult{}, errors.Wrap(err, "getting user")
		}
		res.UserPoints = usr.Points
	}
	lp, err := svc.LessonProgress(ctx, userID, lessonID)
	if err != nil {
		return CompletionResult{}, err
	}
	res.LessonCompleted = lp.Completed
	return res, nil
}

// LessonProgress derives the completion of a lesson for userID.
func (svc *Service) LessonProgress(ctx context.Context, userID, lessonID string) (LessonProgress, error) {
	l, err := svc.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return LessonProgress{}, err
	}
	cps, err := svc.repo.QueryChallengeProgress(ctx, userID, l.ChallengeIDs())
	if err != nil {
		return LessonProgress{}, errors.Wrap(err, "querying challenge progress")
	}
	completed := make(map[string]bool, len(cps))
	for _, cp := range cps {
		if cp.Completed {
			completed[cp.ChallengeID] = true
		}
	}
	return lessonProgress(l.UnitID, l, completed), nil
}

// CourseProgress derives the course progress of userID from its challenge progress.
func (svc *Service) CourseProgress(ctx context.Context, caller authz.Caller, userID, courseID string) (Progress, error) {
	caller, err := authz.WithTeacherCourses(ctx, svc.repo, caller)
	if err != nil {
		return Progress{}, err
	}
	if err = authz.Check(caller, authz.ActionCourseProgress, authz.Resource{OwnerID: userID, CourseID: courseID}); err != nil {
		return Progress{}, err
	}

	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Progress{}, err
	}
	return svc.progress(ctx, c, userID)
}

func (svc *Service) progress(ctx context.Context, c Course, userID string) (Progress, error) {
	cps, err := svc.repo.QueryChallengeProgress(ctx, userID, challengeIDs(c))
	if err != nil {
		return Progress{}, errors.Wrap(err, "querying challenge progress")
	}
	return computeProgress(c, userID, cps), nil
}

// Enroll enrolls the caller in a free course.
func (svc *Service) Enroll(ctx context.Context, caller authz.Caller, courseID string) (Enrollment, error) {
	if err := authz.Check(caller, authz.ActionCourseEnroll, authz.Resource{OwnerID: caller.ID, CourseID: courseID}); err != nil {
		return Enrollment{}, err
	}
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if c.EnrollmentType == EnrollmentPaid {
		return Enrollment{}, core.NewForbiddenError(string(authz.ActionCourseEnroll))
	}
	return svc.enroll(ctx, caller.ID, c.ID, EnrollmentFree)
}

// EnrollPaid enrolls userID in a course once its payment is confirmed. Trusted callers only.
func (svc *Service) EnrollPaid(ctx context.Context, userID, courseID string) (Enrollment, error) {
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	return svc.enroll(ctx, userID, c.ID, EnrollmentPaid)
}

func (svc *Service) enroll(ctx context.Context, userID, courseID, typ string) (Enrollment, error) {
	e, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		Type:      typ,
		Status:    EnrollmentActive,
		CreatedAt: nowFunc().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}

	svc.logger.Info("enrollment created", map[string]interface{}{"user_id": userID, "course_id": courseID, "type": typ})
	svc.publisher.Publish(ctx, core.NewEvent(core.EventEnrollmentCreated, userID, e.ID, map[string]interface{}{"course_id": courseID}))
	return e, nil
}

// Enrollments returns the enrollments of the caller with their derived progress.
func (svc *Service) Enrollments(ctx context.Context, caller authz.Caller) ([]Enrollment, error) {
	if err := authz.Check(caller, authz.ActionEnrollmentList, authz.Resource{OwnerID: caller.ID}); err != nil {
		return nil, err
	}
	enrollments, err := svc.repo.QueryEnrollments(ctx, caller.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	for i, e := range enrollments {
		c, err := svc.repo.GetCourse(ctx, e.CourseID)
		if err != nil {
			return nil, errors.Wrap(err, "getting course")
		}
		p, err := svc.progress(ctx, c, caller.ID)
		if err != nil {
			return nil, err
		}
		enrollments[i].Progress = p.Percentage
	}
	return enrollments, nil
}

// SwitchActiveCourse sets the active course of the caller, who must be enrolled in it.
func (svc *Service) SwitchActiveCourse(ctx context.Context, caller authz.Caller, data user.SetActiveCourse) (user.User, error) {
	if err := authz.Check(caller, authz.ActionCourseSwitch, authz.Resource{OwnerID: caller.ID, CourseID: data.CourseID}); err != nil {
		return user.User{}, err
	}
	if _, err := svc.repo.GetCourse(ctx, data.CourseID); err != nil {
		return user.User{}, err
	}
	if _, err := svc.requireEnrollment(ctx, caller.ID, data.CourseID); err != nil {
		return user.User{}, err
	}

	usr, err := svc.usrRepo.GetUser(ctx, caller.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	usr.ActiveCourseID = data.CourseID
	usr.UpdatedAt = nowFunc().UTC()
	return svc.usrRepo.UpdateUser(ctx, usr)
}

// AssignTeacher lets a teacher grade the submissions of a course.
func (svc *Service) AssignTeacher(ctx context.Context, teacherID, courseID string) error {
	usr, err := svc.usrRepo.GetUser(ctx, teacherID)
	if err != nil {
		return err
	}
	if !usr.IsTeacher() {
		return core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "user is not a teacher"})
	}
	if _, err = svc.repo.GetCourse(ctx, courseID); err != nil {
		return err
	}
	return svc.repo.AssignTeacher(ctx, TeacherAssignment{TeacherID: teacherID, CourseID: courseID})
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) QueryCourses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

// CreateCourse validates & saves a content tree. Trusted callers only (admin CLI, seeding).
func (svc *Service) CreateCourse(ctx context.Context, c Course) (Course, error) {
	if err := c.Validate(); err != nil {
		return Course{}, err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = nowFunc().UTC()
	}
	return svc.repo.CreateCourse(ctx, c)
}
