// Package grading routes speaking & writing submissions to their graders and applies the grades.
package grading

import (
	"context"
	"sort"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/authz"
	"github.com/trezcool/lingo/core/exam"
)

var nowFunc = time.Now // mockable

// Repository is the part of the exam storage the grading workflow works on.
type Repository interface {
	GetTest(ctx context.Context, id string) (exam.Test, error)
	GetSubmission(ctx context.Context, id string) (exam.Submission, error)
	QuerySubmissions(ctx context.Context, filter exam.SubmissionFilter) ([]exam.Submission, error)
	GradeSubmission(ctx context.Context, sub exam.Submission) (exam.Submission, error)
}

type Service struct {
	repo        Repository
	assignments authz.AssignmentSource
	publisher   core.EventPublisher
	logger      core.Logger
}

func NewService(repo Repository, assignments authz.AssignmentSource, publisher core.EventPublisher, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(assignments, "assignments"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	if publisher == nil {
		publisher = core.NoopPublisher
	}
	return &Service{repo: repo, assignments: assignments, publisher: publisher, logger: logger}
}

// grader loads the course assignments of caller and rejects callers who cannot grade at all.
func (svc *Service) grader(ctx context.Context, caller authz.Caller, action authz.Action) (authz.Caller, error) {
	caller, err := authz.WithTeacherCourses(ctx, svc.assignments, caller)
	if err != nil {
		return caller, err
	}
	return caller, authz.Check(caller, action, authz.Resource{})
}

// ListQueue returns the submissions caller may grade, oldest first.
// Teachers only see the submissions of the courses they are assigned to.
func (svc *Service) ListQueue(ctx context.Context, caller authz.Caller, filter QueueFilter) ([]QueueItem, error) {
	filter.Clean()

	caller, err := svc.grader(ctx, caller, authz.ActionGradingQueue)
	if err != nil {
		return nil, err
	}

	var courseIDs []string
	if filter.CourseID != "" {
		if err = authz.Check(caller, authz.ActionGradingQueue, authz.Resource{CourseID: filter.CourseID}); err != nil {
			return nil, err
		}
		courseIDs = []string{filter.CourseID}
	} else if !caller.IsAdmin() {
		courseIDs = caller.TeacherCourseIDs
	}

	subs, err := svc.repo.QuerySubmissions(ctx, exam.SubmissionFilter{
		SkillType: filter.SkillType,
		Status:    exam.SubmissionStatus(filter.Status),
		CourseIDs: courseIDs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })

	tests := make(map[string]exam.Test)
	items := make([]QueueItem, 0, len(subs))
	for _, sub := range subs {
		t, ok := tests[sub.TestID]
		if !ok {
			if t, err = svc.repo.GetTest(ctx, sub.TestID); err != nil {
				return nil, errors.Wrap(err, "getting test")
			}
			tests[t.ID] = t
		}
		items = append(items, QueueItem{Submission: sub, CourseID: t.CourseID, TestTitle: t.Title})
	}
	return items, nil
}

// Grade scores a submission and marks it GRADED. A graded submission may be re-graded.
// The attempt it belongs to is left untouched: whether it is fully graded is derived on read.
func (svc *Service) Grade(ctx context.Context, caller authz.Caller, submissionID string, data Grade) (exam.Submission, error) {
	data.Clean()

	caller, err := svc.grader(ctx, caller, authz.ActionSubmissionGrade)
	if err != nil {
		return exam.Submission{}, err
	}

	sub, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return exam.Submission{}, err
	}
	t, err := svc.repo.GetTest(ctx, sub.TestID)
	if err != nil {
		return exam.Submission{}, errors.Wrap(err, "getting test")
	}
	if err = authz.Check(caller, authz.ActionSubmissionGrade, authz.Resource{CourseID: t.CourseID}); err != nil {
		return exam.Submission{}, err
	}

	overall, err := data.check(sub.SkillType)
	if err != nil {
		return exam.Submission{}, err
	}
	status, err := sub.Status.Transition(exam.SubmissionGraded, "grade")
	if err != nil {
		return exam.Submission{}, err
	}

	now := nowFunc().UTC()
	regrade := sub.Status == exam.SubmissionGraded
	sub.Status = status
	sub.Criteria = data.Criteria
	sub.OverallBandScore = &overall
	sub.Feedback = data.Feedback
	sub.GradedBy = caller.ID
	sub.GradedAt = &now
	sub.UpdatedAt = now

	if sub, err = svc.repo.GradeSubmission(ctx, sub); err != nil {
		return exam.Submission{}, errors.Wrap(err, "saving grade")
	}

	svc.logger.Info("submission graded", map[string]interface{}{
		"submission_id": sub.ID,
		"graded_by":     caller.ID,
		"band":          overall,
		"regrade":       regrade,
	})
	svc.publisher.Publish(ctx, core.NewEvent(core.EventSubmissionGraded, sub.UserID, sub.ID, map[string]interface{}{
		"attempt_id": sub.AttemptID,
		"skill_type": sub.SkillType,
		"test_title": t.Title,
		"band":       overall,
		"feedback":   sub.Feedback,
		"regrade":    regrade,
	}))
	return sub, nil
}
