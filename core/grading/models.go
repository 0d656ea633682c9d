package grading

import (
	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/exam"
	"github.com/trezcool/lingo/core/scoring"
)

type (
	// QueueFilter selects the submissions of a grading queue. Status defaults to PENDING.
	QueueFilter struct {
		SkillType string `query:"skill_type" json:"skill_type" validate:"omitempty,skilltype"`
		Status    string `query:"status" json:"status" validate:"omitempty,oneof=PENDING GRADED"`
		CourseID  string `query:"course_id" json:"course_id"`
	}

	// Grade is what a grader enters for a submission.
	// When OverallBandScore is omitted it is derived from the criteria, which must then all be provided.
	Grade struct {
		Criteria         scoring.Criteria `json:"criteria"`
		OverallBandScore *float64         `json:"overall_band_score" validate:"omitempty,band"`
		Feedback         string           `json:"feedback" validate:"max=5000"`
	}

	// QueueItem is a submission of the queue along with its test's course.
	QueueItem struct {
		exam.Submission
		CourseID  string `json:"course_id"`
		TestTitle string `json:"test_title"`
	}
)

func (qf *QueueFilter) Clean() {
	qf.SkillType = core.CleanString(qf.SkillType)
	qf.Status = core.CleanString(qf.Status)
	qf.CourseID = core.CleanString(qf.CourseID)
	if qf.Status == "" {
		qf.Status = string(exam.SubmissionPending)
	}
}

func (g *Grade) Clean() {
	g.Feedback = core.CleanString(g.Feedback)
}
