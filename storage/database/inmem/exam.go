package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/exam"
)

type examRepository struct {
	db *DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) *examRepository {
	return &examRepository{db: db}
}

// cloneTest deep-copies the tree of t, assigning missing ids.
func cloneTest(t exam.Test) exam.Test {
	t.ID = newID(t.ID)
	sections := make([]exam.Section, len(t.Sections))
	for si, s := range t.Sections {
		s.ID, s.TestID = newID(s.ID), t.ID
		questions := make([]exam.Question, len(s.Questions))
		for qi, q := range s.Questions {
			q.SectionID = s.ID
			questions[qi] = cloneQuestion(q)
		}
		s.Questions = questions
		sections[si] = s
	}
	t.Sections = sections
	return t
}

func cloneQuestion(q exam.Question) exam.Question {
	q.ID = newID(q.ID)
	if q.Points != nil {
		p := *q.Points
		q.Points = &p
	}
	options := make([]exam.Option, len(q.Options))
	for oi, o := range q.Options {
		o.ID, o.QuestionID = newID(o.ID), q.ID
		options[oi] = o
	}
	q.Options = options
	return q
}

func (repo *examRepository) CreateTest(ctx context.Context, t exam.Test) (exam.Test, error) {
	defer repo.db.write(ctx)()

	t = cloneTest(t)
	repo.db.tests[t.ID] = t
	return cloneTest(t), nil
}

func (repo *examRepository) GetTest(_ context.Context, id string) (exam.Test, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.tests[id]; ok {
		return cloneTest(t), nil
	}
	return exam.Test{}, core.NewNotFoundError("test", id)
}

func (repo *examRepository) UpdateQuestion(ctx context.Context, q exam.Question) (exam.Question, error) {
	defer repo.db.write(ctx)()

	for id, stored := range repo.db.tests {
		t := cloneTest(stored)
		for si := range t.Sections {
			for qi, orig := range t.Sections[si].Questions {
				if orig.ID != q.ID {
					continue
				}
				q.SectionID = orig.SectionID
				if q.Options == nil {
					q.Options = orig.Options
				}
				q = cloneQuestion(q)
				t.Sections[si].Questions[qi] = q
				repo.db.tests[id] = t
				return cloneQuestion(q), nil
			}
		}
	}
	return exam.Question{}, core.NewNotFoundError("question", q.ID)
}

func (repo *examRepository) CreateAttempt(ctx context.Context, a exam.Attempt) (exam.Attempt, error) {
	defer repo.db.write(ctx)()

	if a.Status == exam.StatusInProgress {
		for _, other := range repo.db.attempts {
			if other.UserID == a.UserID && other.TestID == a.TestID && other.Status == exam.StatusInProgress {
				return exam.Attempt{}, exam.ErrAttemptInProgress
			}
		}
	}
	a.ID = newID(a.ID)
	repo.db.attempts[a.ID] = a
	return a, nil
}

func (repo *examRepository) GetAttempt(_ context.Context, id string) (exam.Attempt, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.attempts[id]; ok {
		return a, nil
	}
	return exam.Attempt{}, core.NewNotFoundError("attempt", id)
}

func (repo *examRepository) GetInProgressAttempt(_ context.Context, userID, testID string) (exam.Attempt, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, a := range repo.db.attempts {
		if a.UserID == userID && a.TestID == testID && a.Status == exam.StatusInProgress {
			return a, nil
		}
	}
	return exam.Attempt{}, core.NewNotFoundError("attempt", testID)
}

func (repo *examRepository) QueryAttempts(_ context.Context, filter exam.AttemptFilter) ([]exam.Attempt, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	attempts := make([]exam.Attempt, 0)
	for _, a := range repo.db.attempts {
		if (filter.UserID != "" && a.UserID != filter.UserID) ||
			(filter.TestID != "" && a.TestID != filter.TestID) ||
			(filter.Status != "" && a.Status != filter.Status) {
			continue
		}
		attempts = append(attempts, a)
	}
	sort.Slice(attempts, func(i, j int) bool {
		if attempts[i].StartedAt.Equal(attempts[j].StartedAt) {
			return attempts[i].ID < attempts[j].ID
		}
		return attempts[i].StartedAt.After(attempts[j].StartedAt)
	})
	return attempts, nil
}

// inProgress must be called with the lock held.
func (repo *examRepository) inProgress(id string) (exam.Attempt, error) {
	a, ok := repo.db.attempts[id]
	if !ok {
		return exam.Attempt{}, core.NewNotFoundError("attempt", id)
	}
	if a.Status != exam.StatusInProgress {
		return exam.Attempt{}, exam.ErrStatusConflict
	}
	return a, nil
}

func (repo *examRepository) CompleteAttempt(ctx context.Context, id string, score int, completedAt time.Time) (exam.Attempt, error) {
	defer repo.db.write(ctx)()

	a, err := repo.inProgress(id)
	if err != nil {
		return exam.Attempt{}, err
	}
	completedAt = completedAt.UTC()
	a.Status = exam.StatusCompleted
	a.Score = &score
	a.CompletedAt = &completedAt
	repo.db.attempts[id] = a
	return a, nil
}

func (repo *examRepository) DeleteAttempt(ctx context.Context, id string) error {
	defer repo.db.write(ctx)()

	if _, err := repo.inProgress(id); err != nil {
		return err
	}
	for ansID, ans := range repo.db.answers {
		if ans.AttemptID == id {
			delete(repo.db.answers, ansID)
		}
	}
	for subID, sub := range repo.db.submissions {
		if sub.AttemptID == id {
			delete(repo.db.submissions, subID)
		}
	}
	delete(repo.db.attempts, id)
	return nil
}

func (repo *examRepository) UpsertAnswer(ctx context.Context, ans exam.Answer) (exam.Answer, error) {
	defer repo.db.write(ctx)()

	if _, err := repo.inProgress(ans.AttemptID); err != nil {
		return exam.Answer{}, err
	}
	for _, existing := range repo.db.answers {
		if existing.AttemptID == ans.AttemptID && existing.QuestionID == ans.QuestionID {
			existing.Value = ans.Value
			existing.UpdatedAt = ans.UpdatedAt
			repo.db.answers[existing.ID] = existing
			return existing, nil
		}
	}
	ans.ID = newID(ans.ID)
	repo.db.answers[ans.ID] = ans
	return ans, nil
}

func (repo *examRepository) GetAnswer(_ context.Context, id string) (exam.Answer, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ans, ok := repo.db.answers[id]; ok {
		return ans, nil
	}
	return exam.Answer{}, core.NewNotFoundError("answer", id)
}

func (repo *examRepository) QueryAnswers(_ context.Context, attemptID string) ([]exam.Answer, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	answers := make([]exam.Answer, 0)
	for _, ans := range repo.db.answers {
		if ans.AttemptID == attemptID {
			answers = append(answers, ans)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].CreatedAt.Equal(answers[j].CreatedAt) {
			return answers[i].ID < answers[j].ID
		}
		return answers[i].CreatedAt.Before(answers[j].CreatedAt)
	})
	return answers, nil
}

func (repo *examRepository) UpdateAnswerScores(ctx context.Context, answers []exam.Answer) error {
	defer repo.db.write(ctx)()

	for _, ans := range answers {
		stored, ok := repo.db.answers[ans.ID]
		if !ok {
			return core.NewNotFoundError("answer", ans.ID)
		}
		stored.IsCorrect = ans.IsCorrect
		stored.PointsAwarded = ans.PointsAwarded
		repo.db.answers[ans.ID] = stored
	}
	return nil
}

func (repo *examRepository) UpsertSubmission(ctx context.Context, sub exam.Submission) (exam.Submission, error) {
	defer repo.db.write(ctx)()

	if _, err := repo.inProgress(sub.AttemptID); err != nil {
		return exam.Submission{}, err
	}
	for _, existing := range repo.db.submissions {
		if existing.AttemptID != sub.AttemptID || existing.QuestionID != sub.QuestionID {
			continue
		}
		if existing.Status != exam.SubmissionPending {
			return exam.Submission{}, exam.ErrStatusConflict
		}
		existing.AudioURL = sub.AudioURL
		existing.TextAnswer = sub.TextAnswer
		existing.Status = sub.Status
		existing.UpdatedAt = sub.UpdatedAt
		repo.db.submissions[existing.ID] = existing
		return existing, nil
	}
	sub.ID = newID(sub.ID)
	repo.db.submissions[sub.ID] = sub
	return sub, nil
}

func (repo *examRepository) GetSubmission(_ context.Context, id string) (exam.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return sub, nil
	}
	return exam.Submission{}, core.NewNotFoundError("submission", id)
}

func (repo *examRepository) QuerySubmissions(_ context.Context, filter exam.SubmissionFilter) ([]exam.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var courses map[string]bool
	if filter.CourseIDs != nil {
		courses = make(map[string]bool, len(filter.CourseIDs))
		for _, id := range filter.CourseIDs {
			courses[id] = true
		}
	}

	subs := make([]exam.Submission, 0)
	for _, sub := range repo.db.submissions {
		if (filter.AttemptID != "" && sub.AttemptID != filter.AttemptID) ||
			(filter.UserID != "" && sub.UserID != filter.UserID) ||
			(filter.SkillType != "" && sub.SkillType != filter.SkillType) ||
			(filter.Status != "" && sub.Status != filter.Status) {
			continue
		}
		if courses != nil && !courses[repo.db.tests[sub.TestID].CourseID] {
			continue
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

func (repo *examRepository) GradeSubmission(ctx context.Context, sub exam.Submission) (exam.Submission, error) {
	defer repo.db.write(ctx)()

	stored, ok := repo.db.submissions[sub.ID]
	if !ok {
		return exam.Submission{}, core.NewNotFoundError("submission", sub.ID)
	}
	stored.Status = sub.Status
	stored.Criteria = sub.Criteria
	stored.OverallBandScore = sub.OverallBandScore
	stored.Feedback = sub.Feedback
	stored.GradedBy = sub.GradedBy
	stored.GradedAt = sub.GradedAt
	stored.UpdatedAt = sub.UpdatedAt
	repo.db.submissions[sub.ID] = stored
	return stored, nil
}
