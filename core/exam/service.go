package exam

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/authz"
)

var (
	// errors
	ErrAttemptInProgress = errors.New("an attempt is already in progress for this test")
	ErrStatusConflict    = errors.New("status changed concurrently")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateTest saves the whole test tree, assigning ids to every node.
		CreateTest(ctx context.Context, t Test) (Test, error)
		// GetTest returns the test with its whole section/question/option tree.
		GetTest(ctx context.Context, id string) (Test, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)

		// CreateAttempt returns ErrAttemptInProgress when the user has an IN_PROGRESS attempt on the test.
		CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
		GetAttempt(ctx context.Context, id string) (Attempt, error)
		GetInProgressAttempt(ctx context.Context, userID, testID string) (Attempt, error)
		QueryAttempts(ctx context.Context, filter AttemptFilter) ([]Attempt, error)
		// CompleteAttempt flips an IN_PROGRESS attempt to COMPLETED, ErrStatusConflict if it is not IN_PROGRESS anymore.
		CompleteAttempt(ctx context.Context, id string, score int, completedAt time.Time) (Attempt, error)
		// DeleteAttempt hard-deletes an IN_PROGRESS attempt with its answers & submissions,
		// ErrStatusConflict if it is not IN_PROGRESS anymore.
		DeleteAttempt(ctx context.Context, id string) error

		// UpsertAnswer creates or updates the answer of (AttemptID, QuestionID), keeping its id.
		UpsertAnswer(ctx context.Context, ans Answer) (Answer, error)
		GetAnswer(ctx context.Context, id string) (Answer, error)
		QueryAnswers(ctx context.Context, attemptID string) ([]Answer, error)
		UpdateAnswerScores(ctx context.Context, answers []Answer) error

		// UpsertSubmission creates or updates the PENDING submission of (AttemptID, QuestionID), keeping its id.
		// It returns ErrStatusConflict when the existing submission is GRADED.
		UpsertSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
		GradeSubmission(ctx context.Context, sub Submission) (Submission, error)
	}

	Service struct {
		repo        Repository
		assignments authz.AssignmentSource
		tx          core.Transactor
		publisher   core.EventPublisher
		logger      core.Logger
		conf        core.ExamConfig
	}
)

func NewService(
	repo Repository,
	assignments authz.AssignmentSource,
	tx core.Transactor,
	publisher core.EventPublisher,
	logger core.Logger,
	conf *core.Config,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(assignments, "assignments"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	if publisher == nil {
		publisher = core.NoopPublisher
	}
	return &Service{
		repo:        repo,
		assignments: assignments,
		tx:          tx,
		publisher:   publisher,
		logger:      logger,
		conf:        conf.Exam,
	}
}

// ownedAttempt loads an attempt and checks that caller may perform action on it.
func (svc *Service) ownedAttempt(ctx context.Context, caller authz.Caller, action authz.Action, attemptID string) (Attempt, Test, error) {
	// anonymous & deactivated callers never learn whether the attempt exists
	if err := authz.Check(caller, action, authz.Resource{OwnerID: caller.ID}); err != nil {
		return Attempt{}, Test{}, err
	}

	a, err := svc.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, Test{}, err
	}
	t, err := svc.repo.GetTest(ctx, a.TestID)
	if err != nil {
		return Attempt{}, Test{}, errors.Wrap(err, "getting test")
	}

	if action == authz.ActionAttemptView {
		if caller, err = authz.WithTeacherCourses(ctx, svc.assignments, caller); err != nil {
			return Attempt{}, Test{}, err
		}
	}
	if err = authz.Check(caller, action, authz.Resource{OwnerID: a.UserID, CourseID: t.CourseID}); err != nil {
		return Attempt{}, Test{}, err
	}
	return a, t, nil
}

func (svc *Service) checkNotExpired(a Attempt, op string) error {
	if svc.conf.EnforceDuration && a.Expired(nowFunc().UTC(), svc.conf.DurationGrace) {
		return core.NewInvalidStateError("attempt", "EXPIRED", op)
	}
	return nil
}

// Start starts an attempt of caller on a test, freezing its total points.
// If caller already has an attempt in progress on the test, it is resumed instead.
func (svc *Service) Start(ctx context.Context, caller authz.Caller, testID string) (StartResult, error) {
	if err := authz.Check(caller, authz.ActionAttemptStart, authz.Resource{OwnerID: caller.ID}); err != nil {
		return StartResult{}, err
	}

	t, err := svc.repo.GetTest(ctx, testID)
	if err != nil {
		return StartResult{}, err
	}

	if a, err := svc.repo.GetInProgressAttempt(ctx, caller.ID, t.ID); err == nil {
		return StartResult{Attempt: a, Resumed: true}, nil
	} else if !core.IsNotFound(err) {
		return StartResult{}, errors.Wrap(err, "getting attempt in progress")
	}

	status, err := StatusNotStarted.Transition(StatusInProgress, "start")
	if err != nil {
		return StartResult{}, err
	}
	now := nowFunc().UTC()
	a := Attempt{
		ID:          uuid.New().String(),
		UserID:      caller.ID,
		TestID:      t.ID,
		Status:      status,
		TotalPoints: t.TotalPoints(),
		StartedAt:   now,
	}
	if t.DurationMinutes > 0 {
		deadline := now.Add(time.Duration(t.DurationMinutes) * time.Minute)
		a.Deadline = &deadline
	}

	a, err = svc.repo.CreateAttempt(ctx, a)
	if err != nil {
		if errors.Cause(err) == ErrAttemptInProgress { // started concurrently
			a, err = svc.repo.GetInProgressAttempt(ctx, caller.ID, t.ID)
			if err != nil {
				return StartResult{}, errors.Wrap(err, "getting attempt in progress")
			}
			return StartResult{Attempt: a, Resumed: true}, nil
		}
		return StartResult{}, errors.Wrap(err, "creating attempt")
	}

	svc.logger.Info("attempt started", map[string]interface{}{"attempt_id": a.ID, "user_id": a.UserID, "test_id": a.TestID})
	svc.publisher.Publish(ctx, core.NewEvent(core.EventAttemptStarted, a.UserID, a.ID, map[string]interface{}{"test_id": a.TestID}))
	return StartResult{Attempt: a}, nil
}

// Answer records the answer of an objective question, replacing any previous one.
func (svc *Service) Answer(ctx context.Context, caller authz.Caller, attemptID, questionID string, data NewAnswer) (Answer, error) {
	a, t, err := svc.ownedAttempt(ctx, caller, authz.ActionAttemptAnswer, attemptID)
	if err != nil {
		return Answer{}, err
	}
	if err = a.Status.require(StatusInProgress, "answer"); err != nil {
		return Answer{}, err
	}
	if err = svc.checkNotExpired(a, "answer"); err != nil {
		return Answer{}, err
	}

	q, _, ok := t.Question(questionID)
	if !ok {
		return Answer{}, core.NewNotFoundError("question", questionID)
	}
	value := core.CleanString(data.Value)
	if err = checkAnswerValue(q, value); err != nil {
		return Answer{}, err
	}

	now := nowFunc().UTC()
	ans, err := svc.repo.UpsertAnswer(ctx, Answer{
		ID:         uuid.New().String(),
		AttemptID:  a.ID,
		QuestionID: q.ID,
		Value:      value,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		if errors.Cause(err) == ErrStatusConflict {
			return Answer{}, core.NewInvalidStateError("attempt", "not "+string(StatusInProgress), "answer")
		}
		return Answer{}, errors.Wrap(err, "saving answer")
	}
	return ans, nil
}

// SubmitObjective scores every answer of the attempt and completes it, all in one transaction.
// A concurrent or repeated submit fails with an *core.InvalidStateError.
func (svc *Service) SubmitObjective(ctx context.Context, caller authz.Caller, attemptID string) (Result, error) {
	a, t, err := svc.ownedAttempt(ctx, caller, authz.ActionAttemptSubmit, attemptID)
	if err != nil {
		return Result{}, err
	}
	if _, err = a.Status.Transition(StatusCompleted, "submit"); err != nil {
		return Result{}, err
	}

	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		answers, err := svc.repo.QueryAnswers(ctx, a.ID)
		if err != nil {
			return errors.Wrap(err, "querying answers")
		}

		var score int
		for i, ans := range answers {
			correct, points := false, 0
			if q, _, ok := t.Question(ans.QuestionID); ok && q.IsObjective() {
				correct, points = q.Score(ans.Value)
			}
			answers[i].IsCorrect = &correct
			answers[i].PointsAwarded = &points
			score += points
		}
		if err = svc.repo.UpdateAnswerScores(ctx, answers); err != nil {
			return errors.Wrap(err, "saving answer scores")
		}

		a, err = svc.repo.CompleteAttempt(ctx, a.ID, score, nowFunc().UTC())
		if err != nil {
			if errors.Cause(err) == ErrStatusConflict {
				return core.NewInvalidStateError("attempt", "not "+string(StatusInProgress), "submit")
			}
			return errors.Wrap(err, "completing attempt")
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	svc.logger.Info("attempt completed", map[string]interface{}{"attempt_id": a.ID, "user_id": a.UserID, "score": a.Score})
	svc.publisher.Publish(ctx, core.NewEvent(core.EventAttemptCompleted, a.UserID, a.ID, map[string]interface{}{
		"test_id":      a.TestID,
		"score":        a.Score,
		"total_points": a.TotalPoints,
	}))
	return svc.result(ctx, a)
}

// SubmitResponse records the speaking/writing answer of a question for human grading.
// Re-submitting before grading replaces the content and keeps the submission PENDING.
func (svc *Service) SubmitResponse(ctx context.Context, caller authz.Caller, attemptID string, data NewSubmission) (Submission, error) {
	data.Clean()
	if err := data.checkContent(); err != nil {
		return Submission{}, err
	}

	a, t, err := svc.ownedAttempt(ctx, caller, authz.ActionAttemptRespond, attemptID)
	if err != nil {
		return Submission{}, err
	}
	if err = a.Status.require(StatusInProgress, "submit response"); err != nil {
		return Submission{}, err
	}
	if err = svc.checkNotExpired(a, "submit response"); err != nil {
		return Submission{}, err
	}

	q, _, ok := t.Question(data.QuestionID)
	if !ok {
		return Submission{}, core.NewNotFoundError("question", data.QuestionID)
	}
	if skill, ok := q.Skill(); !ok || skill != data.SkillType {
		return Submission{}, core.NewValidationError(nil, core.FieldError{Field: "skill_type", Error: "does not match the question"})
	}
	if data.SkillType == SkillWriting && isPromptCopy(data.TextAnswer, q.Prompt) {
		return Submission{}, core.NewValidationError(nil, core.FieldError{Field: "text_answer", Error: promptCopyText})
	}

	existing, err := svc.repo.QuerySubmissions(ctx, SubmissionFilter{AttemptID: a.ID})
	if err != nil {
		return Submission{}, errors.Wrap(err, "querying submissions")
	}
	from := SubmissionNew
	for _, s := range existing {
		if s.QuestionID == q.ID {
			from = s.Status
		}
	}
	status, err := from.Transition(SubmissionPending, "resubmit")
	if err != nil {
		return Submission{}, err
	}

	now := nowFunc().UTC()
	sub, err := svc.repo.UpsertSubmission(ctx, Submission{
		ID:         uuid.New().String(),
		AttemptID:  a.ID,
		UserID:     a.UserID,
		TestID:     a.TestID,
		QuestionID: q.ID,
		SkillType:  data.SkillType,
		AudioURL:   data.AudioURL,
		TextAnswer: data.TextAnswer,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		if errors.Cause(err) == ErrStatusConflict { // graded concurrently
			return Submission{}, core.NewInvalidStateError("submission", string(SubmissionGraded), "resubmit")
		}
		return Submission{}, errors.Wrap(err, "saving submission")
	}

	svc.logger.Info("submission received", map[string]interface{}{"submission_id": sub.ID, "attempt_id": a.ID, "skill": sub.SkillType})
	svc.publisher.Publish(ctx, core.NewEvent(core.EventSubmissionReceived, sub.UserID, sub.ID, map[string]interface{}{
		"attempt_id": sub.AttemptID,
		"skill_type": sub.SkillType,
		"course_id":  t.CourseID,
	}))
	return sub, nil
}

// Abandon hard-deletes an attempt in progress together with its answers.
func (svc *Service) Abandon(ctx context.Context, caller authz.Caller, attemptID string) error {
	a, _, err := svc.ownedAttempt(ctx, caller, authz.ActionAttemptAbandon, attemptID)
	if err != nil {
		return err
	}
	if _, err = a.Status.Transition(StatusAbandoned, "abandon"); err != nil {
		return err
	}

	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		return svc.repo.DeleteAttempt(ctx, a.ID)
	})
	if err != nil {
		if errors.Cause(err) == ErrStatusConflict {
			return core.NewInvalidStateError("attempt", "not "+string(StatusInProgress), "abandon")
		}
		return errors.Wrap(err, "deleting attempt")
	}

	svc.logger.Info("attempt abandoned", map[string]interface{}{"attempt_id": a.ID, "user_id": a.UserID})
	svc.publisher.Publish(ctx, core.NewEvent(core.EventAttemptAbandoned, a.UserID, a.ID, map[string]interface{}{"test_id": a.TestID}))
	return nil
}

func (svc *Service) GetAttempt(ctx context.Context, caller authz.Caller, attemptID string) (Attempt, error) {
	a, _, err := svc.ownedAttempt(ctx, caller, authz.ActionAttemptView, attemptID)
	return a, err
}

// Result returns the attempt with the grading state of its submissions.
func (svc *Service) Result(ctx context.Context, caller authz.Caller, attemptID string) (Result, error) {
	a, _, err := svc.ownedAttempt(ctx, caller, authz.ActionAttemptView, attemptID)
	if err != nil {
		return Result{}, err
	}
	return svc.result(ctx, a)
}

func (svc *Service) result(ctx context.Context, a Attempt) (Result, error) {
	subs, err := svc.repo.QuerySubmissions(ctx, SubmissionFilter{AttemptID: a.ID})
	if err != nil {
		return Result{}, errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []Submission{}
	}

	res := Result{
		AttemptID:   a.ID,
		TestID:      a.TestID,
		Status:      a.Status,
		Score:       a.Score,
		TotalPoints: a.TotalPoints,
		StartedAt:   a.StartedAt,
		CompletedAt: a.CompletedAt,
		Submissions: subs,
	}
	for _, s := range subs {
		switch s.Status {
		case SubmissionPending:
			res.PendingSubmissions++
		case SubmissionGraded:
			res.GradedSubmissions++
		}
	}
	res.AwaitingGrading = res.PendingSubmissions > 0
	res.FullyGraded = a.Status == StatusCompleted && res.PendingSubmissions == 0
	return res, nil
}

// ListAttempts returns the attempts of caller, on a single test if testID is set.
func (svc *Service) ListAttempts(ctx context.Context, caller authz.Caller, testID string) ([]Attempt, error) {
	if err := authz.Check(caller, authz.ActionAttemptView, authz.Resource{OwnerID: caller.ID}); err != nil {
		return nil, err
	}
	if testID != "" {
		if _, err := svc.repo.GetTest(ctx, testID); err != nil {
			return nil, err
		}
	}
	attempts, err := svc.repo.QueryAttempts(ctx, AttemptFilter{UserID: caller.ID, TestID: testID})
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	if attempts == nil {
		attempts = []Attempt{}
	}
	return attempts, nil
}

func (svc *Service) QueryAnswers(ctx context.Context, caller authz.Caller, attemptID string) ([]Answer, error) {
	a, _, err := svc.ownedAttempt(ctx, caller, authz.ActionAttemptView, attemptID)
	if err != nil {
		return nil, err
	}
	answers, err := svc.repo.QueryAnswers(ctx, a.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying answers")
	}
	if answers == nil {
		answers = []Answer{}
	}
	return answers, nil
}

func (svc *Service) GetAnswer(ctx context.Context, caller authz.Caller, answerID string) (Answer, error) {
	ans, err := svc.repo.GetAnswer(ctx, answerID)
	if err != nil {
		return Answer{}, err
	}
	if _, _, err = svc.ownedAttempt(ctx, caller, authz.ActionAttemptView, ans.AttemptID); err != nil {
		return Answer{}, err
	}
	return ans, nil
}

// GetTest returns a test, correct options are never serialized.
func (svc *Service) GetTest(ctx context.Context, id string) (Test, error) {
	return svc.repo.GetTest(ctx, id)
}

// CreateTest validates & saves a test tree. Trusted callers only (admin CLI, seeding).
func (svc *Service) CreateTest(ctx context.Context, t Test) (Test, error) {
	if err := t.Validate(); err != nil {
		return Test{}, err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = nowFunc().UTC()
	}
	return svc.repo.CreateTest(ctx, t)
}

// UpdateQuestion edits a question of a test. Attempts already started keep their frozen total points.
func (svc *Service) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	if !IsValidQuestionType(q.Type) {
		return Question{}, core.NewValidationError(nil, core.FieldError{Field: "type", Error: "invalid question type"})
	}
	if q.Points != nil && *q.Points < 0 {
		return Question{}, core.NewValidationError(nil, core.FieldError{Field: "points", Error: "must be positive"})
	}
	return svc.repo.UpdateQuestion(ctx, q)
}
