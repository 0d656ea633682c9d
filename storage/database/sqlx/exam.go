package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/exam"
	"github.com/trezcool/lingo/core/scoring"
)

type (
	testRow struct {
		ID              string    `db:"id"`
		CourseID        string    `db:"course_id"`
		Title           string    `db:"title"`
		Description     string    `db:"description"`
		DurationMinutes int       `db:"duration_minutes"`
		CreatedAt       time.Time `db:"created_at"`
	}

	sectionRow struct {
		ID        string `db:"id"`
		TestID    string `db:"test_id"`
		Title     string `db:"title"`
		SkillType string `db:"skill_type"`
		Order     int    `db:"order"`
	}

	questionRow struct {
		ID        string   `db:"id"`
		SectionID string   `db:"section_id"`
		Type      string   `db:"type"`
		Prompt    string   `db:"prompt"`
		Points    null.Int `db:"points"`
		Order     int      `db:"order"`
	}

	optionRow struct {
		ID         string `db:"id"`
		QuestionID string `db:"question_id"`
		Text       string `db:"text"`
		Correct    bool   `db:"correct"`
		Order      int    `db:"order"`
	}

	attemptRow struct {
		ID          string    `db:"id"`
		UserID      string    `db:"user_id"`
		TestID      string    `db:"test_id"`
		Status      string    `db:"status"`
		TotalPoints int       `db:"total_points"`
		Score       null.Int  `db:"score"`
		StartedAt   time.Time `db:"started_at"`
		Deadline    null.Time `db:"deadline"`
		CompletedAt null.Time `db:"completed_at"`
	}

	answerRow struct {
		ID            string    `db:"id"`
		AttemptID     string    `db:"attempt_id"`
		QuestionID    string    `db:"question_id"`
		Value         string    `db:"value"`
		IsCorrect     null.Bool `db:"is_correct"`
		PointsAwarded null.Int  `db:"points_awarded"`
		CreatedAt     time.Time `db:"created_at"`
		UpdatedAt     time.Time `db:"updated_at"`
	}

	submissionRow struct {
		ID               string       `db:"id"`
		AttemptID        string       `db:"attempt_id"`
		UserID           string       `db:"user_id"`
		TestID           string       `db:"test_id"`
		QuestionID       string       `db:"question_id"`
		SkillType        string       `db:"skill_type"`
		AudioURL         string       `db:"audio_url"`
		TextAnswer       string       `db:"text_answer"`
		Status           string       `db:"status"`
		Fluency          null.Float64 `db:"fluency"`
		Pronunciation    null.Float64 `db:"pronunciation"`
		TaskAchievement  null.Float64 `db:"task_achievement"`
		Coherence        null.Float64 `db:"coherence"`
		Lexical          null.Float64 `db:"lexical"`
		Grammar          null.Float64 `db:"grammar"`
		OverallBandScore null.Float64 `db:"overall_band_score"`
		Feedback         string       `db:"feedback"`
		GradedBy         null.String  `db:"graded_by"`
		GradedAt         null.Time    `db:"graded_at"`
		CreatedAt        time.Time    `db:"created_at"`
		UpdatedAt        time.Time    `db:"updated_at"`
	}
)

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func (r attemptRow) attempt() exam.Attempt {
	return exam.Attempt{
		ID:          r.ID,
		UserID:      r.UserID,
		TestID:      r.TestID,
		Status:      exam.AttemptStatus(r.Status),
		TotalPoints: r.TotalPoints,
		Score:       r.Score.Ptr(),
		StartedAt:   r.StartedAt.UTC(),
		Deadline:    timePtr(r.Deadline),
		CompletedAt: timePtr(r.CompletedAt),
	}
}

func (r answerRow) answer() exam.Answer {
	return exam.Answer{
		ID:            r.ID,
		AttemptID:     r.AttemptID,
		QuestionID:    r.QuestionID,
		Value:         r.Value,
		IsCorrect:     r.IsCorrect.Ptr(),
		PointsAwarded: r.PointsAwarded.Ptr(),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (r submissionRow) submission() exam.Submission {
	return exam.Submission{
		ID:         r.ID,
		AttemptID:  r.AttemptID,
		UserID:     r.UserID,
		TestID:     r.TestID,
		QuestionID: r.QuestionID,
		SkillType:  r.SkillType,
		AudioURL:   r.AudioURL,
		TextAnswer: r.TextAnswer,
		Status:     exam.SubmissionStatus(r.Status),
		Criteria: scoring.Criteria{
			Fluency:         r.Fluency.Ptr(),
			Pronunciation:   r.Pronunciation.Ptr(),
			TaskAchievement: r.TaskAchievement.Ptr(),
			Coherence:       r.Coherence.Ptr(),
			Lexical:         r.Lexical.Ptr(),
			Grammar:         r.Grammar.Ptr(),
		},
		OverallBandScore: r.OverallBandScore.Ptr(),
		Feedback:         r.Feedback,
		GradedBy:         r.GradedBy.String,
		GradedAt:         timePtr(r.GradedAt),
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

const (
	testColumns       = `id, course_id, title, description, duration_minutes, created_at`
	attemptColumns    = `id, user_id, test_id, status, total_points, score, started_at, deadline, completed_at`
	answerColumns     = `id, attempt_id, question_id, value, is_correct, points_awarded, created_at, updated_at`
	submissionColumns = `id, attempt_id, user_id, test_id, question_id, skill_type, audio_url, text_answer, status, ` +
		`fluency, pronunciation, task_achievement, coherence, lexical, grammar, overall_band_score, ` +
		`feedback, graded_by, graded_at, created_at, updated_at`

	attemptInProgressIdx = "test_attempt_in_progress_idx"
)

type examRepository struct {
	db *DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) *examRepository {
	return &examRepository{db: db}
}

func (repo examRepository) CreateTest(ctx context.Context, t exam.Test) (exam.Test, error) {
	t.ID = newID(t.ID)
	err := repo.db.InTx(ctx, func(ctx context.Context) error {
		_, err := repo.db.exec(ctx,
			`INSERT INTO test (`+testColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.CourseID, t.Title, t.Description, t.DurationMinutes, t.CreatedAt.UTC(),
		)
		if err != nil {
			return errors.Wrap(err, "inserting test")
		}

		for si := range t.Sections {
			s := &t.Sections[si]
			s.ID, s.TestID = newID(s.ID), t.ID
			if _, err = repo.db.exec(ctx,
				`INSERT INTO test_section (id, test_id, title, skill_type, "order") VALUES (?, ?, ?, ?, ?)`,
				s.ID, s.TestID, s.Title, s.SkillType, s.Order,
			); err != nil {
				return errors.Wrap(err, "inserting test section")
			}

			for qi := range s.Questions {
				q := &s.Questions[qi]
				q.ID, q.SectionID = newID(q.ID), s.ID
				if _, err = repo.db.exec(ctx,
					`INSERT INTO test_question (id, section_id, type, prompt, points, "order") VALUES (?, ?, ?, ?, ?, ?)`,
					q.ID, q.SectionID, q.Type, q.Prompt, null.IntFromPtr(q.Points), q.Order,
				); err != nil {
					return errors.Wrap(err, "inserting test question")
				}
				if err = repo.insertOptions(ctx, q); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return exam.Test{}, err
	}
	return t, nil
}

func (repo examRepository) insertOptions(ctx context.Context, q *exam.Question) error {
	for oi := range q.Options {
		o := &q.Options[oi]
		o.ID, o.QuestionID = newID(o.ID), q.ID
		if _, err := repo.db.exec(ctx,
			`INSERT INTO test_option (id, question_id, text, correct, "order") VALUES (?, ?, ?, ?, ?)`,
			o.ID, o.QuestionID, o.Text, o.Correct, o.Order,
		); err != nil {
			return errors.Wrap(err, "inserting test option")
		}
	}
	return nil
}

func (repo examRepository) GetTest(ctx context.Context, id string) (exam.Test, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Test{}, core.NewNotFoundError("test", id)
	}

	var r testRow
	if err := repo.db.get(ctx, &r, `SELECT `+testColumns+` FROM test WHERE id = ?`, id); err != nil {
		return exam.Test{}, trapNoRowsErr(err, "test", id, "getting test")
	}
	t := exam.Test{
		ID:              r.ID,
		CourseID:        r.CourseID,
		Title:           r.Title,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		CreatedAt:       r.CreatedAt.UTC(),
	}

	var sections []sectionRow
	if err := repo.db.selekt(ctx, &sections, `SELECT id, test_id, title, skill_type, "order" FROM test_section WHERE test_id = ? ORDER BY "order", id`, id); err != nil {
		return exam.Test{}, errors.Wrap(err, "querying test sections")
	}
	if len(sections) == 0 {
		return t, nil
	}
	sectionIDs := make([]string, 0, len(sections))
	for _, s := range sections {
		sectionIDs = append(sectionIDs, s.ID)
	}

	var questions []questionRow
	if err := repo.db.selectIn(ctx, &questions, `SELECT id, section_id, type, prompt, points, "order" FROM test_question WHERE section_id IN (?) ORDER BY "order", id`, sectionIDs); err != nil {
		return exam.Test{}, errors.Wrap(err, "querying test questions")
	}
	var options []optionRow
	if len(questions) > 0 {
		qIDs := make([]string, 0, len(questions))
		for _, q := range questions {
			qIDs = append(qIDs, q.ID)
		}
		if err := repo.db.selectIn(ctx, &options, `SELECT id, question_id, text, correct, "order" FROM test_option WHERE question_id IN (?) ORDER BY "order", id`, qIDs); err != nil {
			return exam.Test{}, errors.Wrap(err, "querying test options")
		}
	}

	byQuestion := make(map[string][]exam.Option)
	for _, o := range options {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], exam.Option{
			ID:         o.ID,
			QuestionID: o.QuestionID,
			Text:       o.Text,
			Correct:    o.Correct,
			Order:      o.Order,
		})
	}
	bySection := make(map[string][]exam.Question)
	for _, q := range questions {
		bySection[q.SectionID] = append(bySection[q.SectionID], exam.Question{
			ID:        q.ID,
			SectionID: q.SectionID,
			Type:      q.Type,
			Prompt:    q.Prompt,
			Points:    q.Points.Ptr(),
			Order:     q.Order,
			Options:   byQuestion[q.ID],
		})
	}
	for _, s := range sections {
		t.Sections = append(t.Sections, exam.Section{
			ID:        s.ID,
			TestID:    s.TestID,
			Title:     s.Title,
			SkillType: s.SkillType,
			Order:     s.Order,
			Questions: bySection[s.ID],
		})
	}
	return t, nil
}

// UpdateQuestion saves the question fields, and replaces its options when set.
func (repo examRepository) UpdateQuestion(ctx context.Context, q exam.Question) (exam.Question, error) {
	if _, err := uuid.Parse(q.ID); err != nil {
		return exam.Question{}, core.NewNotFoundError("question", q.ID)
	}

	err := repo.db.InTx(ctx, func(ctx context.Context) error {
		var sectionID string
		err := repo.db.get(ctx, &sectionID, `
			UPDATE test_question SET type = ?, prompt = ?, points = ?, "order" = ?
			WHERE id = ?
			RETURNING section_id`,
			q.Type, q.Prompt, null.IntFromPtr(q.Points), q.Order, q.ID,
		)
		if err != nil {
			return trapNoRowsErr(err, "question", q.ID, "updating question")
		}
		q.SectionID = sectionID

		if q.Options == nil {
			return nil
		}
		if _, err = repo.db.exec(ctx, `DELETE FROM test_option WHERE question_id = ?`, q.ID); err != nil {
			return errors.Wrap(err, "deleting test options")
		}
		return repo.insertOptions(ctx, &q)
	})
	if err != nil {
		return exam.Question{}, err
	}
	return q, nil
}

func (repo examRepository) CreateAttempt(ctx context.Context, a exam.Attempt) (exam.Attempt, error) {
	a.ID = newID(a.ID)
	_, err := repo.db.exec(ctx,
		`INSERT INTO test_attempt (`+attemptColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.TestID, string(a.Status), a.TotalPoints, null.IntFromPtr(a.Score),
		a.StartedAt.UTC(), null.TimeFromPtr(a.Deadline), null.TimeFromPtr(a.CompletedAt),
	)
	if err != nil {
		if isUniqueViolation(err, attemptInProgressIdx) {
			return exam.Attempt{}, exam.ErrAttemptInProgress
		}
		return exam.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return a, nil
}

func (repo examRepository) GetAttempt(ctx context.Context, id string) (exam.Attempt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Attempt{}, core.NewNotFoundError("attempt", id)
	}
	var r attemptRow
	if err := repo.db.get(ctx, &r, `SELECT `+attemptColumns+` FROM test_attempt WHERE id = ?`, id); err != nil {
		return exam.Attempt{}, trapNoRowsErr(err, "attempt", id, "getting attempt")
	}
	return r.attempt(), nil
}

func (repo examRepository) GetInProgressAttempt(ctx context.Context, userID, testID string) (exam.Attempt, error) {
	var r attemptRow
	err := repo.db.get(ctx, &r,
		`SELECT `+attemptColumns+` FROM test_attempt WHERE user_id = ? AND test_id = ? AND status = ?`,
		userID, testID, string(exam.StatusInProgress),
	)
	if err != nil {
		return exam.Attempt{}, trapNoRowsErr(err, "attempt", testID, "getting attempt in progress")
	}
	return r.attempt(), nil
}

func (repo examRepository) QueryAttempts(ctx context.Context, filter exam.AttemptFilter) ([]exam.Attempt, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.TestID != "" {
		where = append(where, "test_id = ?")
		args = append(args, filter.TestID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	q := `SELECT ` + attemptColumns + ` FROM test_attempt`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY started_at DESC, id"

	var rows []attemptRow
	if err := repo.db.selekt(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	attempts := make([]exam.Attempt, 0, len(rows))
	for _, r := range rows {
		attempts = append(attempts, r.attempt())
	}
	return attempts, nil
}

// conflictOrNotFound tells apart an attempt that is not IN_PROGRESS anymore from an unknown one.
func (repo examRepository) conflictOrNotFound(ctx context.Context, id string) error {
	if _, err := repo.GetAttempt(ctx, id); err != nil {
		return err
	}
	return exam.ErrStatusConflict
}

func (repo examRepository) CompleteAttempt(ctx context.Context, id string, score int, completedAt time.Time) (exam.Attempt, error) {
	var r attemptRow
	err := repo.db.get(ctx, &r, `
		UPDATE test_attempt SET status = ?, score = ?, completed_at = ?
		WHERE id = ? AND status = ?
		RETURNING `+attemptColumns,
		string(exam.StatusCompleted), score, completedAt.UTC(), id, string(exam.StatusInProgress),
	)
	if err != nil {
		if core.IsNotFound(trapNoRowsErr(err, "attempt", id, "")) {
			return exam.Attempt{}, repo.conflictOrNotFound(ctx, id)
		}
		return exam.Attempt{}, errors.Wrap(err, "completing attempt")
	}
	return r.attempt(), nil
}

func (repo examRepository) DeleteAttempt(ctx context.Context, id string) error {
	return repo.db.InTx(ctx, func(ctx context.Context) error {
		var status string
		err := repo.db.get(ctx, &status, `SELECT status FROM test_attempt WHERE id = ? FOR UPDATE`, id)
		if err != nil {
			return trapNoRowsErr(err, "attempt", id, "locking attempt")
		}
		if status != string(exam.StatusInProgress) {
			return exam.ErrStatusConflict
		}

		if _, err = repo.db.exec(ctx, `DELETE FROM test_answer WHERE attempt_id = ?`, id); err != nil {
			return errors.Wrap(err, "deleting answers")
		}
		if _, err = repo.db.exec(ctx, `DELETE FROM test_submission WHERE attempt_id = ?`, id); err != nil {
			return errors.Wrap(err, "deleting submissions")
		}
		if _, err = repo.db.exec(ctx, `DELETE FROM test_attempt WHERE id = ?`, id); err != nil {
			return errors.Wrap(err, "deleting attempt")
		}
		return nil
	})
}

// UpsertAnswer only writes while the attempt is IN_PROGRESS, ErrStatusConflict otherwise.
func (repo examRepository) UpsertAnswer(ctx context.Context, ans exam.Answer) (exam.Answer, error) {
	ans.ID = newID(ans.ID)
	var r answerRow
	err := repo.db.get(ctx, &r, `
		INSERT INTO test_answer (id, attempt_id, question_id, value, created_at, updated_at)
		SELECT ?::uuid, ?::uuid, ?::uuid, ?::text, ?::timestamptz, ?::timestamptz
		WHERE EXISTS (SELECT 1 FROM test_attempt WHERE id = ? AND status = ?)
		ON CONFLICT (attempt_id, question_id) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		RETURNING `+answerColumns,
		ans.ID, ans.AttemptID, ans.QuestionID, ans.Value, ans.CreatedAt.UTC(), ans.UpdatedAt.UTC(),
		ans.AttemptID, string(exam.StatusInProgress),
	)
	if err != nil {
		if core.IsNotFound(trapNoRowsErr(err, "attempt", ans.AttemptID, "")) {
			return exam.Answer{}, repo.conflictOrNotFound(ctx, ans.AttemptID)
		}
		return exam.Answer{}, errors.Wrap(err, "upserting answer")
	}
	return r.answer(), nil
}

func (repo examRepository) GetAnswer(ctx context.Context, id string) (exam.Answer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Answer{}, core.NewNotFoundError("answer", id)
	}
	var r answerRow
	if err := repo.db.get(ctx, &r, `SELECT `+answerColumns+` FROM test_answer WHERE id = ?`, id); err != nil {
		return exam.Answer{}, trapNoRowsErr(err, "answer", id, "getting answer")
	}
	return r.answer(), nil
}

func (repo examRepository) QueryAnswers(ctx context.Context, attemptID string) ([]exam.Answer, error) {
	var rows []answerRow
	err := repo.db.selekt(ctx, &rows,
		`SELECT `+answerColumns+` FROM test_answer WHERE attempt_id = ? ORDER BY created_at, id`,
		attemptID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying answers")
	}
	answers := make([]exam.Answer, 0, len(rows))
	for _, r := range rows {
		answers = append(answers, r.answer())
	}
	return answers, nil
}

func (repo examRepository) UpdateAnswerScores(ctx context.Context, answers []exam.Answer) error {
	for _, ans := range answers {
		_, err := repo.db.exec(ctx,
			`UPDATE test_answer SET is_correct = ?, points_awarded = ? WHERE id = ?`,
			null.BoolFromPtr(ans.IsCorrect), null.IntFromPtr(ans.PointsAwarded), ans.ID,
		)
		if err != nil {
			return errors.Wrap(err, "updating answer score")
		}
	}
	return nil
}

// UpsertSubmission only writes while the attempt is IN_PROGRESS and the existing submission PENDING,
// ErrStatusConflict otherwise.
func (repo examRepository) UpsertSubmission(ctx context.Context, sub exam.Submission) (exam.Submission, error) {
	sub.ID = newID(sub.ID)
	var r submissionRow
	err := repo.db.get(ctx, &r, `
		INSERT INTO test_submission (id, attempt_id, user_id, test_id, question_id, skill_type, audio_url, text_answer, status, created_at, updated_at)
		SELECT ?::uuid, ?::uuid, ?::varchar, ?::uuid, ?::uuid, ?::varchar, ?::varchar, ?::text, ?::varchar, ?::timestamptz, ?::timestamptz
		WHERE EXISTS (SELECT 1 FROM test_attempt WHERE id = ? AND status = ?)
		ON CONFLICT (attempt_id, question_id) DO UPDATE
		SET audio_url = EXCLUDED.audio_url, text_answer = EXCLUDED.text_answer,
		    status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		WHERE test_submission.status = ?
		RETURNING `+submissionColumns,
		sub.ID, sub.AttemptID, sub.UserID, sub.TestID, sub.QuestionID, sub.SkillType, sub.AudioURL, sub.TextAnswer,
		string(sub.Status), sub.CreatedAt.UTC(), sub.UpdatedAt.UTC(),
		sub.AttemptID, string(exam.StatusInProgress),
		string(exam.SubmissionPending),
	)
	if err != nil {
		if core.IsNotFound(trapNoRowsErr(err, "attempt", sub.AttemptID, "")) {
			return exam.Submission{}, repo.conflictOrNotFound(ctx, sub.AttemptID)
		}
		return exam.Submission{}, errors.Wrap(err, "upserting submission")
	}
	return r.submission(), nil
}

func (repo examRepository) GetSubmission(ctx context.Context, id string) (exam.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Submission{}, core.NewNotFoundError("submission", id)
	}
	var r submissionRow
	if err := repo.db.get(ctx, &r, `SELECT `+submissionColumns+` FROM test_submission WHERE id = ?`, id); err != nil {
		return exam.Submission{}, trapNoRowsErr(err, "submission", id, "getting submission")
	}
	return r.submission(), nil
}

func (repo examRepository) QuerySubmissions(ctx context.Context, filter exam.SubmissionFilter) ([]exam.Submission, error) {
	if filter.CourseIDs != nil && len(filter.CourseIDs) == 0 {
		return []exam.Submission{}, nil
	}

	var (
		where []string
		args  []interface{}
	)
	if filter.AttemptID != "" {
		where = append(where, "attempt_id = ?")
		args = append(args, filter.AttemptID)
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.SkillType != "" {
		where = append(where, "skill_type = ?")
		args = append(args, filter.SkillType)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.CourseIDs != nil {
		where = append(where, "test_id IN (SELECT id FROM test WHERE course_id IN (?))")
		args = append(args, filter.CourseIDs)
	}

	q := `SELECT ` + submissionColumns + ` FROM test_submission`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, id"

	var rows []submissionRow
	if err := repo.db.selectIn(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]exam.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.submission())
	}
	return subs, nil
}

func (repo examRepository) GradeSubmission(ctx context.Context, sub exam.Submission) (exam.Submission, error) {
	c := sub.Criteria
	var r submissionRow
	err := repo.db.get(ctx, &r, `
		UPDATE test_submission
		SET status = ?, fluency = ?, pronunciation = ?, task_achievement = ?, coherence = ?, lexical = ?, grammar = ?,
		    overall_band_score = ?, feedback = ?, graded_by = ?, graded_at = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+submissionColumns,
		string(sub.Status),
		null.Float64FromPtr(c.Fluency), null.Float64FromPtr(c.Pronunciation), null.Float64FromPtr(c.TaskAchievement),
		null.Float64FromPtr(c.Coherence), null.Float64FromPtr(c.Lexical), null.Float64FromPtr(c.Grammar),
		null.Float64FromPtr(sub.OverallBandScore), sub.Feedback, null.NewString(sub.GradedBy, sub.GradedBy != ""),
		null.TimeFromPtr(sub.GradedAt), sub.UpdatedAt.UTC(),
		sub.ID,
	)
	if err != nil {
		return exam.Submission{}, trapNoRowsErr(err, "submission", sub.ID, "grading submission")
	}
	return r.submission(), nil
}
