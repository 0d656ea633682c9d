package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/authz"
	"github.com/trezcool/lingo/core/course"
)

type (
	courseRow struct {
		ID             string    `db:"id"`
		Title          string    `db:"title"`
		Description    string    `db:"description"`
		ImageURL       string    `db:"image_url"`
		EnrollmentType string    `db:"enrollment_type"`
		CreatedAt      time.Time `db:"created_at"`
	}

	unitRow struct {
		ID          string `db:"id"`
		CourseID    string `db:"course_id"`
		Title       string `db:"title"`
		Description string `db:"description"`
		Order       int    `db:"order"`
	}

	lessonRow struct {
		ID     string `db:"id"`
		UnitID string `db:"unit_id"`
		Title  string `db:"title"`
		Order  int    `db:"order"`
	}

	challengeRow struct {
		ID       string   `db:"id"`
		LessonID string   `db:"lesson_id"`
		CourseID string   `db:"course_id"`
		Type     string   `db:"type"`
		Prompt   string   `db:"prompt"`
		Points   null.Int `db:"points"`
		Order    int      `db:"order"`
	}

	challengeQuestionRow struct {
		ID          string `db:"id"`
		ChallengeID string `db:"challenge_id"`
		Text        string `db:"text"`
		Order       int    `db:"order"`
	}

	challengeOptionRow struct {
		ID         string `db:"id"`
		QuestionID string `db:"question_id"`
		Text       string `db:"text"`
		Correct    bool   `db:"correct"`
		ImageURL   string `db:"image_url"`
		AudioURL   string `db:"audio_url"`
	}

	progressRow struct {
		UserID      string    `db:"user_id"`
		ChallengeID string    `db:"challenge_id"`
		Completed   bool      `db:"completed"`
		Score       int       `db:"score"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	enrollmentRow struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		CourseID  string    `db:"course_id"`
		Type      string    `db:"type"`
		Status    string    `db:"status"`
		CreatedAt time.Time `db:"created_at"`
	}
)

func (r courseRow) course() course.Course {
	return course.Course{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		ImageURL:       r.ImageURL,
		EnrollmentType: r.EnrollmentType,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

func (r challengeRow) challenge() course.Challenge {
	return course.Challenge{
		ID:       r.ID,
		LessonID: r.LessonID,
		CourseID: r.CourseID,
		Type:     r.Type,
		Prompt:   r.Prompt,
		Points:   r.Points.Ptr(),
		Order:    r.Order,
	}
}

func (r progressRow) progress() course.ChallengeProgress {
	return course.ChallengeProgress{
		UserID:      r.UserID,
		ChallengeID: r.ChallengeID,
		Completed:   r.Completed,
		Score:       r.Score,
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (r enrollmentRow) enrollment() course.Enrollment {
	return course.Enrollment{
		ID:        r.ID,
		UserID:    r.UserID,
		CourseID:  r.CourseID,
		Type:      r.Type,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

const (
	courseColumns     = `id, title, description, image_url, enrollment_type, created_at`
	challengeSelect   = `SELECT ch.id, ch.lesson_id, u.course_id, ch.type, ch.prompt, ch.points, ch."order" FROM challenge ch JOIN lesson l ON l.id = ch.lesson_id JOIN unit u ON u.id = l.unit_id`
	progressColumns   = `user_id, challenge_id, completed, score, updated_at`
	enrollmentColumns = `id, user_id, course_id, type, status, created_at`
)

type courseRepository struct {
	db *DB
}

var (
	_ course.Repository      = (*courseRepository)(nil) // interface compliance check
	_ authz.AssignmentSource = (*courseRepository)(nil)
)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = newID(c.ID)
	err := repo.db.InTx(ctx, func(ctx context.Context) error {
		_, err := repo.db.exec(ctx,
			`INSERT INTO course (`+courseColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.Title, c.Description, c.ImageURL, c.EnrollmentType, c.CreatedAt.UTC(),
		)
		if err != nil {
			return errors.Wrap(err, "inserting course")
		}

		for ui := range c.Units {
			u := &c.Units[ui]
			u.ID, u.CourseID = newID(u.ID), c.ID
			if _, err = repo.db.exec(ctx,
				`INSERT INTO unit (id, course_id, title, description, "order") VALUES (?, ?, ?, ?, ?)`,
				u.ID, u.CourseID, u.Title, u.Description, u.Order,
			); err != nil {
				return errors.Wrap(err, "inserting unit")
			}

			for li := range u.Lessons {
				l := &u.Lessons[li]
				l.ID, l.UnitID = newID(l.ID), u.ID
				if _, err = repo.db.exec(ctx,
					`INSERT INTO lesson (id, unit_id, title, "order") VALUES (?, ?, ?, ?)`,
					l.ID, l.UnitID, l.Title, l.Order,
				); err != nil {
					return errors.Wrap(err, "inserting lesson")
				}

				for ci := range l.Challenges {
					if err = repo.createChallenge(ctx, c.ID, l.ID, &l.Challenges[ci]); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (repo courseRepository) createChallenge(ctx context.Context, courseID, lessonID string, ch *course.Challenge) error {
	ch.ID, ch.LessonID, ch.CourseID = newID(ch.ID), lessonID, courseID
	if _, err := repo.db.exec(ctx,
		`INSERT INTO challenge (id, lesson_id, type, prompt, points, "order") VALUES (?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.LessonID, ch.Type, ch.Prompt, null.IntFromPtr(ch.Points), ch.Order,
	); err != nil {
		return errors.Wrap(err, "inserting challenge")
	}

	for qi := range ch.Questions {
		q := &ch.Questions[qi]
		q.ID, q.ChallengeID = newID(q.ID), ch.ID
		if _, err := repo.db.exec(ctx,
			`INSERT INTO challenge_question (id, challenge_id, text, "order") VALUES (?, ?, ?, ?)`,
			q.ID, q.ChallengeID, q.Text, q.Order,
		); err != nil {
			return errors.Wrap(err, "inserting challenge question")
		}

		for oi := range q.Options {
			o := &q.Options[oi]
			o.ID, o.QuestionID = newID(o.ID), q.ID
			if _, err := repo.db.exec(ctx,
				`INSERT INTO challenge_option (id, question_id, text, correct, image_url, audio_url) VALUES (?, ?, ?, ?, ?, ?)`,
				o.ID, o.QuestionID, o.Text, o.Correct, o.ImageURL, o.AudioURL,
			); err != nil {
				return errors.Wrap(err, "inserting challenge option")
			}
		}
	}
	return nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, core.NewNotFoundError("course", id)
	}

	var r courseRow
	if err := repo.db.get(ctx, &r, `SELECT `+courseColumns+` FROM course WHERE id = ?`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, "course", id, "getting course")
	}
	c := r.course()

	var units []unitRow
	if err := repo.db.selekt(ctx, &units, `SELECT id, course_id, title, description, "order" FROM unit WHERE course_id = ? ORDER BY "order", id`, id); err != nil {
		return course.Course{}, errors.Wrap(err, "querying units")
	}
	if len(units) == 0 {
		return c, nil
	}
	unitIDs := make([]string, 0, len(units))
	for _, u := range units {
		unitIDs = append(unitIDs, u.ID)
	}

	var lessons []lessonRow
	if err := repo.db.selectIn(ctx, &lessons, `SELECT id, unit_id, title, "order" FROM lesson WHERE unit_id IN (?) ORDER BY "order", id`, unitIDs); err != nil {
		return course.Course{}, errors.Wrap(err, "querying lessons")
	}
	lessonIDs := make([]string, 0, len(lessons))
	for _, l := range lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}
	challenges, err := repo.queryChallenges(ctx, `l.id IN (?)`, lessonIDs)
	if err != nil {
		return course.Course{}, err
	}

	byLesson := make(map[string][]course.Challenge)
	for _, ch := range challenges {
		byLesson[ch.LessonID] = append(byLesson[ch.LessonID], ch)
	}
	byUnit := make(map[string][]course.Lesson)
	for _, l := range lessons {
		byUnit[l.UnitID] = append(byUnit[l.UnitID], course.Lesson{
			ID:         l.ID,
			UnitID:     l.UnitID,
			Title:      l.Title,
			Order:      l.Order,
			Challenges: byLesson[l.ID],
		})
	}
	for _, u := range units {
		c.Units = append(c.Units, course.Unit{
			ID:          u.ID,
			CourseID:    u.CourseID,
			Title:       u.Title,
			Description: u.Description,
			Order:       u.Order,
			Lessons:     byUnit[u.ID],
		})
	}
	return c, nil
}

// queryChallenges loads the challenges matching cond (with a slice arg) along with their questions & options.
func (repo courseRepository) queryChallenges(ctx context.Context, cond string, arg []string) ([]course.Challenge, error) {
	if len(arg) == 0 {
		return nil, nil
	}

	var rows []challengeRow
	if err := repo.db.selectIn(ctx, &rows, challengeSelect+` WHERE `+cond+` ORDER BY ch."order", ch.id`, arg); err != nil {
		return nil, errors.Wrap(err, "querying challenges")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	chIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		chIDs = append(chIDs, r.ID)
	}

	var questions []challengeQuestionRow
	if err := repo.db.selectIn(ctx, &questions, `SELECT id, challenge_id, text, "order" FROM challenge_question WHERE challenge_id IN (?) ORDER BY "order", id`, chIDs); err != nil {
		return nil, errors.Wrap(err, "querying challenge questions")
	}
	var options []challengeOptionRow
	if len(questions) > 0 {
		qIDs := make([]string, 0, len(questions))
		for _, q := range questions {
			qIDs = append(qIDs, q.ID)
		}
		if err := repo.db.selectIn(ctx, &options, `SELECT id, question_id, text, correct, image_url, audio_url FROM challenge_option WHERE question_id IN (?) ORDER BY id`, qIDs); err != nil {
			return nil, errors.Wrap(err, "querying challenge options")
		}
	}

	byQuestion := make(map[string][]course.Option)
	for _, o := range options {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], course.Option{
			ID:         o.ID,
			QuestionID: o.QuestionID,
			Text:       o.Text,
			Correct:    o.Correct,
			ImageURL:   o.ImageURL,
			AudioURL:   o.AudioURL,
		})
	}
	byChallenge := make(map[string][]course.Question)
	for _, q := range questions {
		byChallenge[q.ChallengeID] = append(byChallenge[q.ChallengeID], course.Question{
			ID:          q.ID,
			ChallengeID: q.ChallengeID,
			Text:        q.Text,
			Order:       q.Order,
			Options:     byQuestion[q.ID],
		})
	}

	challenges := make([]course.Challenge, 0, len(rows))
	for _, r := range rows {
		ch := r.challenge()
		ch.Questions = byChallenge[ch.ID]
		challenges = append(challenges, ch)
	}
	return challenges, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.selekt(ctx, &rows, `SELECT `+courseColumns+` FROM course ORDER BY created_at, id`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo courseRepository) GetLesson(ctx context.Context, id string) (course.Lesson, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Lesson{}, core.NewNotFoundError("lesson", id)
	}

	var r lessonRow
	if err := repo.db.get(ctx, &r, `SELECT id, unit_id, title, "order" FROM lesson WHERE id = ?`, id); err != nil {
		return course.Lesson{}, trapNoRowsErr(err, "lesson", id, "getting lesson")
	}
	challenges, err := repo.queryChallenges(ctx, `ch.lesson_id IN (?)`, []string{id})
	if err != nil {
		return course.Lesson{}, err
	}
	return course.Lesson{ID: r.ID, UnitID: r.UnitID, Title: r.Title, Order: r.Order, Challenges: challenges}, nil
}

func (repo courseRepository) GetChallenge(ctx context.Context, id string) (course.Challenge, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Challenge{}, core.NewNotFoundError("challenge", id)
	}

	challenges, err := repo.queryChallenges(ctx, `ch.id IN (?)`, []string{id})
	if err != nil {
		return course.Challenge{}, err
	}
	if len(challenges) == 0 {
		return course.Challenge{}, core.NewNotFoundError("challenge", id)
	}
	return challenges[0], nil
}

func (repo courseRepository) GetChallengeProgress(ctx context.Context, userID, challengeID string) (course.ChallengeProgress, error) {
	var r progressRow
	err := repo.db.get(ctx, &r,
		`SELECT `+progressColumns+` FROM challenge_progress WHERE user_id = ? AND challenge_id = ?`,
		userID, challengeID,
	)
	if err != nil {
		return course.ChallengeProgress{}, trapNoRowsErr(err, "challenge progress", challengeID, "getting challenge progress")
	}
	return r.progress(), nil
}

func (repo courseRepository) QueryChallengeProgress(ctx context.Context, userID string, challengeIDs []string) ([]course.ChallengeProgress, error) {
	if len(challengeIDs) == 0 {
		return []course.ChallengeProgress{}, nil
	}
	var rows []progressRow
	err := repo.db.selectIn(ctx, &rows,
		`SELECT `+progressColumns+` FROM challenge_progress WHERE user_id = ? AND challenge_id IN (?)`,
		userID, challengeIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying challenge progress")
	}
	cps := make([]course.ChallengeProgress, 0, len(rows))
	for _, r := range rows {
		cps = append(cps, r.progress())
	}
	return cps, nil
}

func (repo courseRepository) MarkChallengeCompleted(ctx context.Context, cp course.ChallengeProgress) (bool, error) {
	// an already completed progress is left untouched
	res, err := repo.db.exec(ctx, `
		INSERT INTO challenge_progress (`+progressColumns+`)
		VALUES (?, ?, TRUE, ?, ?)
		ON CONFLICT (user_id, challenge_id) DO UPDATE
		SET completed = TRUE, score = EXCLUDED.score, updated_at = EXCLUDED.updated_at
		WHERE challenge_progress.completed = FALSE`,
		cp.UserID, cp.ChallengeID, cp.Score, cp.UpdatedAt.UTC(),
	)
	if err != nil {
		return false, errors.Wrap(err, "upserting challenge progress")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "upserting challenge progress")
	}
	return n == 1, nil
}

func (repo courseRepository) RecordChallengeAttempt(ctx context.Context, cp course.ChallengeProgress) error {
	_, err := repo.db.exec(ctx, `
		INSERT INTO challenge_progress (`+progressColumns+`)
		VALUES (?, ?, FALSE, 0, ?)
		ON CONFLICT (user_id, challenge_id) DO UPDATE
		SET updated_at = EXCLUDED.updated_at
		WHERE challenge_progress.completed = FALSE`,
		cp.UserID, cp.ChallengeID, cp.UpdatedAt.UTC(),
	)
	return errors.Wrap(err, "upserting challenge attempt")
}

func (repo courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	e.ID = newID(e.ID)
	_, err := repo.db.exec(ctx,
		`INSERT INTO enrollment (`+enrollmentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.CourseID, e.Type, e.Status, e.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo courseRepository) GetEnrollment(ctx context.Context, userID, courseID string) (course.Enrollment, error) {
	var r enrollmentRow
	err := repo.db.get(ctx, &r,
		`SELECT `+enrollmentColumns+` FROM enrollment WHERE user_id = ? AND course_id = ?`,
		userID, courseID,
	)
	if err != nil {
		return course.Enrollment{}, trapNoRowsErr(err, "enrollment", courseID, "getting enrollment")
	}
	return r.enrollment(), nil
}

func (repo courseRepository) QueryEnrollments(ctx context.Context, userID string) ([]course.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.selekt(ctx, &rows,
		`SELECT `+enrollmentColumns+` FROM enrollment WHERE user_id = ? ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]course.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, r.enrollment())
	}
	return enrollments, nil
}

func (repo courseRepository) AssignTeacher(ctx context.Context, ta course.TeacherAssignment) error {
	_, err := repo.db.exec(ctx,
		`INSERT INTO teacher_assignment (teacher_id, course_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		ta.TeacherID, ta.CourseID,
	)
	return errors.Wrap(err, "inserting teacher assignment")
}

func (repo courseRepository) QueryTeacherCourseIDs(ctx context.Context, teacherID string) ([]string, error) {
	ids := []string{}
	err := repo.db.selekt(ctx, &ids, `SELECT course_id FROM teacher_assignment WHERE teacher_id = ? ORDER BY course_id`, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher assignments")
	}
	return ids, nil
}
