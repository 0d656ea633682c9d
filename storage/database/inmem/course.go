package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/authz"
	"github.com/trezcool/lingo/core/course"
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

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

// cloneCourse deep-copies the content tree of c, assigning missing ids.
func cloneCourse(c course.Course) course.Course {
	c.ID = newID(c.ID)
	units := make([]course.Unit, len(c.Units))
	for ui, u := range c.Units {
		u.ID, u.CourseID = newID(u.ID), c.ID
		lessons := make([]course.Lesson, len(u.Lessons))
		for li, l := range u.Lessons {
			l.UnitID = u.ID
			lessons[li] = cloneLesson(l, c.ID)
		}
		u.Lessons = lessons
		units[ui] = u
	}
	c.Units = units
	return c
}

func cloneLesson(l course.Lesson, courseID string) course.Lesson {
	l.ID = newID(l.ID)
	challenges := make([]course.Challenge, len(l.Challenges))
	for ci, ch := range l.Challenges {
		challenges[ci] = cloneChallenge(ch, courseID, l.ID)
	}
	l.Challenges = challenges
	return l
}

func cloneChallenge(ch course.Challenge, courseID, lessonID string) course.Challenge {
	ch.ID, ch.CourseID, ch.LessonID = newID(ch.ID), courseID, lessonID
	if ch.Points != nil {
		p := *ch.Points
		ch.Points = &p
	}
	questions := make([]course.Question, len(ch.Questions))
	for qi, q := range ch.Questions {
		q.ID, q.ChallengeID = newID(q.ID), ch.ID
		options := make([]course.Option, len(q.Options))
		for oi, o := range q.Options {
			o.ID, o.QuestionID = newID(o.ID), q.ID
			options[oi] = o
		}
		q.Options = options
		questions[qi] = q
	}
	ch.Questions = questions
	return ch
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	defer repo.db.write(ctx)()

	c = cloneCourse(c)
	repo.db.courses[c.ID] = c
	return cloneCourse(c), nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return cloneCourse(c), nil
	}
	return course.Course{}, core.NewNotFoundError("course", id)
}

func (repo *courseRepository) QueryCourses(_ context.Context) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		c.Units = nil
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].ID < courses[j].ID
		}
		return courses[i].CreatedAt.Before(courses[j].CreatedAt)
	})
	return courses, nil
}

func (repo *courseRepository) GetLesson(_ context.Context, id string) (course.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, c := range repo.db.courses {
		for _, l := range c.Lessons() {
			if l.ID == id {
				return cloneLesson(l, c.ID), nil
			}
		}
	}
	return course.Lesson{}, core.NewNotFoundError("lesson", id)
}

func (repo *courseRepository) GetChallenge(_ context.Context, id string) (course.Challenge, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, c := range repo.db.courses {
		for _, l := range c.Lessons() {
			for _, ch := range l.Challenges {
				if ch.ID == id {
					return cloneChallenge(ch, c.ID, l.ID), nil
				}
			}
		}
	}
	return course.Challenge{}, core.NewNotFoundError("challenge", id)
}

func (repo *courseRepository) GetChallengeProgress(_ context.Context, userID, challengeID string) (course.ChallengeProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cp, ok := repo.db.progress[progressKey{userID, challengeID}]; ok {
		return cp, nil
	}
	return course.ChallengeProgress{}, core.NewNotFoundError("challenge progress", challengeID)
}

func (repo *courseRepository) QueryChallengeProgress(_ context.Context, userID string, challengeIDs []string) ([]course.ChallengeProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cps := make([]course.ChallengeProgress, 0, len(challengeIDs))
	for _, id := range challengeIDs {
		if cp, ok := repo.db.progress[progressKey{userID, id}]; ok {
			cps = append(cps, cp)
		}
	}
	return cps, nil
}

func (repo *courseRepository) MarkChallengeCompleted(ctx context.Context, cp course.ChallengeProgress) (bool, error) {
	defer repo.db.write(ctx)()

	key := progressKey{cp.UserID, cp.ChallengeID}
	if existing, ok := repo.db.progress[key]; ok && existing.Completed {
		return false, nil
	}
	cp.Completed = true
	repo.db.progress[key] = cp
	return true, nil
}

func (repo *courseRepository) RecordChallengeAttempt(ctx context.Context, cp course.ChallengeProgress) error {
	defer repo.db.write(ctx)()

	key := progressKey{cp.UserID, cp.ChallengeID}
	if existing, ok := repo.db.progress[key]; ok && existing.Completed {
		return nil
	}
	cp.Completed, cp.Score = false, 0
	repo.db.progress[key] = cp
	return nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	defer repo.db.write(ctx)()

	key := pairKey{e.UserID, e.CourseID}
	if _, ok := repo.db.enrollments[key]; ok {
		return course.Enrollment{}, course.ErrAlreadyEnrolled
	}
	e.ID = newID(e.ID)
	repo.db.enrollments[key] = e
	return e, nil
}

func (repo *courseRepository) GetEnrollment(_ context.Context, userID, courseID string) (course.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if e, ok := repo.db.enrollments[pairKey{userID, courseID}]; ok {
		return e, nil
	}
	return course.Enrollment{}, core.NewNotFoundError("enrollment", courseID)
}

func (repo *courseRepository) QueryEnrollments(_ context.Context, userID string) ([]course.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for key, e := range repo.db.enrollments {
		if key.a == userID {
			enrollments = append(enrollments, e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if enrollments[i].CreatedAt.Equal(enrollments[j].CreatedAt) {
			return enrollments[i].ID < enrollments[j].ID
		}
		return enrollments[i].CreatedAt.Before(enrollments[j].CreatedAt)
	})
	return enrollments, nil
}

func (repo *courseRepository) AssignTeacher(ctx context.Context, ta course.TeacherAssignment) error {
	defer repo.db.write(ctx)()
	repo.db.assignments[pairKey{ta.TeacherID, ta.CourseID}] = true
	return nil
}

func (repo *courseRepository) QueryTeacherCourseIDs(_ context.Context, teacherID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]string, 0)
	for key := range repo.db.assignments {
		if key.a == teacherID {
			ids = append(ids, key.b)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
