package course

import (
	"time"

	"github.com/trezcool/lingo/core/scoring"
)

// Enrollment types & statuses
const (
	EnrollmentFree = "FREE"
	EnrollmentPaid = "PAID"

	EnrollmentActive    = "ACTIVE"
	EnrollmentCancelled = "CANCELLED"
)

type (
	// Course is the root of the Course -> Unit -> Lesson -> Challenge -> Question -> Option hierarchy.
	// Order fields are for display only.
	Course struct {
		ID             string    `json:"id"`
		Title          string    `json:"title"`
		Description    string    `json:"description"`
		ImageURL       string    `json:"image_url"`
		EnrollmentType string    `json:"enrollment_type"`
		Units          []Unit    `json:"units,omitempty"`
		CreatedAt      time.Time `json:"created_at"`
	}

	Unit struct {
		ID          string   `json:"id"`
		CourseID    string   `json:"course_id"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Order       int      `json:"order"`
		Lessons     []Lesson `json:"lessons,omitempty"`
	}

	Lesson struct {
		ID         string      `json:"id"`
		UnitID     string      `json:"unit_id"`
		Title      string      `json:"title"`
		Order      int         `json:"order"`
		Challenges []Challenge `json:"challenges,omitempty"`
	}

	// Challenge is the smallest gradable unit of course content.
	// A Challenge without options carries its prompt itself and any submission completes it.
	Challenge struct {
		ID        string     `json:"id"`
		LessonID  string     `json:"lesson_id"`
		CourseID  string     `json:"course_id"` // denormalized on read
		Type      string     `json:"type"`
		Prompt    string     `json:"prompt"`
		Points    *int       `json:"points,omitempty"`
		Order     int        `json:"order"`
		Questions []Question `json:"questions,omitempty"`
	}

	Question struct {
		ID          string   `json:"id"`
		ChallengeID string   `json:"challenge_id"`
		Text        string   `json:"text"`
		Order       int      `json:"order"`
		Options     []Option `json:"options,omitempty"`
	}

	Option struct {
		ID         string `json:"id"`
		QuestionID string `json:"question_id"`
		Text       string `json:"text"`
		Correct    bool   `json:"-"`
		ImageURL   string `json:"image_url,omitempty"`
		AudioURL   string `json:"audio_url,omitempty"`
	}

	// ChallengeProgress is unique per (UserID, ChallengeID).
	ChallengeProgress struct {
		UserID      string    `json:"user_id"`
		ChallengeID string    `json:"challenge_id"`
		Completed   bool      `json:"completed"`
		Score       int       `json:"score"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	// Enrollment is unique per (UserID, CourseID). Progress is derived on read.
	Enrollment struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		CourseID  string    `json:"course_id"`
		Type      string    `json:"enrollment_type"`
		Status    string    `json:"status"`
		Progress  int       `json:"progress"`
		CreatedAt time.Time `json:"created_at"`
	}

	TeacherAssignment struct {
		TeacherID string `json:"teacher_id"`
		CourseID  string `json:"course_id"`
	}
)

func (e Enrollment) IsActive() bool { return e.Status == EnrollmentActive }

func (ch Challenge) options() []Option {
	var opts []Option
	for _, q := range ch.Questions {
		opts = append(opts, q.Options...)
	}
	return opts
}

func (ch Challenge) CorrectOptionIDs() []string {
	var ids []string
	for _, o := range ch.options() {
		if o.Correct {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// IsCorrect checks the selected options against the correct ones of every question of the challenge.
func (ch Challenge) IsCorrect(optionIDs []string) bool {
	if len(ch.options()) == 0 {
		return true
	}
	return scoring.IsCorrect(optionIDs, ch.CorrectOptionIDs())
}

func (ch Challenge) PointsWorth() int {
	return scoring.PointsForChallenge(ch.Points, ch.Type)
}

// Lessons returns every lesson of the course, in units order.
func (c Course) Lessons() []Lesson {
	var lessons []Lesson
	for _, u := range c.Units {
		lessons = append(lessons, u.Lessons...)
	}
	return lessons
}

func (l Lesson) ChallengeIDs() []string {
	ids := make([]string, 0, len(l.Challenges))
	for _, ch := range l.Challenges {
		ids = append(ids, ch.ID)
	}
	return ids
}

type (
	CompleteChallenge struct {
		OptionIDs []string `json:"option_ids"`
	}

	// CompletionResult is the outcome of a challenge submission.
	// Practice is set when the challenge was already completed: nothing was mutated.
	CompletionResult struct {
		ChallengeID     string `json:"challenge_id"`
		Correct         bool   `json:"correct"`
		Practice        bool   `json:"practice"`
		PointsAwarded   int    `json:"points_awarded"`
		UserPoints      int    `json:"user_points"`
		LessonCompleted bool   `json:"lesson_completed"`
	}

	LessonProgress struct {
		LessonID            string `json:"lesson_id"`
		UnitID              string `json:"unit_id"`
		Title               string `json:"title"`
		TotalChallenges     int    `json:"total_challenges"`
		CompletedChallenges int    `json:"completed_challenges"`
		Completed           bool   `json:"completed"`
	}

	Progress struct {
		CourseID         string           `json:"course_id"`
		UserID           string           `json:"user_id"`
		TotalLessons     int              `json:"total_lessons"`
		CompletedLessons int              `json:"completed_lessons"`
		Percentage       int              `json:"percentage"`
		Lessons          []LessonProgress `json:"lessons"`
	}
)
