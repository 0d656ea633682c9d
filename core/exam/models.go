package exam

import (
	"strings"
	"time"

	"github.com/trezcool/lingo/core/scoring"
)

// Skill types
const (
	SkillListening = "LISTENING"
	SkillReading   = "READING"
	SkillWriting   = scoring.SkillWriting
	SkillSpeaking  = scoring.SkillSpeaking
)

// Question types
const (
	QuestionSingleChoice   = "SINGLE_CHOICE"
	QuestionMultipleChoice = "MULTIPLE_CHOICE"
	QuestionFillBlank      = "FILL_BLANK"
	QuestionEssay          = "ESSAY"     // WRITING
	QuestionRecording      = "RECORDING" // SPEAKING
)

var (
	AllSkills = []string{SkillListening, SkillReading, SkillWriting, SkillSpeaking}

	objectiveQuestions = map[string]bool{
		QuestionSingleChoice:   true,
		QuestionMultipleChoice: true,
		QuestionFillBlank:      true,
	}
	// subjectiveQuestions maps each human graded question type to its skill.
	subjectiveQuestions = map[string]string{
		QuestionEssay:     SkillWriting,
		QuestionRecording: SkillSpeaking,
	}
)

func IsValidSkill(skill string) bool {
	for _, s := range AllSkills {
		if s == skill {
			return true
		}
	}
	return false
}

func IsValidQuestionType(typ string) bool {
	_, subjective := subjectiveQuestions[typ]
	return objectiveQuestions[typ] || subjective
}

type (
	// Test is the root of the Test -> Section -> Question -> Option hierarchy.
	Test struct {
		ID              string    `json:"id"`
		CourseID        string    `json:"course_id"`
		Title           string    `json:"title"`
		Description     string    `json:"description"`
		DurationMinutes int       `json:"duration_minutes"`
		Sections        []Section `json:"sections,omitempty"`
		CreatedAt       time.Time `json:"created_at"`
	}

	Section struct {
		ID        string     `json:"id"`
		TestID    string     `json:"test_id"`
		Title     string     `json:"title"`
		SkillType string     `json:"skill_type"`
		Order     int        `json:"order"`
		Questions []Question `json:"questions,omitempty"`
	}

	Question struct {
		ID        string   `json:"id"`
		SectionID string   `json:"section_id"`
		Type      string   `json:"type"`
		Prompt    string   `json:"prompt"`
		Points    *int     `json:"points,omitempty"`
		Order     int      `json:"order"`
		Options   []Option `json:"options,omitempty"`
	}

	Option struct {
		ID         string `json:"id"`
		QuestionID string `json:"question_id"`
		Text       string `json:"text"`
		Correct    bool   `json:"-"`
		Order      int    `json:"order"`
	}

	// Attempt is one instance of a user taking a test.
	// TotalPoints & Deadline are frozen when it starts, later test edits do not change them.
	Attempt struct {
		ID          string        `json:"id"`
		UserID      string        `json:"user_id"`
		TestID      string        `json:"test_id"`
		Status      AttemptStatus `json:"status"`
		TotalPoints int           `json:"total_points"`
		Score       *int          `json:"score"`
		StartedAt   time.Time     `json:"started_at"`
		Deadline    *time.Time    `json:"deadline,omitempty"`
		CompletedAt *time.Time    `json:"completed_at"`
	}

	// Answer is unique per (AttemptID, QuestionID). Scores are set when the attempt is submitted.
	// Value is an option id, comma separated option ids (MULTIPLE_CHOICE) or free text (FILL_BLANK).
	Answer struct {
		ID            string    `json:"id"`
		AttemptID     string    `json:"attempt_id"`
		QuestionID    string    `json:"question_id"`
		Value         string    `json:"value"`
		IsCorrect     *bool     `json:"is_correct,omitempty"`
		PointsAwarded *int      `json:"points_awarded,omitempty"`
		CreatedAt     time.Time `json:"created_at"`
		UpdatedAt     time.Time `json:"updated_at"`
	}

	// Submission is a speaking/writing answer awaiting or having received human grading.
	// It is unique per (AttemptID, QuestionID).
	Submission struct {
		ID               string           `json:"id"`
		AttemptID        string           `json:"attempt_id"`
		UserID           string           `json:"user_id"`
		TestID           string           `json:"test_id"`
		QuestionID       string           `json:"question_id"`
		SkillType        string           `json:"skill_type"`
		AudioURL         string           `json:"audio_url,omitempty"`
		TextAnswer       string           `json:"text_answer,omitempty"`
		Status           SubmissionStatus `json:"status"`
		Criteria         scoring.Criteria `json:"criteria"`
		OverallBandScore *float64         `json:"overall_band_score"`
		Feedback         string           `json:"feedback"`
		GradedBy         string           `json:"graded_by,omitempty"`
		GradedAt         *time.Time       `json:"graded_at"`
		CreatedAt        time.Time        `json:"created_at"`
		UpdatedAt        time.Time        `json:"updated_at"`
	}
)

func (q Question) IsObjective() bool { return objectiveQuestions[q.Type] }

// Skill returns the skill a subjective question is graded for.
func (q Question) Skill() (string, bool) {
	skill, ok := subjectiveQuestions[q.Type]
	return skill, ok
}

func (q Question) correctOptions() (ids, texts []string) {
	for _, o := range q.Options {
		if o.Correct {
			ids = append(ids, o.ID)
			texts = append(texts, o.Text)
		}
	}
	return ids, texts
}

// Score checks an answer value and returns whether it is correct and the points it earns.
func (q Question) Score(value string) (bool, int) {
	ids, texts := q.correctOptions()

	var correct bool
	switch q.Type {
	case QuestionSingleChoice:
		correct = scoring.IsCorrect([]string{strings.TrimSpace(value)}, ids)
	case QuestionMultipleChoice:
		correct = scoring.IsCorrect(strings.Split(value, ","), ids)
	case QuestionFillBlank:
		correct = scoring.MatchesText(value, texts)
	}
	if !correct {
		return false, 0
	}
	return true, scoring.QuestionPoints(q.Points)
}

func (q Question) hasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Questions returns every question of the test in sections order.
func (t Test) Questions() []Question {
	var qs []Question
	for _, s := range t.Sections {
		qs = append(qs, s.Questions...)
	}
	return qs
}

// Question finds a question of the test along with its section.
func (t Test) Question(id string) (Question, Section, bool) {
	for _, s := range t.Sections {
		for _, q := range s.Questions {
			if q.ID == id {
				return q, s, true
			}
		}
	}
	return Question{}, Section{}, false
}

// TotalPoints is what all the questions of the test are worth.
func (t Test) TotalPoints() int {
	qs := t.Questions()
	points := make([]*int, 0, len(qs))
	for _, q := range qs {
		points = append(points, q.Points)
	}
	return scoring.TotalPoints(points)
}

// Expired reports whether the attempt deadline (plus grace) is passed at now.
func (a Attempt) Expired(now time.Time, grace time.Duration) bool {
	return a.Deadline != nil && now.After(a.Deadline.Add(grace))
}

type (
	AttemptFilter struct {
		UserID string
		TestID string
		Status AttemptStatus
	}

	SubmissionFilter struct {
		AttemptID string
		UserID    string
		SkillType string
		Status    SubmissionStatus
		// CourseIDs restricts to submissions of tests owned by these courses; nil means any course.
		CourseIDs []string
	}

	StartResult struct {
		Attempt
		Resumed bool `json:"resumed"`
	}

	// Result is the read model of an attempt: objective score plus the state of its human graded submissions.
	Result struct {
		AttemptID          string        `json:"attempt_id"`
		TestID             string        `json:"test_id"`
		Status             AttemptStatus `json:"status"`
		Score              *int          `json:"score"`
		TotalPoints        int           `json:"total_points"`
		StartedAt          time.Time     `json:"started_at"`
		CompletedAt        *time.Time    `json:"completed_at"`
		PendingSubmissions int           `json:"pending_submissions"`
		GradedSubmissions  int           `json:"graded_submissions"`
		AwaitingGrading    bool          `json:"awaiting_grading"`
		FullyGraded        bool          `json:"fully_graded"`
		Submissions        []Submission  `json:"submissions"`
	}
)
