package scoring

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core"
)

// Skills graded by band score
const (
	SkillSpeaking = "SPEAKING"
	SkillWriting  = "WRITING"
)

const (
	MinBand  = 0.0
	MaxBand  = 9.0
	bandStep = 0.5
)

var (
	ErrInvalidScore = errors.New("invalid score")

	invalidBandText   = fmt.Sprintf("must be between %g and %g in steps of %g", MinBand, MaxBand, bandStep)
	requiredText      = "this field is required"
	notApplicableText = "not applicable to %s"
)

// Criteria are the per-criterion band scores entered by a grader. Nil means not provided.
type Criteria struct {
	Fluency         *float64 `json:"fluency,omitempty"`
	Pronunciation   *float64 `json:"pronunciation,omitempty"`
	TaskAchievement *float64 `json:"task_achievement,omitempty"`
	Coherence       *float64 `json:"coherence,omitempty"`
	Lexical         *float64 `json:"lexical,omitempty"`
	Grammar         *float64 `json:"grammar,omitempty"`
}

type criterion struct {
	field string
	value *float64
}

func (c Criteria) all() []criterion {
	return []criterion{
		{"fluency", c.Fluency},
		{"pronunciation", c.Pronunciation},
		{"task_achievement", c.TaskAchievement},
		{"coherence", c.Coherence},
		{"lexical", c.Lexical},
		{"grammar", c.Grammar},
	}
}

// skillCriteria lists the criteria averaged into the band of each skill.
var skillCriteria = map[string][]string{
	SkillSpeaking: {"fluency", "pronunciation", "lexical", "grammar"},
	SkillWriting:  {"task_achievement", "coherence", "lexical", "grammar"},
}

func IsBandSkill(skill string) bool {
	_, ok := skillCriteria[skill]
	return ok
}

// ValidBand reports whether score is in [0,9] and a multiple of 0.5.
func ValidBand(score float64) bool {
	if math.IsNaN(score) || score < MinBand || score > MaxBand {
		return false
	}
	return math.Mod(score, bandStep) == 0
}

// RoundBand rounds to the nearest half band, .25 and .75 rounding up.
func RoundBand(score float64) float64 {
	return math.Floor(score*2+0.5) / 2
}

// Validate checks that every criterion of skill is provided and valid and that no foreign criterion is set.
// It returns a *core.ValidationError wrapping ErrInvalidScore.
func (c Criteria) Validate(skill string) error {
	return c.validate(skill, true)
}

// ValidateProvided is Validate without requiring every criterion of skill.
func (c Criteria) ValidateProvided(skill string) error {
	return c.validate(skill, false)
}

func (c Criteria) validate(skill string, requireAll bool) error {
	required, ok := skillCriteria[skill]
	if !ok {
		return core.NewValidationError(ErrInvalidScore, core.FieldError{Field: "skill_type", Error: "invalid skill type"})
	}

	var fldErrs []core.FieldError
	for _, crit := range c.all() {
		wanted := contains(required, crit.field)
		switch {
		case crit.value == nil && wanted && requireAll:
			fldErrs = append(fldErrs, core.FieldError{Field: crit.field, Error: requiredText})
		case crit.value != nil && !wanted:
			fldErrs = append(fldErrs, core.FieldError{Field: crit.field, Error: fmt.Sprintf(notApplicableText, skill)})
		case crit.value != nil && !ValidBand(*crit.value):
			fldErrs = append(fldErrs, core.FieldError{Field: crit.field, Error: invalidBandText})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(ErrInvalidScore, fldErrs...)
	}
	return nil
}

// BandScore validates the criteria and returns their average for skill rounded to the nearest half band.
func BandScore(skill string, c Criteria) (float64, error) {
	if err := c.Validate(skill); err != nil {
		return 0, err
	}
	var sum float64
	for _, crit := range c.all() {
		if crit.value != nil {
			sum += *crit.value
		}
	}
	return RoundBand(sum / float64(len(skillCriteria[skill]))), nil
}

// ValidateOverall checks a grader-provided overall band score.
func ValidateOverall(score float64) error {
	if !ValidBand(score) {
		return core.NewValidationError(ErrInvalidScore, core.FieldError{Field: "overall_band_score", Error: invalidBandText})
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
