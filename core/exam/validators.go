package exam

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/lingo/core"
)

var (
	skillTypeText = "must be one of SPEAKING, WRITING"

	maxAnswerLen   = 20000
	promptMaxSim   = .9
	promptCopyText = "answer cannot be a copy of the question prompt"
)

// InitValidators registers the exam validators, core.InitValidators must have been called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterTags(validate, translator, core.CustomTag{Tag: "skilltype", Text: skillTypeText, Func: humanGradedSkill})
}

func humanGradedSkill(fl validator.FieldLevel) bool {
	skill := fl.Field().String()
	return skill == SkillSpeaking || skill == SkillWriting
}

type (
	NewAnswer struct {
		Value string `json:"value" validate:"required,max=20000"`
	}

	NewSubmission struct {
		QuestionID string `json:"question_id" validate:"required"`
		SkillType  string `json:"skill_type" validate:"required,skilltype"`
		AudioURL   string `json:"audio_url" validate:"omitempty,url"`
		TextAnswer string `json:"text_answer" validate:"max=20000"`
	}
)

func (na *NewAnswer) Validate(validate *validator.Validate) error {
	na.Value = core.CleanString(na.Value)
	return validate.Struct(na)
}

func (ns *NewSubmission) Clean() {
	ns.QuestionID = core.CleanString(ns.QuestionID)
	ns.SkillType = core.CleanString(ns.SkillType)
	ns.AudioURL = core.CleanString(ns.AudioURL)
	ns.TextAnswer = strings.TrimSpace(ns.TextAnswer)
}

// Validate runs the tag validators then checks the content.
func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return ns.checkContent()
}

// checkContent checks that exactly the content matching the skill is provided:
// an audio recording for SPEAKING, a text for WRITING.
func (ns NewSubmission) checkContent() error {
	var fldErrs []core.FieldError
	switch ns.SkillType {
	case SkillSpeaking:
		if ns.AudioURL == "" {
			fldErrs = append(fldErrs, core.FieldError{Field: "audio_url", Error: "this field is required"})
		}
		if ns.TextAnswer != "" {
			fldErrs = append(fldErrs, core.FieldError{Field: "text_answer", Error: "not allowed for SPEAKING"})
		}
	case SkillWriting:
		if ns.TextAnswer == "" {
			fldErrs = append(fldErrs, core.FieldError{Field: "text_answer", Error: "this field is required"})
		}
		if ns.AudioURL != "" {
			fldErrs = append(fldErrs, core.FieldError{Field: "audio_url", Error: "not allowed for WRITING"})
		}
		if len(ns.TextAnswer) > maxAnswerLen {
			fldErrs = append(fldErrs, core.FieldError{Field: "text_answer", Error: fmt.Sprintf("must be at most %d characters", maxAnswerLen)})
		}
	default:
		fldErrs = append(fldErrs, core.FieldError{Field: "skill_type", Error: skillTypeText})
	}
	if ns.QuestionID == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "question_id", Error: "this field is required"})
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// checkAnswerValue checks that an answer value is usable for the question.
func checkAnswerValue(q Question, value string) error {
	invalid := func(msg string) error {
		return core.NewValidationError(nil, core.FieldError{Field: "value", Error: msg})
	}
	if value == "" {
		return invalid("this field is required")
	}
	switch q.Type {
	case QuestionSingleChoice:
		if !q.hasOption(value) {
			return invalid("unknown option")
		}
	case QuestionMultipleChoice:
		for _, id := range strings.Split(value, ",") {
			if !q.hasOption(strings.TrimSpace(id)) {
				return invalid("unknown option")
			}
		}
	case QuestionFillBlank:
		if len(value) > maxAnswerLen {
			return invalid(fmt.Sprintf("must be at most %d characters", maxAnswerLen))
		}
	default:
		return invalid("this question is answered with a submission")
	}
	return nil
}

// isPromptCopy reports whether a written answer is (almost) the question prompt itself.
func isPromptCopy(answer, prompt string) bool {
	if prompt == "" {
		return false
	}
	a := strings.Fields(strings.ToLower(answer))
	p := strings.Fields(strings.ToLower(prompt))
	return difflib.NewMatcher(a, p).Ratio() >= promptMaxSim
}

// Validate checks a test tree before it is saved.
func (t *Test) Validate() error {
	var fldErrs []core.FieldError
	t.Title = core.CleanString(t.Title)
	if t.Title == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "title", Error: "this field is required"})
	}
	if t.DurationMinutes < 0 {
		fldErrs = append(fldErrs, core.FieldError{Field: "duration_minutes", Error: "must be positive"})
	}
	for si, s := range t.Sections {
		if !IsValidSkill(s.SkillType) {
			fldErrs = append(fldErrs, core.FieldError{Field: fmt.Sprintf("sections[%d].skill_type", si), Error: "invalid skill type"})
		}
		for qi, q := range s.Questions {
			fld := fmt.Sprintf("sections[%d].questions[%d]", si, qi)
			if !IsValidQuestionType(q.Type) {
				fldErrs = append(fldErrs, core.FieldError{Field: fld + ".type", Error: "invalid question type"})
				continue
			}
			if q.Points != nil && *q.Points < 0 {
				fldErrs = append(fldErrs, core.FieldError{Field: fld + ".points", Error: "must be positive"})
			}
			if skill, ok := q.Skill(); ok && skill != s.SkillType {
				fldErrs = append(fldErrs, core.FieldError{Field: fld + ".type", Error: "does not match the section skill"})
			}
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}
