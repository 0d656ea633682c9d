package grading

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/scoring"
)

var bandText = fmt.Sprintf("must be between %g and %g in steps of 0.5", scoring.MinBand, scoring.MaxBand)

// InitValidators registers the grading validators, core & exam validators must have been registered first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterTags(validate, translator, core.CustomTag{Tag: "band", Text: bandText, Func: bandValidation})
}

func bandValidation(fl validator.FieldLevel) bool {
	return scoring.ValidBand(fl.Field().Float())
}

func (qf *QueueFilter) Validate(validate *validator.Validate) error {
	qf.Clean()
	return validate.Struct(qf)
}

func (g *Grade) Validate(validate *validator.Validate) error {
	g.Clean()
	return validate.Struct(g)
}

// check validates the grade against the skill of the submission and returns the overall band score.
func (g Grade) check(skill string) (float64, error) {
	if g.OverallBandScore == nil {
		return scoring.BandScore(skill, g.Criteria)
	}
	if err := scoring.ValidateOverall(*g.OverallBandScore); err != nil {
		return 0, err
	}
	if err := g.Criteria.ValidateProvided(skill); err != nil {
		return 0, err
	}
	return *g.OverallBandScore, nil
}
