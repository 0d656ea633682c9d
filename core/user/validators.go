package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lingo/core"
)

const roleText = "invalid role"

// InitValidators registers the user validators, core.InitValidators must have been called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterTags(validate, translator, core.CustomTag{
		Tag:  "role",
		Text: roleText,
		Func: func(fl validator.FieldLevel) bool { return IsValidRole(fl.Field().String()) },
	})
}

func (np *NewProfile) Validate(validate *validator.Validate) error {
	np.Clean()
	return validate.Struct(np)
}

func (sac *SetActiveCourse) Validate(validate *validator.Validate) error {
	sac.CourseID = core.CleanString(sac.CourseID)
	return validate.Struct(sac)
}
