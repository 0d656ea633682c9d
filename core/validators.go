package core

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const requiredText = "this field is required"

// CustomTag is a validation tag with its english message. Built-in tags have no Func, their message is overridden.
type CustomTag struct {
	Tag  string
	Text string
	Func validator.Func
}

var coreTags = []CustomTag{
	{Tag: "notblank", Text: "this field cannot be blank", Func: notBlank},
	{Tag: "required", Text: requiredText},
	{Tag: "required_with", Text: requiredText},
}

// InitValidators registers the english translations, the json field names & the core tags on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
	validate.RegisterTagNameFunc(jsonFieldName)
	RegisterTags(validate, translator, coreTags...)
}

// RegisterTags registers the validation func (if any) & the message of every tag.
func RegisterTags(validate *validator.Validate, translator ut.Translator, tags ...CustomTag) {
	for _, ct := range tags {
		if ct.Func != nil {
			_ = validate.RegisterValidation(ct.Tag, ct.Func)
		}
		RegisterCustomTranslation(validate, translator, ct.Tag, ct.Text, ct.Func == nil)
	}
}

// RegisterCustomTranslation sets the message of tag, replacing the existing one when override is set.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	replace := len(override) > 0 && override[0]
	register := func(t ut.Translator) error { return t.Add(tag, text, replace) }
	translate := func(t ut.Translator, fe validator.FieldError) string {
		msg, _ := t.T(tag, fe.Field())
		return msg
	}
	_ = validate.RegisterTranslation(tag, translator, register, translate)
}

// jsonFieldName names the fields after their json key, `json:"-"` fields are unnamed.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
