package course

import (
	"fmt"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/scoring"
)

// Validate checks the content tree before it is saved, defaulting the enrollment type to FREE.
func (c *Course) Validate() error {
	c.Title = core.CleanString(c.Title)
	if c.EnrollmentType == "" {
		c.EnrollmentType = EnrollmentFree
	}

	var fldErrs []core.FieldError
	if c.Title == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "title", Error: "this field is required"})
	}
	if c.EnrollmentType != EnrollmentFree && c.EnrollmentType != EnrollmentPaid {
		fldErrs = append(fldErrs, core.FieldError{Field: "enrollment_type", Error: "invalid enrollment type"})
	}
	for ui, u := range c.Units {
		for li, l := range u.Lessons {
			for ci, ch := range l.Challenges {
				field := fmt.Sprintf("units[%d].lessons[%d].challenges[%d]", ui, li, ci)
				if !scoring.IsValidChallengeType(ch.Type) {
					fldErrs = append(fldErrs, core.FieldError{Field: field + ".type", Error: "invalid challenge type"})
				}
				if ch.Points != nil && *ch.Points < 0 {
					fldErrs = append(fldErrs, core.FieldError{Field: field + ".points", Error: "must be positive"})
				}
			}
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}
