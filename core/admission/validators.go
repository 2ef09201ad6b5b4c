package admission

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/backoffice/core"
)

var (
	statusTag  = "status"
	statusText = "invalid status"

	decisionStatusTag  = "decision_status"
	decisionStatusText = "must be one of approved, rejected or waitlisted"

	programTypeTag  = "program_type"
	programTypeText = "must be one of university, formation or fablab"
)

// InitValidators registers the admission validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	_ = validate.RegisterValidation(decisionStatusTag, decisionStatusValidation)
	core.RegisterCustomTranslation(validate, translator, decisionStatusTag, decisionStatusText)

	_ = validate.RegisterValidation(programTypeTag, programTypeValidation)
	core.RegisterCustomTranslation(validate, translator, programTypeTag, programTypeText)
}

// Validate cleans and validates the intake data.
func (na *NewApplication) Validate(validate *validator.Validate) error {
	na.ReferenceNumber = core.CleanString(na.ReferenceNumber)
	na.ProgramID = core.CleanString(na.ProgramID)
	na.ProgramName = core.CleanString(na.ProgramName)
	na.ProgramType = ProgramType(core.CleanString(string(na.ProgramType), true /* lower */))
	na.AcademicYear = core.CleanString(na.AcademicYear)
	na.Applicant.Name = core.CleanString(na.Applicant.Name)
	na.Applicant.Email = core.CleanString(na.Applicant.Email, true /* lower */)
	return validate.Struct(na)
}

// Validate cleans and validates the decision input.
func (d *ReviewDecision) Validate(validate *validator.Validate) error {
	d.TargetStatus = Status(core.CleanString(string(d.TargetStatus), true /* lower */))
	d.Comment = core.CleanString(d.Comment)
	d.RejectionReason = core.CleanString(d.RejectionReason)
	return validate.Struct(d)
}

// Custom Validators

func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).IsValid()
}

func decisionStatusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).IsDecision()
}

func programTypeValidation(fl validator.FieldLevel) bool {
	return ProgramType(fl.Field().String()).IsValid()
}
