package trust

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/paes/core"
)

var (
	actionTypeTag  = "actiontype"
	actionTypeText = "unknown action type"

	difficultyTag  = "difficulty"
	difficultyText = "difficulty must be one of easy, medium, hard, legendary"
)

// InitValidators registers the trust validation tags. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(actionTypeTag, actionTypeValidation)
	core.RegisterCustomTranslation(validate, translator, actionTypeTag, actionTypeText)

	_ = validate.RegisterValidation(difficultyTag, difficultyValidation)
	core.RegisterCustomTranslation(validate, translator, difficultyTag, difficultyText)
}

// NewValidator returns a validator ready for trust payloads.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

// Custom Validators

func actionTypeValidation(fl validator.FieldLevel) bool {
	_, err := ParseActionType(fl.Field().String())
	return err == nil
}

func difficultyValidation(fl validator.FieldLevel) bool {
	_, err := ParseDifficulty(fl.Field().String())
	return err == nil
}

// Validate cleans and validates the submission.
func (sub *Submission) Validate(validate *validator.Validate) error {
	sub.Data.ItemID = core.CleanString(sub.Data.ItemID)
	sub.Data.SessionID = core.CleanString(sub.Data.SessionID)
	sub.Data.Subject = core.CleanString(sub.Data.Subject)
	sub.Data.Difficulty = Difficulty(core.CleanString(string(sub.Data.Difficulty), true /* lower */))
	sub.ClientFingerprint = core.CleanString(sub.ClientFingerprint)
	if sub.Data.Attempts == 0 {
		sub.Data.Attempts = 1
	}
	return validate.Struct(sub)
}

func (nf *NewUserFlag) Validate(validate *validator.Validate) error {
	nf.Reason = core.CleanString(nf.Reason)
	nf.Evidence = core.CleanString(nf.Evidence)
	return validate.Struct(nf)
}
