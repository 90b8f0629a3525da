package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// symbolPattern matches the canonical currency symbol form: 1 to 12 uppercase
// letters.
var symbolPattern = regexp.MustCompile(`^[A-Z]{1,12}$`)

// RegisterValidations installs custom binding validations on gin's validator
// engine. Must run before the first request is bound.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("assetsymbol", func(fl validator.FieldLevel) bool {
		return symbolPattern.MatchString(fl.Field().String())
	})
}
