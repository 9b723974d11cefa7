package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Init hooks the custom rules into gin's binding validator.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("base_units", baseUnits)
	}
}

// baseUnits accepts a positive integer amount written as a decimal string.
func baseUnits(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
	if err != nil {
		return false
	}
	return d.IsPositive() && d.Equal(d.Truncate(0))
}

// GetErrorMsg translates validation errors into user-friendly messages
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "invalid request parameters"
	}

	var errMsgs []string
	for _, e := range validationErrors {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("%s is required", field))
		case "min":
			errMsgs = append(errMsgs, fmt.Sprintf("%s must be at least %s", field, param))
		case "max":
			errMsgs = append(errMsgs, fmt.Sprintf("%s must be at most %s", field, param))
		case "base_units":
			errMsgs = append(errMsgs, fmt.Sprintf("%s must be a positive integer amount", field))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("%s failed validation (%s)", field, e.Tag()))
		}
	}
	return strings.Join(errMsgs, "; ")
}
