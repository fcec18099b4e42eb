package utils

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct checks a request body against its validate tags.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidationMessage turns a ValidateStruct error into a caller-facing
// message naming the first failed field.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	default:
		return fe.Field() + " is invalid"
	}
}
