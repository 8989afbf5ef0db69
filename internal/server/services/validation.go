package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/coursesms/courses/internal/common"
	"github.com/go-playground/validator/v10"
)

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=20"`
	LastName  string `json:"lastName" validate:"required,min=2,max=20"`
	Email     string `json:"email" validate:"required,min=6,email"`
	Password  string `json:"password" validate:"required,min=12,max=18,password_policy"`
}

// LoginInput is the payload of a login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,min=6,email"`
	Password string `json:"password" validate:"required,min=12,max=18"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on a programming error in the tag name.
	if err := v.RegisterValidation("password_policy", passwordPolicy); err != nil {
		panic(err)
	}
	return v
}

// passwordPolicy requires an upper-case letter, a digit and a symbol. Any
// character outside [A-Za-z0-9] counts as a symbol, as does '_'.
func passwordPolicy(fl validator.FieldLevel) bool {
	var upper, digit, symbol bool
	for _, r := range fl.Field().String() {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
		default:
			symbol = symbol || r == '_' || !unicode.IsControl(r)
		}
	}
	return upper && digit && symbol
}

// validationError turns validator output into a common.ErrorValidation
// carrying one message per field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", fe.Field(), msgForTag(fe)))
	}
	return fmt.Errorf("%w: %s", common.ErrorValidation, strings.Join(msgs, "; "))
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "password_policy":
		return "must contain an upper-case letter, a digit and a symbol"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
