package registration

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ovaphlow/pitchfork/service-signup/internal/registration/entity"
)

// passwordSymbols is the punctuation set a password must draw at least one symbol from.
const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

var fieldLabels = map[string]string{
	"first_name":       "First name",
	"last_name":        "Last name",
	"email":            "Email",
	"password":         "Password",
	"role":             "User type",
	"institution_name": "Institution name",
}

// Validator checks a RegistrationRequest before any side effect happens.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// registration only fails on programmer error (bad tag name)
	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := entity.ParseRole(fl.Field().String())
		return ok
	}); err != nil {
		panic(err)
	}
	return &Validator{v: v}
}

// Validate reports every invalid field at once as a *ValidationError.
func (val *Validator) Validate(req *entity.RegistrationRequest) error {
	err := val.v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

// StrongPassword reports whether pw holds an uppercase letter, a digit and a symbol.
// Length is checked separately.
func StrongPassword(pw string) bool {
	var upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return upper && digit && symbol
}

func message(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	switch fe.Tag() {
	case "required":
		if fe.Field() == "role" {
			return "Please select a user type"
		}
		return label + " is required"
	case "min":
		return label + " must be at least " + fe.Param() + " characters"
	case "email":
		return "Invalid email"
	case "password":
		return "Must contain one uppercase, one number, and one symbol"
	case "role":
		return "Please select a user type"
	default:
		return label + " is invalid"
	}
}
