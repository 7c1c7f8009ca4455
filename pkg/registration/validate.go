package registration

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Errors maps an invalid field to a human-readable message. A missing key
// means the field is valid.
type Errors map[Field]string

// Has reports whether f has an error.
func (e Errors) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

// Without returns a copy of e with f removed. e is not modified.
func (e Errors) Without(f Field) Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		if k != f {
			out[k] = v
		}
	}
	return out
}

// emailPattern is a deliberately loose local@domain.tld shape check.
var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their wire name so FieldError.Field() is a Field.
	validate.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister("notblank", validators.NotBlank)
	mustRegister("basic_email", validateBasicEmail)
	mustRegister("accepted", validateAccepted)
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registration: register %q validator: %v", tag, err))
	}
}

func validateBasicEmail(fl validator.FieldLevel) bool {
	return emailPattern.MatchString(fl.Field().String())
}

// validateAccepted requires a consent checkbox to be ticked.
func validateAccepted(fl validator.FieldLevel) bool {
	return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
}

// Per-step views of the draft. Tags are evaluated left to right and the
// first failing tag is reported, so "required" always wins over format checks.

type personalInfoView struct {
	FirstName string `json:"firstName" validate:"notblank"`
	LastName  string `json:"lastName" validate:"notblank"`
	Email     string `json:"email" validate:"notblank,basic_email"`
	Phone     string `json:"phone" validate:"notblank"`
}

type addressView struct {
	Address string `json:"address" validate:"notblank"`
	City    string `json:"city" validate:"notblank"`
}

type securityView struct {
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	AgreeTerms      bool   `json:"agreeTerms" validate:"accepted"`
}

func stepView(step Step, d Draft) any {
	switch step {
	case StepPersonalInfo:
		return personalInfoView{FirstName: d.FirstName, LastName: d.LastName, Email: d.Email, Phone: d.Phone}
	case StepAddress:
		return addressView{Address: d.Address, City: d.City}
	case StepSecurity:
		return securityView{Password: d.Password, ConfirmPassword: d.ConfirmPassword, AgreeTerms: d.AgreeTerms}
	}
	return nil
}

var messages = map[Field]map[string]string{
	FieldFirstName: {"notblank": "First name is required"},
	FieldLastName:  {"notblank": "Last name is required"},
	FieldEmail: {
		"notblank":    "Email is required",
		"basic_email": "Email is invalid",
	},
	FieldPhone:   {"notblank": "Phone number is required"},
	FieldAddress: {"notblank": "Address is required"},
	FieldCity:    {"notblank": "City is required"},
	FieldPassword: {
		"required": "Password is required",
		"min":      "Password must be at least %s characters",
	},
	FieldConfirmPassword: {
		"required": "Please confirm your password",
		"eqfield":  "Passwords do not match",
	},
	FieldAgreeTerms: {"accepted": "You must agree to the terms and conditions"},
}

func formatFieldError(fe validator.FieldError) (Field, string) {
	field := Field(fe.Field())
	if tmpl, ok := messages[field][fe.Tag()]; ok {
		if strings.Contains(tmpl, "%s") {
			return field, fmt.Sprintf(tmpl, fe.Param())
		}
		return field, tmpl
	}
	return field, fmt.Sprintf("%s is invalid", field)
}

// Validate checks only the fields that belong to step. It is pure: the same
// input always yields an equal result.
func Validate(step Step, d Draft) Errors {
	errs := Errors{}

	view := stepView(step, d)
	if view == nil {
		return errs
	}

	err := validate.Struct(view)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// Only reachable with a non-struct view.
		panic(fmt.Sprintf("registration: validate %s: %v", step, err))
	}
	for _, fe := range fieldErrs {
		field, msg := formatFieldError(fe)
		errs[field] = msg
	}
	return errs
}

// ValidateAll validates every step in order and returns the first step that
// has errors. Empty Errors means the whole draft is valid.
func ValidateAll(d Draft) (Step, Errors) {
	for _, step := range Steps {
		if errs := Validate(step, d); len(errs) > 0 {
			return step, errs
		}
	}
	return LastStep, Errors{}
}
