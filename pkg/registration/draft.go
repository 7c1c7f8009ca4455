// Package registration implements the sign-up wizard: the draft being
// collected, per-step validation, the navigation reducer, and the simulated
// asynchronous registration call.
package registration

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when an edit names a field the draft does not have.
var ErrUnknownField = errors.New("unknown field")

// Field identifies one input of the draft by its wire name.
type Field string

const (
	FieldFirstName       Field = "firstName"
	FieldLastName        Field = "lastName"
	FieldEmail           Field = "email"
	FieldPhone           Field = "phone"
	FieldAddress         Field = "address"
	FieldCity            Field = "city"
	FieldPassword        Field = "password"
	FieldConfirmPassword Field = "confirmPassword"
	FieldAgreeTerms      Field = "agreeTerms"
)

// Fields lists every draft field in display order.
var Fields = []Field{
	FieldFirstName, FieldLastName, FieldEmail, FieldPhone,
	FieldAddress, FieldCity,
	FieldPassword, FieldConfirmPassword, FieldAgreeTerms,
}

// ParseField maps a wire name to a Field.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// IsText reports whether the field holds a string.
func (f Field) IsText() bool {
	return f != FieldAgreeTerms && f != ""
}

// Draft is the not-yet-submitted registration data. It is a value: every
// update returns a new Draft.
type Draft struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Address         string
	City            string
	Password        string
	ConfirmPassword string
	AgreeTerms      bool
}

// With returns a copy of d with the text field f set to value.
func (d Draft) With(f Field, value string) (Draft, error) {
	switch f {
	case FieldFirstName:
		d.FirstName = value
	case FieldLastName:
		d.LastName = value
	case FieldEmail:
		d.Email = value
	case FieldPhone:
		d.Phone = value
	case FieldAddress:
		d.Address = value
	case FieldCity:
		d.City = value
	case FieldPassword:
		d.Password = value
	case FieldConfirmPassword:
		d.ConfirmPassword = value
	default:
		return d, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return d, nil
}

// WithConsent returns a copy of d with the consent flag set.
func (d Draft) WithConsent(agreed bool) Draft {
	d.AgreeTerms = agreed
	return d
}

// Value returns the text value of f, or "" for the consent flag and unknown fields.
func (d Draft) Value(f Field) string {
	switch f {
	case FieldFirstName:
		return d.FirstName
	case FieldLastName:
		return d.LastName
	case FieldEmail:
		return d.Email
	case FieldPhone:
		return d.Phone
	case FieldAddress:
		return d.Address
	case FieldCity:
		return d.City
	case FieldPassword:
		return d.Password
	case FieldConfirmPassword:
		return d.ConfirmPassword
	}
	return ""
}
