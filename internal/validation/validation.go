// Package validation builds the struct validator shared by form backed settings.
package validation

import (
	"errors"
	"net/mail"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New returns a validator that reports fields by their form name and knows
// the addresslist tag.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}

		return name
	})

	if err := v.RegisterValidation("addresslist", addressList); err != nil {
		panic(err)
	}

	return v
}

// SplitList splits on commas and whitespace, dropping empty tokens.
func SplitList(list string) []string {
	return strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// Address strips an optional cc: or bcc: prefix from a recipient token.
func Address(token string) string {
	lower := strings.ToLower(token)

	for _, prefix := range []string{"cc:", "bcc:"} {
		if strings.HasPrefix(lower, prefix) {
			return token[len(prefix):]
		}
	}

	return token
}

// addressList accepts a comma or whitespace separated list of addresses.
// Tokens starting with $ are variables expanded at send time.
func addressList(fl validator.FieldLevel) bool {
	for _, token := range SplitList(fl.Field().String()) {
		if strings.HasPrefix(token, "$") {
			continue
		}

		if _, err := mail.ParseAddress(Address(token)); err != nil {
			return false
		}
	}

	return true
}

// FieldError is one failed rule, keyed by form field name.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e FieldError) String() string {
	msg := "Field '" + e.Field + "' failed validation '" + e.Tag
	if e.Param != "" {
		msg += "=" + e.Param
	}

	return msg + "'"
}

// Errors flattens a validator error. Other errors yield nil.
func Errors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	out := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}

	return out
}

// Messages renders Errors as human readable strings.
func Messages(err error) []string {
	fes := Errors(err)
	if fes == nil {
		return nil
	}

	msgs := make([]string, 0, len(fes))
	for _, fe := range fes {
		msgs = append(msgs, fe.String())
	}

	return msgs
}
