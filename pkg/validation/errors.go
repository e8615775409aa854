package validation

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to validation failures.
const (
	CodeInvalidNumber   = "INVALID_NUMBER"
	CodeInvalidQuantity = "INVALID_QUANTITY"
	CodeInvalidURL      = "INVALID_URL"
	CodeInvalidEmail    = "INVALID_EMAIL"
	CodeRequired        = "REQUIRED"
)

func invalid(code, field, message, value string) *goerrors.Error {
	return goerrors.NewValidation(message, goerrors.FieldError{
		Field:   field,
		Message: message,
		Value:   value,
	}).WithTextCode(code)
}

// Code returns the text code of the first go-errors error in err's chain.
func Code(err error) string {
	var e *goerrors.Error
	if goerrors.As(err, &e) && e != nil {
		return e.TextCode
	}
	return ""
}

// Is reports whether err is a validation failure with the given code.
func Is(err error, code string) bool {
	return goerrors.IsValidation(err) && Code(err) == code
}

// Join merges the field errors of several validation failures into one. Nil
// entries are skipped; it returns nil when nothing failed.
func Join(message string, errs ...error) error {
	var fields goerrors.ValidationErrors
	code := ""
	for _, err := range errs {
		if err == nil {
			continue
		}
		if code == "" {
			code = Code(err)
		}
		if fe, ok := goerrors.GetValidationErrors(err); ok {
			fields = append(fields, fe...)
			continue
		}
		fields = append(fields, goerrors.FieldError{Message: err.Error()})
	}
	if len(fields) == 0 {
		return nil
	}
	return goerrors.NewValidation(message, fields...).WithTextCode(code)
}
