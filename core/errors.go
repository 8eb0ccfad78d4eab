package core

import "github.com/pkg/errors"

var (
	// ErrUnauthorized means the credentials were rejected or the session is no longer valid.
	ErrUnauthorized = errors.New("not authenticated")
	// ErrForbidden means the caller is authenticated but not permitted.
	ErrForbidden = errors.New("permission denied")
	// ErrNotFound is a business "not found"; callers decide what it means.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable covers server errors and unreachable backends. Retrying may succeed.
	ErrUnavailable = errors.New("service unavailable")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "validation failed"
	}
	return err.Err.Error()
}

// FieldMap returns field errors keyed by field name.
func (err ValidationError) FieldMap() map[string]string {
	fldErrs := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		fldErrs[fErr.Field] = fErr.Error
	}
	return fldErrs
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
