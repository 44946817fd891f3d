package tabsource

import (
	"errors"
	"fmt"
)

const (
	CodeValidation        = "VALIDATION"
	CodeSourceUnreachable = "SOURCE_UNREACHABLE"
	CodeCloseFailed       = "CLOSE_FAILED"
	CodeMalformedTab      = "MALFORMED_TAB"
)

// CodedError is a typed error used for stable exit-code and API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code string) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}
