package errors

import (
	"errors"
	"fmt"
	"strings"
)

// BuildError aggregates the problems found while building a configuration
// value so a single Build call reports all of them at once.
type BuildError struct {
	Errors []error
}

// NewBuildError returns nil when errs holds no non-nil error.
func NewBuildError(errs ...error) *BuildError {
	b := &BuildError{Errors: errs}
	if len(b.nonNilErrors()) == 0 {
		return nil
	}
	return b
}

func (e *BuildError) Error() string {
	errs := e.nonNilErrors()
	switch len(errs) {
	case 0:
		return "invalid configuration"
	case 1:
		return errs[0].Error()
	}
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%d problems:", len(errs)))
	for idx, err := range errs {
		builder.WriteString(fmt.Sprintf(" %d. %v", idx+1, err))
		if idx < len(errs)-1 {
			builder.WriteByte(';')
		}
	}
	return builder.String()
}

func (e *BuildError) Unwrap() []error {
	return e.nonNilErrors()
}

// Is allows errors.Is to match against any aggregated error.
func (e *BuildError) Is(target error) bool {
	for _, err := range e.nonNilErrors() {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (e *BuildError) nonNilErrors() []error {
	if e == nil {
		return nil
	}
	filtered := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return filtered
}
