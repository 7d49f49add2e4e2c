// Package flaterrors joins errors into a single flat list.
//
// Join behaves like errors.Join, except that joined errors passed as arguments are
// unwrapped into their members instead of being nested. The resulting error prints
// every member on one line, separated by ": ", with the cause first and the context
// last, e.g.
//
//	flaterrors.Join(os.ErrNotExist, errReadingSpec) // "file does not exist: reading spec"
package flaterrors

import (
	"strings"
)

type joinError struct {
	errs []error
}

// Join returns an error wrapping every non-nil err. It returns nil if all errs are nil.
func Join(errs ...error) error {
	flat := make([]error, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}

		if j, ok := err.(*joinError); ok {
			flat = append(flat, j.errs...)
			continue
		}

		flat = append(flat, err)
	}

	if len(flat) == 0 {
		return nil
	}

	return &joinError{errs: flat}
}

func (e *joinError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}

	return strings.Join(msgs, ": ")
}

// Unwrap lets errors.Is and errors.As inspect every member.
func (e *joinError) Unwrap() []error {
	return e.errs
}
