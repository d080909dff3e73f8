package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid marks requests the store rejects as malformed.
var ErrInvalid = errors.New("invalid request")

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	kind := strings.TrimSpace(e.Kind)
	if kind == "" {
		kind = "resource"
	}
	return fmt.Sprintf("%s not found: %s", kind, e.ID)
}

func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

type invalidError struct{ msg string }

func (e invalidError) Error() string { return e.msg }
func (e invalidError) Unwrap() error { return ErrInvalid }

func invalidf(format string, args ...any) error {
	return invalidError{msg: fmt.Sprintf(format, args...)}
}
