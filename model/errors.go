package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrNotConfigured  = errors.New("simulator not configured")
	ErrNilGraph       = errors.New("graph is nil")
	ErrNotInitialized = errors.New("simulator not initialized")
)

// ConfigurationError lists every missing part found by Initialize
type ConfigurationError struct {
	problems *multierror.Error
}

func (e *ConfigurationError) Error() string {
	if e.problems == nil {
		return ErrNotConfigured.Error()
	}
	msgs := make([]string, 0, len(e.problems.Errors))
	for _, p := range e.problems.Errors {
		msgs = append(msgs, p.Error())
	}
	return fmt.Sprintf("%s: %s", ErrNotConfigured, strings.Join(msgs, "; "))
}

func (e *ConfigurationError) Unwrap() error { return ErrNotConfigured }

// Problems returns the individual configuration problems
func (e *ConfigurationError) Problems() []error {
	if e.problems == nil {
		return nil
	}
	return e.problems.WrappedErrors()
}

// InvariantViolation reports a piece held in more than one set of a user
type InvariantViolation struct {
	Iteration int
	User      any
	Piece     any
	Sets      []string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf(
		"iteration %d: piece %v of user %v is in %s",
		e.Iteration, e.Piece, e.User, strings.Join(e.Sets, ", "),
	)
}
