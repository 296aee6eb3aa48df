// Package apperr defines the error taxonomy shared by every domain package.
//
// Handlers map these to transport responses with errors.As / errors.Is; domain
// code never returns silent defaults in place of them.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrUnauthenticated is returned when an operation needs a caller identity
	// and none was supplied.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the caller lacks the admin role or does
	// not own the requested resource.
	ErrForbidden = errors.New("access denied")
)

// ValidationError reports malformed or missing input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid is shorthand for constructing a *ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NotFound is shorthand for constructing a *NotFoundError.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ReferentialError reports that a delete was blocked by dependent rows.
type ReferentialError struct {
	Entity string
	ID     string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("cannot delete %s %s because it is referenced by existing orders; consider deactivating it instead", e.Entity, e.ID)
}

// TransientError wraps a network or storage failure that may succeed on retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a *TransientError. It returns nil for a nil err.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsNotFound reports whether err is (or wraps) a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTransient reports whether err is (or wraps) a *TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
