package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
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
		return ""
	}
	return err.Err.Error()
}

// NotFoundError is returned when the requested resource id is unknown.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

// ForbiddenError is returned when the caller lacks the ownership or role needed for Action.
type ForbiddenError struct {
	Action string
}

func NewForbiddenError(action string) error {
	return &ForbiddenError{Action: action}
}

func (err ForbiddenError) Error() string {
	return "permission denied"
}

// InvalidStateError is returned when Op is not allowed while Resource is in State.
type InvalidStateError struct {
	Resource string
	State    string
	Op       string
}

func NewInvalidStateError(resource, state, op string) error {
	return &InvalidStateError{Resource: resource, State: state, Op: op}
}

func (err InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s: status is %s", err.Op, err.Resource, err.State)
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsForbidden(err error) bool {
	_, ok := errors.Cause(err).(*ForbiddenError)
	return ok
}

func IsInvalidState(err error) bool {
	_, ok := errors.Cause(err).(*InvalidStateError)
	return ok
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
