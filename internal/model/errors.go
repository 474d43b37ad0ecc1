package model

import (
	"errors"
	"fmt"
)

// Error kinds reported to callers. Every rejection unwraps to exactly one of these.
var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicateSerial    = errors.New("duplicate serial")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrConflictingCustody = errors.New("conflicting custody")
	ErrInUse              = errors.New("in use")
	ErrFatal              = errors.New("storage failure")
)

// FieldError describes a validation problem with a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level validation problems.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// TransitionError reports an action that the item's current status does not allow.
type TransitionError struct {
	ItemID string
	Status string
	Action string
}

func (e *TransitionError) Error() string {
	switch e.Action {
	case ActionTake:
		return fmt.Sprintf("cannot take item %s: current status is %s, item must be %s", e.ItemID, e.Status, ItemStatusAvailable)
	case ActionReturn:
		return fmt.Sprintf("cannot return item %s: current status is %s, item must be %s", e.ItemID, e.Status, ItemStatusIssued)
	default:
		return fmt.Sprintf("cannot set item %s to %s: item is currently %s", e.ItemID, e.Action, e.Status)
	}
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// CustodyError reports that a person already holds another item.
type CustodyError struct {
	PersonID   string
	HeldItemID string
}

func (e *CustodyError) Error() string {
	return fmt.Sprintf("personnel %s already holds item %s", e.PersonID, e.HeldItemID)
}

func (e *CustodyError) Unwrap() error { return ErrConflictingCustody }

// NotFoundError names the kind of record that could not be resolved.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Fatal wraps an infrastructure error so callers can tell it from a business rejection.
func Fatal(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrFatal, err)
}

// ErrorKind returns the short name of the error kind for API responses.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicateSerial):
		return "duplicate_serial"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrConflictingCustody):
		return "conflicting_custody"
	case errors.Is(err, ErrInUse):
		return "in_use"
	default:
		return "fatal"
	}
}
