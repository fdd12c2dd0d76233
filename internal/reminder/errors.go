package reminder

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed assignment, timing or request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown reminder, assignment or profile id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func reminderNotFound(id string) error {
	return &NotFoundError{Kind: "reminder", ID: id}
}

func assignmentNotFound(id string) error {
	return &NotFoundError{Kind: "assignment", ID: id}
}

func profileNotFound(id string) error {
	return &NotFoundError{Kind: "profile", ID: id}
}
