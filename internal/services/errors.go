package services

import (
	"errors"
	"fmt"
)

// Not-found errors, one per aggregate.
var (
	ErrTemplateNotFound   = errors.New("template not found")
	ErrVersionNotFound    = errors.New("version not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrOptionNotFound     = errors.New("option not found")
	ErrPeriodNotFound     = errors.New("period not found")
	ErrTestNotFound       = errors.New("test not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
)

// Conflict errors. These are deterministic outcomes of the request against
// current state; the transaction rolls back and the caller must change the
// request, not retry it.
var (
	// ErrVersionLocked rejects structural mutations on published versions.
	ErrVersionLocked = errors.New("version is published and locked against structural changes")

	// ErrNotDraft rejects publishing anything but a draft.
	ErrNotDraft = errors.New("only draft versions can be published")

	// Tests must bind a published version.
	ErrNotPublished = errors.New("version is not published")

	// ErrQuestionTypeNoOptions rejects option operations on question types
	// that never carry options.
	ErrQuestionTypeNoOptions = errors.New("question type does not allow options")

	// ErrScopeMismatch rejects bulk payloads referencing rows outside the
	// target scope, or failing to cover it.
	ErrScopeMismatch = errors.New("payload references rows outside the target scope")

	// ErrInvalidPayload rejects malformed request bodies past binding:
	// bad reorder unions, too few inline options, unknown types.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrDependencyConflict rejects deletes blocked by dependent rows.
	ErrDependencyConflict = errors.New("resource has dependents and cannot be deleted")

	// ErrDuplicateName rejects duplicate unique names (case-insensitive).
	ErrDuplicateName = errors.New("name already in use")

	// ErrDuplicateVersion rejects a second version with the same number on
	// one template.
	ErrDuplicateVersion = errors.New("version number already exists for this template")

	// ErrDuplicateAccessCode rejects a second test with the same code.
	ErrDuplicateAccessCode = errors.New("access code already in use")

	// ErrAlreadyCompleted rejects starting or submitting a finished run.
	ErrAlreadyCompleted = errors.New("test already completed by this student")
)

// ConflictError wraps a conflict sentinel with the identifiers that
// triggered it, for log lines and error details.
type ConflictError struct {
	Err      error
	Resource string
	ID       uint
	Detail   string
}

func (e *ConflictError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %d: %s: %s", e.Resource, e.ID, e.Err.Error(), e.Detail)
	}
	return fmt.Sprintf("%s %d: %s", e.Resource, e.ID, e.Err.Error())
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// NewVersionLockedError marks a structural mutation against a published
// version.
func NewVersionLockedError(versionID uint) error {
	return &ConflictError{Err: ErrVersionLocked, Resource: "version", ID: versionID}
}

// NewDependencyConflictError marks a delete blocked by dependents.
func NewDependencyConflictError(resource string, id uint, detail string) error {
	return &ConflictError{Err: ErrDependencyConflict, Resource: resource, ID: id, Detail: detail}
}
