package simplecms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error categories returned by the service. Match them with errors.Is.
var (
	// ErrNotFound indicates a logical id, instance id or content id did not resolve
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a required field was missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition indicates a status change outside the legal edge set
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict indicates concurrent writers kept colliding after retries
	ErrConflict = errors.New("conflict")

	// ErrIntegrity indicates a stored relation points at a missing logical id
	ErrIntegrity = errors.New("integrity fault")
)

// Repository errors. Repository implementations return these so the service
// can tell a retryable collision from a hard failure.
var (
	ErrInstanceNotFound = errors.New("instance not found")
	ErrContentNotFound  = errors.New("content not found")

	// ErrVersionConflict is returned when (logical id, version) already exists
	ErrVersionConflict = errors.New("version already exists")

	// ErrStatusConflict is returned when the row status changed underneath a transition
	ErrStatusConflict = errors.New("status changed concurrently")

	// ErrNewerPublished is returned when publishing a version older than the published one
	ErrNewerPublished = errors.New("a newer version is already published")

	// ErrSlugTaken is returned when a page slug is owned by another logical id
	ErrSlugTaken = errors.New("slug already taken")
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level detail for a rejected create or version bump.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field errors were collected.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NotFoundError reports which identifier failed to resolve.
type NotFoundError struct {
	What string // "logical id", "instance", "content"
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.What, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// InvalidTransitionError reports the current status and the rejected target.
type InvalidTransitionError struct {
	InstanceID uuid.UUID
	From       Status
	To         Status
	Reason     string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("instance %s: cannot transition from %s to %s", e.InstanceID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ConflictError is surfaced once the bounded retry on a collision is exhausted.
type ConflictError struct {
	LogicalID uuid.UUID
	Op        string
	Attempts  int
	Err       error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s on %s still conflicting after %d attempts: %v", e.Op, e.LogicalID, e.Attempts, e.Err)
}

func (e *ConflictError) Unwrap() []error {
	return []error{ErrConflict, e.Err}
}

// IntegrityFault records a stored relation that points at a missing logical id.
// Tree rendering logs it and omits the node instead of failing.
type IntegrityFault struct {
	Relation string // "page->section", "section->module", ...
	ParentID uuid.UUID
	ChildID  uuid.UUID
	Err      error
}

func (e *IntegrityFault) Error() string {
	return fmt.Sprintf("integrity fault: %s %s -> %s: %v", e.Relation, e.ParentID, e.ChildID, e.Err)
}

func (e *IntegrityFault) Unwrap() []error {
	return []error{ErrIntegrity, e.Err}
}

// StoreError wraps an unexpected repository failure
type StoreError struct {
	Op  string
	ID  uuid.UUID
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed for %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
