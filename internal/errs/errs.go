// Package errs defines the error taxonomy shared by the pipeline, its stages and the API.
//
// Sentinel values identify a category and are matched with errors.Is; the typed errors
// carry detail and unwrap to their sentinel so callers never need a type switch:
//
//	if errors.Is(err, errs.ErrNotFound) { ... }
//	if errs.IsTransient(err) { retry }
package errs

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	// ErrConfiguration indicates a deployment defect such as a missing API key.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransientRemote is a rate-limit signal from a remote service; retryable.
	ErrTransientRemote = errors.New("remote service rate limited")
	// ErrRemoteService is any other failure of an external collaborator.
	ErrRemoteService = errors.New("remote service error")
	// ErrNotFound means a requested document id is absent.
	ErrNotFound = errors.New("not found")
	// ErrValidation means caller input is missing or malformed.
	ErrValidation = errors.New("validation error")
	// ErrEmptyResult means a remote call succeeded but produced no usable content.
	ErrEmptyResult = errors.New("empty result")
	// ErrCycleDetected means a lineage walk revisited a document.
	ErrCycleDetected = errors.New("lineage cycle detected")
	// ErrVersionConflict means a child's version does not exceed its parent's.
	ErrVersionConflict = errors.New("version conflict")
	// ErrRunInProgress means a pipeline run for the same source is already active.
	ErrRunInProgress = errors.New("pipeline run already in progress")
)

// Error is a categorized error with an optional underlying cause.
type Error struct {
	kind    error
	message string
	cause   error
}

func newError(kind error, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

// Error returns the message, followed by the cause when present.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Is matches the category sentinel.
func (e *Error) Is(target error) bool {
	return target == e.kind
}

// Unwrap returns the cause so errors.Is/As reach through to it.
func (e *Error) Unwrap() error {
	return e.cause
}

// Kind returns the category sentinel.
func (e *Error) Kind() error {
	return e.kind
}

// Configuration reports a missing or invalid setting.
func Configuration(message string) error {
	return newError(ErrConfiguration, message, nil)
}

// TransientRemote wraps a rate-limit failure from service.
func TransientRemote(service string, cause error) error {
	return newError(ErrTransientRemote, service+" rate limited", cause)
}

// RemoteService wraps a non-retryable failure from service.
func RemoteService(service string, cause error) error {
	return newError(ErrRemoteService, service+" failed", cause)
}

// NotFound reports that the resource with id does not exist.
func NotFound(resource, id string) error {
	return newError(ErrNotFound, fmt.Sprintf("%s '%s' not found", resource, id), nil)
}

// Validation reports invalid input.
func Validation(message string) error {
	return newError(ErrValidation, message, nil)
}

// EmptyResult reports that service returned no content.
func EmptyResult(service string) error {
	return newError(ErrEmptyResult, service+" returned an empty response", nil)
}

// CycleDetected reports a lineage walk that came back to id.
func CycleDetected(id string) error {
	return newError(ErrCycleDetected, fmt.Sprintf("lineage cycle detected at '%s'", id), nil)
}

// VersionConflict reports a child version that does not advance its parent.
func VersionConflict(parentID string, parentVersion, childVersion int) error {
	return newError(ErrVersionConflict, fmt.Sprintf(
		"version %d must be greater than parent '%s' version %d", childVersion, parentID, parentVersion), nil)
}

// RunInProgress reports an active run for source.
func RunInProgress(source string) error {
	return newError(ErrRunInProgress, fmt.Sprintf("pipeline run already in progress for %s", source), nil)
}

// IsTransient reports whether err is a retryable rate-limit signal.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientRemote)
}

// IsNotFound reports whether err means a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err means invalid caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConfiguration reports whether err is a deployment defect.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
