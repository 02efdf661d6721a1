package engine

import (
	"errors"
	"fmt"
)

// ErrNoIdentifier is returned when an aggregate is asked for an identifier
// before any is known.
var ErrNoIdentifier = errors.New("no identifiers present")

// ErrConfigNotArray is the cause wrapped by CONFIG_NOT_ARRAY ingest errors.
var ErrConfigNotArray = errors.New("config is not an array")

// IngestError represents a rejected ingestion input.
//
// Store and bus failures are never wrapped in IngestError; they reach the
// caller unmodified.
type IngestError struct {
	// Code identifies the error category.
	Code IngestErrorCode

	// Message is a human-readable description.
	Message string

	// Profile names the offending profile, when there is one.
	Profile string

	// Err is the underlying cause, if any.
	Err error
}

// IngestErrorCode categorizes ingestion errors.
type IngestErrorCode string

const (
	// ErrCodeConfigNotArray indicates the parsed source is not an array.
	ErrCodeConfigNotArray IngestErrorCode = "CONFIG_NOT_ARRAY"

	// ErrCodeValidationFailed indicates a record failed schema validation.
	ErrCodeValidationFailed IngestErrorCode = "VALIDATION_FAILED"

	// ErrCodeNoIdentifier indicates a profile carries no identifier values.
	ErrCodeNoIdentifier IngestErrorCode = "NO_IDENTIFIER"
)

// Error implements the error interface.
func (e *IngestError) Error() string {
	if e.Profile != "" {
		return fmt.Sprintf("%s: %s (profile=%s)", e.Code, e.Message, e.Profile)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *IngestError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if the source was not an array.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeConfigNotArray
	}
	return false
}

// IsValidationError returns true for schema failures and identifier-less
// profiles.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeValidationFailed || ie.Code == ErrCodeNoIdentifier
	}
	return false
}
