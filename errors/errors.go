/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrConfiguration is returned when a record type or table is misconfigured
	ErrConfiguration = errors.New("configuration error")

	// ErrQuery is returned when a predicate set cannot be planned
	ErrQuery = errors.New("query error")

	// ErrDecode is returned when a stored row cannot be turned back into a record
	ErrDecode = errors.New("decode error")
)

// NotFoundError represents an error when a record is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// ConfigurationError is raised eagerly while building or registering a record type.
type ConfigurationError struct {
	RecordType string
	Field      string
	Message    string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.RecordType != "" && e.Field != "":
		return fmt.Sprintf("configuration error in %s.%s: %s", e.RecordType, e.Field, e.Message)
	case e.RecordType != "":
		return fmt.Sprintf("configuration error in %s: %s", e.RecordType, e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// QueryErrorKind classifies a QueryError.
type QueryErrorKind int

const (
	// NoMatchingIndex means no registered index can answer the predicate set.
	NoMatchingIndex QueryErrorKind = iota + 1
	// PrefixTooLong means a StartsWith value is longer than the field's prefix cap.
	PrefixTooLong
	// EmptyPrefix means a StartsWith value was empty.
	EmptyPrefix
	// InvalidPredicate means a predicate names an unknown field or repeats a field.
	InvalidPredicate
)

func (k QueryErrorKind) String() string {
	switch k {
	case NoMatchingIndex:
		return "NoMatchingIndex"
	case PrefixTooLong:
		return "PrefixTooLong"
	case EmptyPrefix:
		return "EmptyPrefix"
	case InvalidPredicate:
		return "InvalidPredicate"
	default:
		return "Unknown"
	}
}

// QueryError is returned by the query planner. It is never retried.
type QueryError struct {
	Kind       QueryErrorKind
	RecordType string
	Fields     []string
	Message    string
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%s: query on %s", e.Kind, e.RecordType)
	if len(e.Fields) > 0 {
		msg += fmt.Sprintf(" [%s]", strings.Join(e.Fields, ","))
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *QueryError) Is(target error) bool {
	return target == ErrQuery
}

// DecodeErrorKind classifies a DecodeError.
type DecodeErrorKind int

const (
	// DecryptionFailed means the cipher provider rejected a ciphertext.
	DecryptionFailed DecodeErrorKind = iota + 1
	// TypeMismatch means a stored attribute does not have the expected shape.
	TypeMismatch
	// MissingDefault means a skipped field has no declared default.
	MissingDefault
	// MissingAttribute means a stored field is absent from the row.
	MissingAttribute
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecryptionFailed:
		return "DecryptionFailed"
	case TypeMismatch:
		return "TypeMismatch"
	case MissingDefault:
		return "MissingDefault"
	case MissingAttribute:
		return "MissingAttribute"
	default:
		return "Unknown"
	}
}

// DecodeError is reported per record; it never aborts a batch of other records.
type DecodeError struct {
	Kind       DecodeErrorKind
	RecordType string
	Field      string
	Err        error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s: decoding %s.%s", e.Kind, e.RecordType, e.Field)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(recordType, key string) error {
	return &NotFoundError{Type: recordType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(recordType, field, format string, args ...any) error {
	return &ConfigurationError{RecordType: recordType, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewQueryError creates a new QueryError
func NewQueryError(kind QueryErrorKind, recordType string, fields []string, format string, args ...any) error {
	return &QueryError{Kind: kind, RecordType: recordType, Fields: fields, Message: fmt.Sprintf(format, args...)}
}

// NewDecodeError creates a new DecodeError
func NewDecodeError(kind DecodeErrorKind, recordType, field string, err error) error {
	return &DecodeError{Kind: kind, RecordType: recordType, Field: field, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsQueryError checks if an error is a query error
func IsQueryError(err error) bool {
	return errors.Is(err, ErrQuery)
}

// IsDecodeError checks if an error is a decode error
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode)
}

// QueryKind returns the kind of a QueryError in err's chain, or 0.
func QueryKind(err error) QueryErrorKind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return 0
}

// DecodeKind returns the kind of a DecodeError in err's chain, or 0.
func DecodeKind(err error) DecodeErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
