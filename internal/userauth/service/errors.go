package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrStorageFailure     = errors.New("storage_failure")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrUserConflict       = errors.New("user_conflict")
)

// UnauthorizedReason says why a session token was rejected. It is for logs
// and metrics only; clients always see a generic invalid_token.
type UnauthorizedReason string

const (
	ReasonExpired         UnauthorizedReason = "expired"
	ReasonMalformed       UnauthorizedReason = "malformed"
	ReasonBadSignature    UnauthorizedReason = "bad_signature"
	ReasonRevoked         UnauthorizedReason = "revoked"
	ReasonSubjectNotFound UnauthorizedReason = "subject_not_found"
	ReasonSubjectDisabled UnauthorizedReason = "subject_disabled"
)

// UnauthorizedError is returned by token validation. It matches
// ErrUnauthorized under errors.Is.
type UnauthorizedError struct {
	Reason UnauthorizedReason
	Err    error
}

func (e *UnauthorizedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthorized (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unauthorized (%s)", e.Reason)
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *UnauthorizedError) Unwrap() error        { return e.Err }

func unauthorized(reason UnauthorizedReason, err error) error {
	return &UnauthorizedError{Reason: reason, Err: err}
}

// ReasonOf returns the rejection reason carried by err, if any.
func ReasonOf(err error) (UnauthorizedReason, bool) {
	var ue *UnauthorizedError
	if errors.As(err, &ue) {
		return ue.Reason, true
	}
	return "", false
}

// StorageError wraps a failure of the user directory or the blacklist. It
// matches ErrStorageFailure under errors.Is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool { return target == ErrStorageFailure }
func (e *StorageError) Unwrap() error        { return e.Err }

func storageFailure(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// ValidationError carries per-field input errors. It matches ErrInvalidRequest.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string        { return e.Err.Error() }
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }
func (e *ValidationError) Unwrap() error        { return e.Err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}
