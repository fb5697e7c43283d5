package models

import "errors"

// Error taxonomy shared by repositories, workflows and handlers.
// All of them are recoverable by retrying.
var (
	// ErrAuthFailure signals bad credentials or an absent session.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrNotFound signals that a referenced document is missing.
	ErrNotFound = errors.New("not found")
	// ErrWriteFailure signals that the store rejected or could not complete a mutation.
	ErrWriteFailure = errors.New("write failed")
	// ErrResolutionFailure signals that the role of a session could not be determined.
	ErrResolutionFailure = errors.New("role resolution failed")
	// ErrInvalidInput signals a request rejected before touching the store.
	ErrInvalidInput = errors.New("invalid input")
)
