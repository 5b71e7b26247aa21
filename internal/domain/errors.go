package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrNotFound        = errors.New("resource not found")
	ErrUpstream        = errors.New("upstream service error")

	// ErrConflict signals a duplicate-key race on conversation creation.
	// It is resolved internally by retrying the lookup and never reaches
	// API callers.
	ErrConflict = errors.New("resource already exists")
)
