// Package common defines shared constants and sentinel errors used across
// client and server layers of gophauth. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors surfaced to callers.
	ErrPermissionDenied     = errors.New("permission denied")
	ErrUserExists           = errors.New("user exists")
	ErrInvalidConfirmToken  = errors.New("invalid confirm token")
	ErrUnsupportedGrantType = errors.New("unsupported grant type")

	// ErrStore wraps any persistence failure, including timeouts.
	ErrStore = errors.New("store error")

	// Auth errors (invalid, expired, wrong-purpose or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Client-side errors.
	ErrUnavailable = errors.New("service unavailable")
)
