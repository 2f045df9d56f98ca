// Package common defines shared sentinel errors and small helpers used across
// the newsnexus daemon and CLI. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Credential and vault errors.
	ErrNotConfigured         = errors.New("credentials not configured")
	ErrEncryptionUnavailable = errors.New("system keychain encryption is not available")

	// OAuth flow errors.
	ErrStateMismatch          = errors.New("oauth state mismatch")
	ErrOAuthDenied            = errors.New("oauth authorization denied")
	ErrOAuthTimeout           = errors.New("oauth timeout")
	ErrAuthorizationCancelled = errors.New("authorization window closed")
	ErrNoAuthorizationCode    = errors.New("no authorization code received")

	// Account lifecycle errors.
	ErrNotConnected       = errors.New("account not connected")
	ErrReconnectRequired  = errors.New("access token expired, reconnect required")
	ErrNoPublishTarget    = errors.New("no publishable target found")
	ErrUnknownPlatform    = errors.New("unknown platform")
	ErrUnsupportedFeature = errors.New("not supported by platform")

	// Post lifecycle errors.
	ErrInvalidTransition = errors.New("invalid post status transition")
	ErrInvalidSchedule   = errors.New("invalid schedule")

	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
