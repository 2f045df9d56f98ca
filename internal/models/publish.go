package models

import "time"

// FailureKind classifies a failed publish or reply so callers can react
// without parsing messages.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureConfig            FailureKind = "config"
	FailureEncryption        FailureKind = "encryption"
	FailureOAuth             FailureKind = "oauth"
	FailureNotConnected      FailureKind = "not_connected"
	FailureReconnectRequired FailureKind = "reconnect_required"
	FailureAPI               FailureKind = "api"
	FailureNetwork           FailureKind = "network"
	FailureValidation        FailureKind = "validation"
	FailureUnknownPlatform   FailureKind = "unknown_platform"
	FailureInternal          FailureKind = "internal"
)

// PublishOptions carries optional, platform specific inputs.
type PublishOptions struct {
	// ImageURL must be publicly reachable; Instagram requires it.
	ImageURL string
}

// PublishResult is the tagged outcome of a publish or reply call.
type PublishResult struct {
	Success    bool        `json:"success"`
	ExternalID string      `json:"external_id,omitempty"`
	Error      string      `json:"error,omitempty"`
	Kind       FailureKind `json:"kind,omitempty"`
}

func Succeeded(externalID string) PublishResult {
	return PublishResult{Success: true, ExternalID: externalID}
}

func Failed(kind FailureKind, msg string) PublishResult {
	return PublishResult{Kind: kind, Error: msg}
}

// Comment is a platform comment normalized across networks.
type Comment struct {
	ID         string    `json:"id"`
	AuthorName string    `json:"author_name"`
	AuthorURL  string    `json:"author_url"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
