// Package platforms normalizes the LinkedIn, Instagram and Facebook APIs
// behind one Client contract.
//
// Every client owns its OAuth endpoints, scopes and callback port; shared
// plumbing (credential lookup, token persistence through the vault, expiry
// checks, error shaping) lives in base. Clients are registered in a Registry
// keyed by platform and are looked up from there, never through globals.
//
// Publish and ReplyToComment never return Go errors for expected failures;
// the outcome is a models.PublishResult tagged with a FailureKind.
// GetComments is best-effort and returns an empty slice on any failure.
package platforms
