package oauthflow

import (
	"context"
	"fmt"

	"github.com/pkg/browser"
)

// View is an open authorization view. Done is closed when the user closes
// it; a view that cannot report that returns a channel that never closes.
type View interface {
	Done() <-chan struct{}
	Close() error
}

// Authorizer opens a user-facing view on authURL that honours policy.
type Authorizer interface {
	Open(ctx context.Context, authURL string, policy NavigationPolicy) (View, error)
}

// openURL is a seam for tests.
var openURL = browser.OpenURL

// BrowserAuthorizer hands the authorization URL to the system browser. The
// browser cannot be constrained after launch, so the policy is enforced on
// the URL being opened and the callback handler only accepts one request.
type BrowserAuthorizer struct{}

func (BrowserAuthorizer) Open(_ context.Context, authURL string, policy NavigationPolicy) (View, error) {
	if !policy.Allows(authURL) {
		return nil, fmt.Errorf("authorization url %q is outside the allowed hosts", authURL)
	}
	if err := openURL(authURL); err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	return browserView{}, nil
}

type browserView struct{}

func (browserView) Done() <-chan struct{} { return nil }
func (browserView) Close() error          { return nil }
