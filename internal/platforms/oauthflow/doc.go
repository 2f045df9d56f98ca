// Package oauthflow runs the interactive part of an OAuth 2.0 authorization
// code flow on the desktop: a one-shot loopback callback listener, an
// anti-forgery state token and an authorization view restricted by a
// NavigationPolicy.
//
// The listener is bound only for the duration of one Authorize call and is
// closed on every exit path: callback, user-closed view, context
// cancellation and timeout.
package oauthflow
