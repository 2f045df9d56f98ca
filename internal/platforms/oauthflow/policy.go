package oauthflow

import (
	"net/url"
	"strings"
)

// NavigationPolicy restricts where an authorization view may go: hosts
// under one of HostSuffixes over https, or the exact callback origin.
// Popups and new windows are never allowed.
type NavigationPolicy struct {
	HostSuffixes   []string
	CallbackOrigin string
}

// Allows reports whether the view may navigate to raw.
func (p NavigationPolicy) Allows(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}

	if p.CallbackOrigin != "" && u.Scheme+"://"+u.Host == p.CallbackOrigin {
		return true
	}
	if u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, suffix := range p.HostSuffixes {
		suffix = strings.ToLower(strings.TrimPrefix(suffix, "."))
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// AllowsPopup is always false.
func (NavigationPolicy) AllowsPopup(string) bool {
	return false
}
