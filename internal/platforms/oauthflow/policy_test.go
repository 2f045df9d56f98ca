package oauthflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigationPolicy_Allows(t *testing.T) {
	p := NavigationPolicy{
		HostSuffixes:   []string{"facebook.com"},
		CallbackOrigin: "http://127.0.0.1:19849",
	}

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.facebook.com/v18.0/dialog/oauth", true},
		{"https://facebook.com/login", true},
		{"https://m.facebook.com/", true},
		{"http://www.facebook.com/", false},
		{"https://notfacebook.com/", false},
		{"https://facebook.com.evil.io/", false},
		{"http://127.0.0.1:19849/callback?code=1", true},
		{"http://127.0.0.1:19848/callback", false},
		{"http://localhost:19849/callback", false},
		{"javascript:alert(1)", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Allows(tt.url))
		})
	}
	assert.False(t, p.AllowsPopup("https://www.facebook.com/"))
}

func TestBrowserAuthorizer(t *testing.T) {
	orig := openURL
	defer func() { openURL = orig }()

	var opened string
	openURL = func(u string) error {
		opened = u
		return nil
	}

	p := NavigationPolicy{HostSuffixes: []string{"linkedin.com"}}
	v, err := BrowserAuthorizer{}.Open(context.Background(), "https://www.linkedin.com/oauth", p)
	require.NoError(t, err)
	assert.Equal(t, "https://www.linkedin.com/oauth", opened)
	assert.Nil(t, v.Done())
	assert.NoError(t, v.Close())

	opened = ""
	_, err = BrowserAuthorizer{}.Open(context.Background(), "https://phish.example/oauth", p)
	require.Error(t, err)
	assert.Empty(t, opened)

	openURL = func(string) error { return errors.New("no browser") }
	_, err = BrowserAuthorizer{}.Open(context.Background(), "https://www.linkedin.com/oauth", p)
	require.ErrorContains(t, err, "no browser")
}
