package oauthflow

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuthorizer plays the user: on Open it optionally hits the callback
// with the query returned by respond.
type fakeAuthorizer struct {
	mu       sync.Mutex
	authURL  string
	policy   NavigationPolicy
	opened   int
	closed   int
	done     chan struct{}
	openErr  error
	respond  func(state string) url.Values
	callback chan *http.Response
}

func (a *fakeAuthorizer) Open(ctx context.Context, authURL string, policy NavigationPolicy) (View, error) {
	a.mu.Lock()
	a.authURL, a.policy = authURL, policy
	a.opened++
	a.mu.Unlock()

	if a.openErr != nil {
		return nil, a.openErr
	}

	if a.respond != nil {
		u, err := url.Parse(authURL)
		if err != nil {
			return nil, err
		}
		redirect := u.Query().Get("redirect_uri")
		q := a.respond(u.Query().Get("state"))
		go func() {
			resp, err := http.Get(redirect + "?" + q.Encode())
			if err == nil && a.callback != nil {
				a.callback <- resp
			}
		}()
	}
	return a, nil
}

func (a *fakeAuthorizer) Done() <-chan struct{} { return a.done }

func (a *fakeAuthorizer) Close() error {
	a.mu.Lock()
	a.closed++
	a.mu.Unlock()
	return nil
}

func buildURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return "https://www.linkedin.com/oauth/v2/authorization?" + q.Encode()
}

func redirectHost(t *testing.T, a *fakeAuthorizer) string {
	t.Helper()
	u, err := url.Parse(a.authURL)
	require.NoError(t, err)
	r, err := url.Parse(u.Query().Get("redirect_uri"))
	require.NoError(t, err)
	return "127.0.0.1:" + r.Port()
}

func assertListenerClosed(t *testing.T, addr string) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	if err == nil {
		_ = conn.Close()
		t.Fatalf("listener %s still accepting connections", addr)
	}
}

func TestAuthorize_Success(t *testing.T) {
	a := &fakeAuthorizer{
		respond: func(state string) url.Values {
			return url.Values{"code": {"abc"}, "state": {state}}
		},
		callback: make(chan *http.Response, 1),
	}
	f := New(Config{HostSuffixes: []string{"linkedin.com"}, Timeout: 5 * time.Second}, a, nil)

	g, err := f.Authorize(context.Background(), buildURL)
	require.NoError(t, err)
	assert.Equal(t, "abc", g.Code)
	assert.Regexp(t, `^http://127\.0\.0\.1:\d+/callback$`, g.RedirectURI)

	resp := <-a.callback
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Authorization complete")

	assert.Equal(t, 1, a.opened)
	assert.Equal(t, 1, a.closed)
	assert.True(t, a.policy.Allows(g.RedirectURI+"?code=x"))
	assert.True(t, a.policy.Allows("https://www.linkedin.com/login"))
	assert.False(t, a.policy.Allows("https://evil.example.com/"))
	assertListenerClosed(t, redirectHost(t, a))
}

func TestAuthorize_CallbackErrors(t *testing.T) {
	tests := []struct {
		name    string
		respond func(state string) url.Values
		wantErr error
	}{
		{
			name:    "state mismatch",
			respond: func(string) url.Values { return url.Values{"code": {"abc"}, "state": {"forged"}} },
			wantErr: common.ErrStateMismatch,
		},
		{
			name: "denied wins over state",
			respond: func(string) url.Values {
				return url.Values{"error": {"access_denied"}, "state": {"forged"}}
			},
			wantErr: common.ErrOAuthDenied,
		},
		{
			name:    "missing code",
			respond: func(state string) url.Values { return url.Values{"state": {state}} },
			wantErr: common.ErrNoAuthorizationCode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAuthorizer{respond: tt.respond, callback: make(chan *http.Response, 1)}
			f := New(Config{Timeout: 5 * time.Second}, a, nil)

			g, err := f.Authorize(context.Background(), buildURL)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, g)

			// страница не должна сообщать об успехе
			resp := <-a.callback
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			assert.Contains(t, string(body), "Authorization failed")
			assert.NotContains(t, string(body), "Authorization complete")
			assertListenerClosed(t, redirectHost(t, a))
		})
	}
}

func TestAuthorize_Timeout(t *testing.T) {
	a := &fakeAuthorizer{}
	f := New(Config{Timeout: 50 * time.Millisecond}, a, nil)

	_, err := f.Authorize(context.Background(), buildURL)
	require.ErrorIs(t, err, common.ErrOAuthTimeout)
	assert.Equal(t, 1, a.closed)
	assertListenerClosed(t, redirectHost(t, a))
}

func TestAuthorize_ViewClosedByUser(t *testing.T) {
	done := make(chan struct{})
	close(done)
	a := &fakeAuthorizer{done: done}
	f := New(Config{Timeout: 5 * time.Second}, a, nil)

	_, err := f.Authorize(context.Background(), buildURL)
	require.ErrorIs(t, err, common.ErrAuthorizationCancelled)
	assertListenerClosed(t, redirectHost(t, a))
}

func TestAuthorize_ContextCancelled(t *testing.T) {
	a := &fakeAuthorizer{}
	f := New(Config{Timeout: 5 * time.Second}, a, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := f.Authorize(ctx, buildURL)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assertListenerClosed(t, redirectHost(t, a))
}

func TestAuthorize_OpenError(t *testing.T) {
	boom := errors.New("no display")
	a := &fakeAuthorizer{openErr: boom}
	f := New(Config{Timeout: 5 * time.Second}, a, nil)

	_, err := f.Authorize(context.Background(), buildURL)
	require.ErrorIs(t, err, boom)
	assertListenerClosed(t, redirectHost(t, a))
}

func TestAuthorize_PortBusy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	a := &fakeAuthorizer{}
	f := New(Config{Port: ln.Addr().(*net.TCPAddr).Port}, a, nil)

	_, err = f.Authorize(context.Background(), buildURL)
	require.Error(t, err)
	assert.Equal(t, 0, a.opened)
}

func TestCallbackHandler_OnlyFirstRequestCounts(t *testing.T) {
	f := New(Config{}, &fakeAuthorizer{}, nil)
	results := make(chan callbackResult, 1)
	ts := httptest.NewServer(f.callbackHandler("st", results))
	defer ts.Close()

	resp, err := http.Get(ts.URL + CallbackPath + "?code=c1&state=st")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + CallbackPath + "?code=c2&state=st")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)

	r := <-results
	require.NoError(t, r.err)
	assert.Equal(t, "c1", r.code)

	resp, err = http.Get(ts.URL + "/other")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
