package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/credentials"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/platforms/oauthflow"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/accounts"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/repotest"
	"github.com/dmitrijs2005/newsnexus/internal/vault"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

type fakeCreds map[models.Platform]*credentials.AppCredentials

func (f fakeCreds) Get(_ context.Context, p models.Platform) (*credentials.AppCredentials, error) {
	c, ok := f[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrNotConfigured, p)
	}
	return c, nil
}

// autoAuthorizer approves immediately by calling the callback with a code.
type autoAuthorizer struct {
	mu      sync.Mutex
	opened  int
	authURL string
	// forgedState replaces the real state when set.
	forgedState string
}

func (a *autoAuthorizer) Open(_ context.Context, authURL string, policy oauthflow.NavigationPolicy) (oauthflow.View, error) {
	a.mu.Lock()
	a.opened++
	a.authURL = authURL
	forged := a.forgedState
	a.mu.Unlock()

	u, err := url.Parse(authURL)
	if err != nil {
		return nil, err
	}
	redirect := u.Query().Get("redirect_uri")
	if !policy.Allows(redirect) {
		return nil, fmt.Errorf("redirect %s not allowed", redirect)
	}
	state := u.Query().Get("state")
	if forged != "" {
		state = forged
	}

	go func() {
		resp, err := http.Get(redirect + "?" + url.Values{"code": {"test-code"}, "state": {state}}.Encode())
		if err == nil {
			_ = resp.Body.Close()
		}
	}()
	return noopView{}, nil
}

func (a *autoAuthorizer) openedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opened
}

type noopView struct{}

func (noopView) Done() <-chan struct{} { return nil }
func (noopView) Close() error          { return nil }

type env struct {
	t        *testing.T
	deps     Deps
	creds    fakeCreds
	accounts accounts.Repository
	vault    vault.Vault
	auth     *autoAuthorizer
	mux      *http.ServeMux
	srv      *httptest.Server
	now      time.Time

	mu       sync.Mutex
	hits     map[string]int
	recorded map[string]string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	keyring.MockInit()

	e := &env{
		t:     t,
		creds: fakeCreds{},
		auth:  &autoAuthorizer{},
		mux:   http.NewServeMux(),
		now:   time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		hits:  map[string]int{},

		recorded: map[string]string{},
	}
	for _, p := range models.Platforms() {
		e.creds[p] = &credentials.AppCredentials{ClientID: string(p) + "-id", ClientSecret: string(p) + "-secret"}
	}
	e.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		e.hits[r.Method+" "+r.URL.Path]++
		e.mu.Unlock()
		e.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(e.srv.Close)

	e.accounts = accounts.NewSQLRepository(repotest.NewDB(t))
	e.vault = vault.NewKeyringVault("newsnexus-test")
	e.deps = Deps{
		Credentials:  e.creds,
		Accounts:     e.accounts,
		Vault:        e.vault,
		Authorizer:   e.auth,
		HTTPClient:   e.srv.Client(),
		OAuthTimeout: 5 * time.Second,
		Now:          func() time.Time { return e.now },
	}
	return e
}

func (e *env) endpoints() Endpoints {
	return Endpoints{
		AuthURL:      e.srv.URL + "/auth",
		TokenURL:     e.srv.URL + "/oauth/access_token",
		APIBase:      e.srv.URL,
		CallbackPort: 0,
	}
}

func (e *env) hit(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits[key]
}

// record keeps a value seen by a handler for later assertions.
func (e *env) record(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorded[key] = value
}

func (e *env) seen(key string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recorded[key]
}

func (e *env) handle(pattern string, h http.HandlerFunc) {
	e.mux.HandleFunc(pattern, h)
}

// store puts an already connected account in place.
func (e *env) store(p models.Platform, profile, access, refresh string, expires *time.Time) {
	e.t.Helper()
	acc := &models.SocialAccount{Platform: p, Name: "stored", ProfileURL: profile, TokenExpiresAt: expires}
	var err error
	acc.AccessTokenEncrypted, err = e.vault.Encrypt(access)
	require.NoError(e.t, err)
	if refresh != "" {
		acc.RefreshTokenEncrypted, err = e.vault.Encrypt(refresh)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, e.accounts.Replace(context.Background(), acc))
}

func (e *env) decrypt(s string) string {
	e.t.Helper()
	v, err := e.vault.Decrypt(s)
	require.NoError(e.t, err)
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		t.Errorf("decode request body: %v", err)
	}
	return m
}
