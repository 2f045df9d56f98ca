package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/credentials"
	"github.com/dmitrijs2005/newsnexus/internal/metrics"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/platforms"
	"github.com/dmitrijs2005/newsnexus/internal/publisher"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/accounts"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/articles"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/posts"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/repotest"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/settings"
	"github.com/dmitrijs2005/newsnexus/internal/vault"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

type stubClient struct {
	platform models.Platform

	mu         sync.Mutex
	result     models.PublishResult
	connected  bool
	replies    []string
	disconnect int
}

func (c *stubClient) Platform() models.Platform { return c.platform }

func (c *stubClient) Capabilities() models.Capabilities {
	return models.Capabilities{MaxLength: 3000, Comments: true, Replies: true}
}

func (c *stubClient) Connect(context.Context) (*models.SocialAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return &models.SocialAccount{Platform: c.platform, Name: "Jane Doe"}, nil
}

func (c *stubClient) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnect++
	return nil
}

func (c *stubClient) IsConnected(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected, nil
}

func (c *stubClient) Publish(context.Context, string, models.PublishOptions) models.PublishResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *stubClient) GetComments(context.Context, string) []models.Comment {
	return []models.Comment{{ID: "c1", AuthorName: "Bob", Content: "Nice"}}
}

func (c *stubClient) ReplyToComment(_ context.Context, commentID, text string) models.PublishResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, commentID+":"+text)
	return models.Succeeded("reply-1")
}

type testEnv struct {
	srv      *Server
	posts    *posts.SQLRepository
	linkedin *stubClient
	reloads  map[models.Platform]int
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	keyring.MockInit()

	db := repotest.NewDB(t)
	e := &testEnv{
		posts:    posts.NewSQLRepository(db),
		linkedin: &stubClient{platform: models.PlatformLinkedIn, result: models.Succeeded("urn:li:share:1")},
		reloads:  map[models.Platform]int{},
	}

	factories := map[models.Platform]platforms.Factory{}
	for _, p := range models.Platforms() {
		factories[p] = func(context.Context) (platforms.Client, error) {
			e.reloads[p]++
			if p == models.PlatformLinkedIn {
				return e.linkedin, nil
			}
			return &stubClient{platform: p, result: models.Succeeded("x")}, nil
		}
	}
	registry, err := platforms.NewRegistry(context.Background(), factories)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)

	svc := publisher.NewService(publisher.Deps{
		Posts:    e.posts,
		Articles: articles.NewSQLRepository(db),
		Clients:  registry,
		Metrics:  m,
	})

	e.srv = NewServer(cfg, Deps{
		Posts:       svc,
		Clients:     registry,
		Accounts:    accounts.NewSQLRepository(db),
		Credentials: credentials.NewService(settings.NewSQLRepository(db), vault.NewKeyringVault("newsnexus-test")),
		Metrics:     m,
		Gatherer:    reg,
	})
	return e
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, response) {
	t.Helper()

	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)

	var out response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (e *testEnv) createPost(t *testing.T) models.Post {
	t.Helper()
	code, res := e.do(t, http.MethodPost, "/api/posts", map[string]any{
		"platform": "linkedin", "content": "Hello", "hashtags": "#go",
	})
	require.Equal(t, http.StatusCreated, code)
	require.True(t, res.Success)
	return decode[models.Post](t, res.Data)
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t, Config{})

	code, res := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)
	assert.JSONEq(t, `{"status":"ok"}`, string(res.Data))
}

func TestPosts_CreateGetList(t *testing.T) {
	e := newTestEnv(t, Config{})
	p := e.createPost(t)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, models.PostStatusDraft, p.Status)

	code, res := e.do(t, http.MethodGet, "/api/posts/"+p.ID, nil)
	require.Equal(t, http.StatusOK, code)
	got := decode[models.Post](t, res.Data)
	assert.Equal(t, "Hello", got.Content)
	assert.Equal(t, "#go", got.Hashtags)

	code, res = e.do(t, http.MethodGet, "/api/posts?status=draft", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.Post](t, res.Data), 1)

	code, res = e.do(t, http.MethodGet, "/api/posts?status=published", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(res.Data))
}

func TestPosts_Errors(t *testing.T) {
	e := newTestEnv(t, Config{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing post", http.MethodGet, "/api/posts/nope", nil, http.StatusNotFound},
		{"unknown platform", http.MethodPost, "/api/posts", map[string]any{"platform": "myspace", "content": "x"}, http.StatusBadRequest},
		{"missing content", http.MethodPost, "/api/posts", map[string]any{"platform": "linkedin"}, http.StatusBadRequest},
		{"blank content", http.MethodPost, "/api/posts", map[string]any{"platform": "linkedin", "content": "   "}, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/api/posts?status=archived", nil, http.StatusBadRequest},
		{"publish missing", http.MethodPost, "/api/posts/nope/publish", nil, http.StatusNotFound},
		{"unknown platform reply", http.MethodPost, "/api/platforms/myspace/comments/c1/reply", map[string]any{"text": "hi"}, http.StatusBadRequest},
		{"generator not configured", http.MethodPost, "/api/posts/generate", map[string]any{"article_id": "a1", "platform": "linkedin"}, http.StatusPreconditionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, res := e.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, code)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestPosts_EditAndDelete(t *testing.T) {
	e := newTestEnv(t, Config{})
	p := e.createPost(t)

	code, res := e.do(t, http.MethodPatch, "/api/posts/"+p.ID, map[string]any{"content": "Edited"})
	require.Equal(t, http.StatusOK, code)
	got := decode[models.Post](t, res.Data)
	assert.Equal(t, "Edited", got.Content)
	assert.Equal(t, "#go", got.Hashtags)

	code, res = e.do(t, http.MethodDelete, "/api/posts/"+p.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)

	code, _ = e.do(t, http.MethodGet, "/api/posts/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPublish(t *testing.T) {
	e := newTestEnv(t, Config{})
	p := e.createPost(t)

	code, res := e.do(t, http.MethodPost, "/api/posts/"+p.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, code)
	got := decode[models.Post](t, res.Data)
	assert.Equal(t, models.PostStatusPublished, got.Status)
	require.NotNil(t, got.ExternalID)
	assert.Equal(t, "urn:li:share:1", *got.ExternalID)

	// повторная публикация запрещена
	code, res = e.do(t, http.MethodPost, "/api/posts/"+p.ID+"/publish", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, res.Error, "status published")
}

func TestPublish_PlatformFailureIsNotHTTPError(t *testing.T) {
	e := newTestEnv(t, Config{})
	e.linkedin.result = models.Failed(models.FailureAPI, "LinkedIn API error: 500 boom")
	p := e.createPost(t)

	code, res := e.do(t, http.MethodPost, "/api/posts/"+p.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)

	got := decode[models.Post](t, res.Data)
	assert.Equal(t, models.PostStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "LinkedIn API error: 500 boom", *got.Error)
}

func TestScheduleAndUnschedule(t *testing.T) {
	e := newTestEnv(t, Config{})
	p := e.createPost(t)
	at := time.Date(2026, 11, 1, 9, 30, 0, 0, time.UTC)

	code, res := e.do(t, http.MethodPost, "/api/posts/"+p.ID+"/schedule", map[string]any{
		"scheduled_at": at.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, code, res.Error)
	got := decode[models.Post](t, res.Data)
	assert.Equal(t, models.PostStatusScheduled, got.Status)
	require.NotNil(t, got.ScheduledAt)
	assert.True(t, at.Equal(*got.ScheduledAt))

	code, res = e.do(t, http.MethodPost, "/api/posts/"+p.ID+"/unschedule", nil)
	require.Equal(t, http.StatusOK, code)
	got = decode[models.Post](t, res.Data)
	assert.Equal(t, models.PostStatusDraft, got.Status)
	assert.Nil(t, got.ScheduledAt)

	code, _ = e.do(t, http.MethodPost, "/api/posts/"+p.ID+"/unschedule", nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestSchedule_BadBody(t *testing.T) {
	e := newTestEnv(t, Config{})
	p := e.createPost(t)

	for _, body := range []any{
		map[string]any{},
		map[string]any{"scheduled_at": "tomorrow"},
	} {
		code, res := e.do(t, http.MethodPost, "/api/posts/"+p.ID+"/schedule", body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, res.Success)
	}
}

func TestCommentsAndReply(t *testing.T) {
	e := newTestEnv(t, Config{})
	p := e.createPost(t)

	code, res := e.do(t, http.MethodGet, "/api/posts/"+p.ID+"/comments", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(res.Data), "unpublished posts have no comments")

	e.do(t, http.MethodPost, "/api/posts/"+p.ID+"/publish", nil)
	code, res = e.do(t, http.MethodGet, "/api/posts/"+p.ID+"/comments", nil)
	require.Equal(t, http.StatusOK, code)
	comments := decode[[]models.Comment](t, res.Data)
	require.Len(t, comments, 1)
	assert.Equal(t, "c1", comments[0].ID)

	code, res = e.do(t, http.MethodPost, "/api/platforms/linkedin/comments/c1/reply", map[string]any{"text": "Thanks"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)
	assert.Equal(t, "reply-1", decode[models.PublishResult](t, res.Data).ExternalID)
	assert.Equal(t, []string{"c1:Thanks"}, e.linkedin.replies)
}

func TestAccounts_ConnectAndDisconnect(t *testing.T) {
	e := newTestEnv(t, Config{})

	code, res := e.do(t, http.MethodPost, "/api/accounts/linkedin/connect", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Jane Doe", decode[models.SocialAccount](t, res.Data).Name)

	code, res = e.do(t, http.MethodGet, "/api/platforms", nil)
	require.Equal(t, http.StatusOK, code)
	infos := decode[[]platformInfo](t, res.Data)
	require.Len(t, infos, 3)
	assert.Equal(t, models.PlatformLinkedIn, infos[0].Platform)
	assert.True(t, infos[0].Connected)
	assert.False(t, infos[1].Connected)

	code, _ = e.do(t, http.MethodDelete, "/api/accounts/linkedin", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, e.linkedin.disconnect)

	code, res = e.do(t, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(res.Data))
}

func TestCredentials_Lifecycle(t *testing.T) {
	e := newTestEnv(t, Config{})
	t.Setenv("LINKEDIN_CLIENT_ID", "")
	t.Setenv("LINKEDIN_CLIENT_SECRET", "")

	code, res := e.do(t, http.MethodGet, "/api/credentials/linkedin", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[credentials.Status](t, res.Data).Configured)

	code, res = e.do(t, http.MethodPut, "/api/credentials/linkedin", map[string]any{
		"client_id": "id", "client_secret": "secret",
	})
	require.Equal(t, http.StatusOK, code, res.Error)
	st := decode[credentials.Status](t, res.Data)
	assert.True(t, st.Configured)
	assert.Equal(t, credentials.SourceStored, st.Source)
	assert.Equal(t, 2, e.reloads[models.PlatformLinkedIn], "client rebuilt after the change")
	assert.NotContains(t, string(res.Data), "secret")

	code, res = e.do(t, http.MethodGet, "/api/credentials", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]credentials.Status](t, res.Data), 3)

	code, _ = e.do(t, http.MethodDelete, "/api/credentials/linkedin", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, e.reloads[models.PlatformLinkedIn])

	_, res = e.do(t, http.MethodGet, "/api/credentials/linkedin", nil)
	assert.False(t, decode[credentials.Status](t, res.Data).Configured)
}

func TestCredentials_VaultUnavailable(t *testing.T) {
	e := newTestEnv(t, Config{})
	keyring.MockInitWithError(errors.New("no secret service"))
	t.Cleanup(keyring.MockInit)

	code, res := e.do(t, http.MethodPut, "/api/credentials/facebook", map[string]any{
		"client_id": "id", "client_secret": "secret",
	})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, res.Success)
	assert.Equal(t, 1, e.reloads[models.PlatformFacebook])
}

func TestTokenAuth(t *testing.T) {
	e := newTestEnv(t, Config{Token: "s3cret"})

	serve := func(path, auth string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		e.srv.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve("/api/posts", ""))
	assert.Equal(t, http.StatusUnauthorized, serve("/api/posts", "Bearer wrong"))
	assert.Equal(t, http.StatusOK, serve("/api/posts", "Bearer s3cret"))
	assert.Equal(t, http.StatusOK, serve("/healthz", ""))
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t, Config{})
	e.do(t, http.MethodGet, "/healthz", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `newsnexus_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestCORS_Preflight(t *testing.T) {
	e := newTestEnv(t, Config{AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	e := newTestEnv(t, Config{Address: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.srv.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error after cancel: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	e := newTestEnv(t, Config{Address: "127.0.0.1:99999"})

	err := e.srv.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid port") {
		t.Fatalf("expected listen error, got %v", err)
	}
}
