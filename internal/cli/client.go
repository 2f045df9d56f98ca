package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/credentials"
	"github.com/dmitrijs2005/newsnexus/internal/models"
)

// APIError is a request the daemon answered with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// PlatformInfo mirrors a row of GET /api/platforms.
type PlatformInfo struct {
	Platform     models.Platform     `json:"platform"`
	Name         string              `json:"name"`
	Capabilities models.Capabilities `json:"capabilities"`
	Configured   bool                `json:"configured"`
	Connected    bool                `json:"connected"`
}

// Client talks to the daemon. Deadlines come from the caller's context.
type Client struct {
	base  string
	token string
	http  *http.Client
}

func NewClient(base, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{base: strings.TrimRight(base, "/"), token: token, http: hc}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("unexpected response (HTTP %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) ListPosts(ctx context.Context, status string) ([]models.Post, error) {
	path := "/api/posts"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out []models.Post
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePost(ctx context.Context, platform models.Platform, content, hashtags string) (*models.Post, error) {
	in := map[string]any{"platform": platform, "content": content, "hashtags": hashtags}
	var out models.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GeneratePost(ctx context.Context, articleID string, platform models.Platform) (*models.Post, error) {
	in := map[string]any{"article_id": articleID, "platform": platform}
	var out models.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts/generate", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/posts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) postAction(ctx context.Context, id, action string, in any) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(id)+"/"+action, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Publish(ctx context.Context, id string) (*models.Post, error) {
	return c.postAction(ctx, id, "publish", nil)
}

func (c *Client) Schedule(ctx context.Context, id string, at time.Time) (*models.Post, error) {
	return c.postAction(ctx, id, "schedule", map[string]any{"scheduled_at": at.Format(time.RFC3339)})
}

func (c *Client) Unschedule(ctx context.Context, id string) (*models.Post, error) {
	return c.postAction(ctx, id, "unschedule", nil)
}

func (c *Client) Comments(ctx context.Context, id string) ([]models.Comment, error) {
	var out []models.Comment
	err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(id)+"/comments", nil, &out)
	return out, err
}

func (c *Client) Reply(ctx context.Context, platform models.Platform, commentID, text string) (*models.PublishResult, error) {
	path := fmt.Sprintf("/api/platforms/%s/comments/%s/reply", platform, url.PathEscape(commentID))
	var out models.PublishResult
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Platforms(ctx context.Context) ([]PlatformInfo, error) {
	var out []PlatformInfo
	err := c.do(ctx, http.MethodGet, "/api/platforms", nil, &out)
	return out, err
}

func (c *Client) Connect(ctx context.Context, platform models.Platform) (*models.SocialAccount, error) {
	var out models.SocialAccount
	if err := c.do(ctx, http.MethodPost, "/api/accounts/"+string(platform)+"/connect", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Disconnect(ctx context.Context, platform models.Platform) error {
	return c.do(ctx, http.MethodDelete, "/api/accounts/"+string(platform), nil, nil)
}

func (c *Client) SetCredentials(ctx context.Context, platform models.Platform, clientID, clientSecret string) (*credentials.Status, error) {
	in := map[string]any{"client_id": clientID, "client_secret": clientSecret}
	var out credentials.Status
	if err := c.do(ctx, http.MethodPut, "/api/credentials/"+string(platform), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCredentials(ctx context.Context, platform models.Platform) error {
	return c.do(ctx, http.MethodDelete, "/api/credentials/"+string(platform), nil, nil)
}
