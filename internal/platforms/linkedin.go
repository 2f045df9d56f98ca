package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/netx"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const linkedInProfilePrefix = "https://linkedin.com/in/"

func LinkedInEndpoints() Endpoints {
	return Endpoints{
		AuthURL:      "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:     "https://www.linkedin.com/oauth/v2/accessToken",
		APIBase:      "https://api.linkedin.com",
		CallbackPort: 19847,
	}
}

// LinkedIn publishes member posts through the UGC API.
type LinkedIn struct {
	base
}

func NewLinkedIn(d Deps, ep Endpoints) *LinkedIn {
	c := &LinkedIn{base: newBase(models.PlatformLinkedIn,
		models.Capabilities{MaxLength: 3000, Comments: true},
		d, ep,
		[]string{"openid", "profile", "w_member_social"},
		[]string{"linkedin.com"},
	)}
	c.refresh = c.refreshToken
	return c
}

type linkedInProfile struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}

func (c *LinkedIn) Connect(ctx context.Context) (*models.SocialAccount, error) {
	_, tok, err := c.authorize(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := c.profile(ctx, tok)
	if err != nil {
		return nil, err
	}

	name := profile.Name
	if name == "" {
		name = "LinkedIn User"
	}
	acc := &models.SocialAccount{
		Name:           name,
		ProfileURL:     linkedInProfilePrefix + profile.Sub,
		TokenExpiresAt: expiryOf(tok),
	}
	if err := c.save(ctx, acc, tok.AccessToken, tok.RefreshToken); err != nil {
		return nil, err
	}
	return acc, nil
}

// profile reads /v2/userinfo and falls back to the OIDC id_token claims.
func (c *LinkedIn) profile(ctx context.Context, tok *oauth2.Token) (*linkedInProfile, error) {
	var p linkedInProfile
	err := netx.DoJSON(ctx, c.d.HTTPClient, http.MethodGet, c.ep.APIBase+"/v2/userinfo",
		map[string]string{"Authorization": "Bearer " + tok.AccessToken}, nil, &p)
	if err == nil && p.Sub != "" {
		return &p, nil
	}
	if err != nil {
		c.log.Warn(ctx, "userinfo lookup failed, trying id_token", "error", err)
	}

	if raw, ok := tok.Extra("id_token").(string); ok && raw != "" {
		claims := jwt.MapClaims{}
		if _, _, perr := jwt.NewParser().ParseUnverified(raw, claims); perr == nil {
			sub, _ := claims.GetSubject()
			name, _ := claims["name"].(string)
			if sub != "" {
				return &linkedInProfile{Sub: sub, Name: name}, nil
			}
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read LinkedIn profile: %w", err)
	}
	return nil, fmt.Errorf("failed to read LinkedIn profile: no member id returned")
}

// refreshToken exchanges the stored refresh token and persists the result.
func (c *LinkedIn) refreshToken(ctx context.Context, acc *models.SocialAccount) (string, error) {
	refresh, err := c.d.Vault.Decrypt(acc.RefreshTokenEncrypted)
	if err != nil {
		return "", err
	}
	creds, err := c.d.Credentials.Get(ctx, c.platform)
	if err != nil {
		return "", err
	}

	tok, err := c.oauthConfig(creds).TokenSource(c.httpContext(ctx), &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		return "", err
	}
	if tok.RefreshToken != "" {
		refresh = tok.RefreshToken
	}

	accessEnc, err := c.d.Vault.Encrypt(tok.AccessToken)
	if err != nil {
		return "", err
	}
	refreshEnc, err := c.d.Vault.Encrypt(refresh)
	if err != nil {
		return "", err
	}
	if err := c.d.Accounts.UpdateTokens(ctx, c.platform, accessEnc, refreshEnc, expiryOf(tok)); err != nil {
		return "", err
	}

	c.log.Info(ctx, "access token refreshed")
	return tok.AccessToken, nil
}

func (c *LinkedIn) headers(token string) map[string]string {
	return map[string]string{
		"Authorization":             "Bearer " + token,
		"X-Restli-Protocol-Version": "2.0.0",
	}
}

func (c *LinkedIn) Publish(ctx context.Context, content string, _ models.PublishOptions) models.PublishResult {
	if r := c.checkLength(content); r != nil {
		return *r
	}
	s, err := c.session(ctx)
	if err != nil {
		return c.failure(err)
	}

	body := map[string]any{
		"author":         "urn:li:person:" + path.Base(s.account.ProfileURL),
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": content},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := netx.DoJSON(ctx, c.d.HTTPClient, http.MethodPost, c.ep.APIBase+"/v2/ugcPosts", c.headers(s.token), body, &out); err != nil {
		return c.failure(err)
	}
	return models.Succeeded(out.ID)
}

func (c *LinkedIn) GetComments(ctx context.Context, externalID string) []models.Comment {
	out := make([]models.Comment, 0)
	s, err := c.session(ctx)
	if err != nil {
		return out
	}

	var resp struct {
		Elements []struct {
			ID      string `json:"id"`
			Actor   string `json:"actor"`
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
			Created struct {
				Time int64 `json:"time"`
			} `json:"created"`
		} `json:"elements"`
	}
	u := c.ep.APIBase + "/v2/socialActions/" + url.PathEscape(externalID) + "/comments"
	if err := netx.DoJSON(ctx, c.d.HTTPClient, http.MethodGet, u, c.headers(s.token), nil, &resp); err != nil {
		c.log.Warn(ctx, "failed to fetch comments", "external_id", externalID, "error", err)
		return out
	}

	for _, el := range resp.Elements {
		created := c.d.Now().UTC()
		if el.Created.Time > 0 {
			created = time.UnixMilli(el.Created.Time).UTC()
		}
		author := el.Actor
		if author == "" {
			author = "Unknown"
		}
		out = append(out, models.Comment{
			ID:         el.ID,
			AuthorName: author,
			Content:    el.Message.Text,
			CreatedAt:  created,
		})
	}
	return out
}

// ReplyToComment is not offered by the member UGC API.
func (c *LinkedIn) ReplyToComment(ctx context.Context, _, _ string) models.PublishResult {
	if _, err := c.session(ctx); err != nil {
		return c.failure(err)
	}
	return c.failure(fmt.Errorf("replying to comments is %w LinkedIn", common.ErrUnsupportedFeature))
}
