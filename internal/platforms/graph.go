package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/credentials"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/netx"
)

// Facebook and Instagram both talk to the Graph API.

const (
	graphVersion = "v18.0"
	// longLivedTTL is used when the Graph API does not report an expiry.
	longLivedTTL = 60 * 24 * time.Hour
)

func graphEndpoints(port int) Endpoints {
	return Endpoints{
		AuthURL:      "https://www.facebook.com/" + graphVersion + "/dialog/oauth",
		TokenURL:     "https://graph.facebook.com/" + graphVersion + "/oauth/access_token",
		APIBase:      "https://graph.facebook.com/" + graphVersion,
		CallbackPort: port,
	}
}

type graphPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	Instagram   *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"instagram_business_account"`
}

func (b *base) graphGet(ctx context.Context, p string, q url.Values, out any) error {
	u := b.ep.APIBase + "/" + p
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return netx.DoJSON(ctx, b.d.HTTPClient, http.MethodGet, u, nil, nil, out)
}

func (b *base) graphPost(ctx context.Context, p string, body map[string]string, out any) error {
	return netx.DoJSON(ctx, b.d.HTTPClient, http.MethodPost, b.ep.APIBase+"/"+p, nil, body, out)
}

// pages lists the pages the user manages.
func (b *base) pages(ctx context.Context, userToken, fields string) ([]graphPage, error) {
	q := url.Values{"access_token": {userToken}}
	if fields != "" {
		q.Set("fields", fields)
	}
	var resp struct {
		Data []graphPage `json:"data"`
	}
	if err := b.graphGet(ctx, "me/accounts", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to list %s pages: %w", b.platform.DisplayName(), err)
	}
	return resp.Data, nil
}

// exchangeLongLived trades token for a long-lived one. The returned expiry
// falls back to longLivedTTL.
func (b *base) exchangeLongLived(ctx context.Context, creds *credentials.AppCredentials, token string) (string, time.Time, error) {
	q := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {creds.ClientID},
		"client_secret":     {creds.ClientSecret},
		"fb_exchange_token": {token},
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := b.graphGet(ctx, "oauth/access_token", q, &resp); err != nil {
		return "", time.Time{}, err
	}
	if resp.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("long-lived token exchange returned no token")
	}

	ttl := longLivedTTL
	if resp.ExpiresIn > 0 {
		ttl = time.Duration(resp.ExpiresIn) * time.Second
	}
	return resp.AccessToken, b.d.Now().Add(ttl).UTC(), nil
}

// graphID posts to a Graph edge and returns the created object id.
func (b *base) graphID(ctx context.Context, p string, body map[string]string) models.PublishResult {
	var out struct {
		ID string `json:"id"`
	}
	if err := b.graphPost(ctx, p, body, &out); err != nil {
		return b.failure(err)
	}
	return models.Succeeded(out.ID)
}
