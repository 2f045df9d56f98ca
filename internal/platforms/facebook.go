package platforms

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/models"
)

func FacebookEndpoints() Endpoints {
	return graphEndpoints(19849)
}

// Facebook publishes to the first page the user manages. The page id is
// kept in the account's ProfileURL.
type Facebook struct {
	base
}

func NewFacebook(d Deps, ep Endpoints) *Facebook {
	return &Facebook{base: newBase(models.PlatformFacebook,
		models.Capabilities{MaxLength: 63206, Comments: true, Replies: true},
		d, ep,
		[]string{"pages_manage_posts", "pages_read_engagement"},
		[]string{"facebook.com"},
	)}
}

func (c *Facebook) Connect(ctx context.Context) (*models.SocialAccount, error) {
	creds, tok, err := c.authorize(ctx)
	if err != nil {
		return nil, err
	}

	pages, err := c.pages(ctx, tok.AccessToken, "")
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no Facebook Pages found, a Page is needed to publish", common.ErrNoPublishTarget)
	}
	page := pages[0]

	pageToken := page.AccessToken
	expires := c.d.Now().Add(longLivedTTL).UTC()
	if long, _, err := c.exchangeLongLived(ctx, creds, page.AccessToken); err != nil {
		c.log.Warn(ctx, "long-lived page token exchange failed, keeping page token", "error", err)
	} else {
		pageToken = long
	}

	acc := &models.SocialAccount{
		Name:           page.Name,
		ProfileURL:     page.ID,
		TokenExpiresAt: &expires,
	}
	if err := c.save(ctx, acc, pageToken, ""); err != nil {
		return nil, err
	}
	return acc, nil
}

func (c *Facebook) Publish(ctx context.Context, content string, _ models.PublishOptions) models.PublishResult {
	if r := c.checkLength(content); r != nil {
		return *r
	}
	s, err := c.session(ctx)
	if err != nil {
		return c.failure(err)
	}
	return c.graphID(ctx, s.account.ProfileURL+"/feed", map[string]string{
		"message":      content,
		"access_token": s.token,
	})
}

func (c *Facebook) GetComments(ctx context.Context, externalID string) []models.Comment {
	out := make([]models.Comment, 0)
	s, err := c.session(ctx)
	if err != nil {
		return out
	}

	var resp struct {
		Data []struct {
			ID   string `json:"id"`
			From *struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"from"`
			Message     string `json:"message"`
			CreatedTime string `json:"created_time"`
		} `json:"data"`
	}
	q := url.Values{"access_token": {s.token}}
	if err := c.graphGet(ctx, url.PathEscape(externalID)+"/comments", q, &resp); err != nil {
		c.log.Warn(ctx, "failed to fetch comments", "external_id", externalID, "error", err)
		return out
	}

	for _, d := range resp.Data {
		author, authorURL := "Unknown", ""
		if d.From != nil {
			if d.From.Name != "" {
				author = d.From.Name
			}
			if d.From.ID != "" {
				authorURL = "https://facebook.com/" + d.From.ID
			}
		}
		out = append(out, models.Comment{
			ID:         d.ID,
			AuthorName: author,
			AuthorURL:  authorURL,
			Content:    d.Message,
			CreatedAt:  c.parseGraphTime(d.CreatedTime),
		})
	}
	return out
}

func (c *Facebook) ReplyToComment(ctx context.Context, commentID, text string) models.PublishResult {
	s, err := c.session(ctx)
	if err != nil {
		return c.failure(err)
	}
	return c.graphID(ctx, url.PathEscape(commentID)+"/comments", map[string]string{
		"message":      text,
		"access_token": s.token,
	})
}

// parseGraphTime reads Graph API timestamps ("2006-01-02T15:04:05-0700").
func (b *base) parseGraphTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return b.d.Now().UTC()
}
