package platforms

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/models"
)

func InstagramEndpoints() Endpoints {
	return graphEndpoints(19848)
}

// Instagram publishes through the Instagram Graph API of a business account
// linked to one of the user's Facebook Pages. The business account id is
// kept in the account's ProfileURL.
type Instagram struct {
	base
}

func NewInstagram(d Deps, ep Endpoints) *Instagram {
	return &Instagram{base: newBase(models.PlatformInstagram,
		models.Capabilities{MaxLength: 2200, Comments: true, Replies: true, RequiresImage: true},
		d, ep,
		[]string{
			"instagram_basic",
			"instagram_content_publish",
			"instagram_manage_comments",
			"pages_show_list",
			"pages_read_engagement",
		},
		[]string{"facebook.com", "instagram.com"},
	)}
}

func (c *Instagram) Connect(ctx context.Context) (*models.SocialAccount, error) {
	creds, tok, err := c.authorize(ctx)
	if err != nil {
		return nil, err
	}

	userToken, expires, err := c.exchangeLongLived(ctx, creds, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("Instagram long-lived token exchange failed: %w", err)
	}

	pages, err := c.pages(ctx, userToken, "id,name,access_token,instagram_business_account{id,username}")
	if err != nil {
		return nil, err
	}

	for _, p := range pages {
		if p.Instagram == nil || p.Instagram.ID == "" {
			continue
		}
		name := p.Instagram.Username
		if name == "" {
			name = p.Name
		}
		acc := &models.SocialAccount{
			Name:           name,
			ProfileURL:     p.Instagram.ID,
			TokenExpiresAt: &expires,
		}
		if err := c.save(ctx, acc, userToken, ""); err != nil {
			return nil, err
		}
		return acc, nil
	}
	return nil, fmt.Errorf("%w: no Instagram business account is linked to your Facebook Pages", common.ErrNoPublishTarget)
}

// Publish creates a media container and publishes it.
func (c *Instagram) Publish(ctx context.Context, content string, opts models.PublishOptions) models.PublishResult {
	if r := c.checkLength(content); r != nil {
		return *r
	}
	if opts.ImageURL == "" {
		return models.Failed(models.FailureValidation, "Instagram posts require an image")
	}
	s, err := c.session(ctx)
	if err != nil {
		return c.failure(err)
	}

	igID := s.account.ProfileURL
	container := c.graphID(ctx, igID+"/media", map[string]string{
		"image_url":    opts.ImageURL,
		"caption":      content,
		"access_token": s.token,
	})
	if !container.Success {
		return container
	}

	return c.graphID(ctx, igID+"/media_publish", map[string]string{
		"creation_id":  container.ExternalID,
		"access_token": s.token,
	})
}

func (c *Instagram) GetComments(ctx context.Context, externalID string) []models.Comment {
	out := make([]models.Comment, 0)
	s, err := c.session(ctx)
	if err != nil {
		return out
	}

	var resp struct {
		Data []struct {
			ID        string `json:"id"`
			Text      string `json:"text"`
			Username  string `json:"username"`
			Timestamp string `json:"timestamp"`
		} `json:"data"`
	}
	q := url.Values{"fields": {"id,text,username,timestamp"}, "access_token": {s.token}}
	if err := c.graphGet(ctx, url.PathEscape(externalID)+"/comments", q, &resp); err != nil {
		c.log.Warn(ctx, "failed to fetch comments", "external_id", externalID, "error", err)
		return out
	}

	for _, d := range resp.Data {
		author, authorURL := "Unknown", ""
		if d.Username != "" {
			author, authorURL = d.Username, "https://instagram.com/"+d.Username
		}
		out = append(out, models.Comment{
			ID:         d.ID,
			AuthorName: author,
			AuthorURL:  authorURL,
			Content:    d.Text,
			CreatedAt:  c.parseGraphTime(d.Timestamp),
		})
	}
	return out
}

func (c *Instagram) ReplyToComment(ctx context.Context, commentID, text string) models.PublishResult {
	s, err := c.session(ctx)
	if err != nil {
		return c.failure(err)
	}
	return c.graphID(ctx, url.PathEscape(commentID)+"/replies", map[string]string{
		"message":      text,
		"access_token": s.token,
	})
}
