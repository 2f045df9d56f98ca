package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/generator"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/posts"
)

// NewPost is the input of Create.
type NewPost struct {
	ArticleID *string
	Platform  models.Platform
	Content   string
	Hashtags  string
}

func (s *Service) Create(ctx context.Context, in NewPost) (*models.Post, error) {
	if !in.Platform.Valid() {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownPlatform, in.Platform)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: post content is empty", common.ErrInvalidInput)
	}

	p := &models.Post{
		ArticleID: in.ArticleID,
		Platform:  in.Platform,
		Content:   in.Content,
		Hashtags:  strings.TrimSpace(in.Hashtags),
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "post created", "post_id", p.ID, "platform", string(p.Platform))
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status models.PostStatus) ([]models.Post, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrInvalidInput, status)
	}
	return s.posts.List(ctx, status)
}

// Edit changes the text of a post that is not being or has not been
// published. Status changes go through Publish and Schedule only.
func (s *Service) Edit(ctx context.Context, id string, content, hashtags *string) (*models.Post, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PostStatusPublishing || p.Status == models.PostStatusPublished {
		return nil, fmt.Errorf("%w: cannot edit post %s in status %s", common.ErrInvalidTransition, id, p.Status)
	}
	if content != nil && strings.TrimSpace(*content) == "" {
		return nil, fmt.Errorf("%w: post content is empty", common.ErrInvalidInput)
	}
	return s.posts.Update(ctx, id, posts.PostPatch{Content: content, Hashtags: hashtags})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "post deleted", "post_id", id)
	return nil
}

// GenerateDraft asks the generator for a post about the article and stores
// it as a draft.
func (s *Service) GenerateDraft(ctx context.Context, articleID string, platform models.Platform) (*models.Post, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("%w: content generator", common.ErrNotConfigured)
	}
	if !platform.Valid() {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownPlatform, platform)
	}

	a, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("article %s: %w", articleID, err)
	}

	req := generator.Request{Article: *a, Platform: platform}
	if c, err := s.clients.Client(platform); err == nil {
		req.MaxLength = c.Capabilities().MaxLength
	}
	d, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	return s.Create(ctx, NewPost{
		ArticleID: &a.ID,
		Platform:  platform,
		Content:   d.Content,
		Hashtags:  d.Hashtags,
	})
}

// Comments lists the comments of a published post. It is best-effort and
// returns an empty list for posts without an external id.
func (s *Service) Comments(ctx context.Context, id string) ([]models.Comment, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ExternalID == nil || *p.ExternalID == "" {
		return []models.Comment{}, nil
	}
	c, err := s.clients.Client(p.Platform)
	if err != nil {
		return nil, err
	}
	return c.GetComments(ctx, *p.ExternalID), nil
}

func (s *Service) Reply(ctx context.Context, platform models.Platform, commentID, text string) (models.PublishResult, error) {
	if strings.TrimSpace(text) == "" {
		return models.PublishResult{}, fmt.Errorf("%w: reply text is empty", common.ErrInvalidInput)
	}
	c, err := s.clients.Client(platform)
	if err != nil {
		return models.PublishResult{}, err
	}

	res := c.ReplyToComment(ctx, commentID, text)
	if !res.Success && strings.TrimSpace(res.Error) == "" {
		res.Error = unknownError
	}
	s.log.Info(ctx, "comment reply", "platform", string(platform), "comment_id", commentID, "success", res.Success)
	return res, nil
}
