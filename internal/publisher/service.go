package publisher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/generator"
	"github.com/dmitrijs2005/newsnexus/internal/logging"
	"github.com/dmitrijs2005/newsnexus/internal/media"
	"github.com/dmitrijs2005/newsnexus/internal/metrics"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/platforms"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/articles"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/posts"
)

const unknownError = "Unknown error"

// publishableFrom are the statuses a post may be published from.
var publishableFrom = []models.PostStatus{
	models.PostStatusDraft,
	models.PostStatusFailed,
	models.PostStatusScheduled,
}

type Deps struct {
	Posts     posts.Repository
	Articles  articles.Repository
	Clients   platforms.Lookup
	Stager    media.Stager
	Generator generator.Generator
	Metrics   *metrics.Registry
	Logger    logging.Logger
	Now       func() time.Time
}

type Service struct {
	posts     posts.Repository
	articles  articles.Repository
	clients   platforms.Lookup
	stager    media.Stager
	generator generator.Generator
	metrics   *metrics.Registry
	log       logging.Logger
	now       func() time.Time
}

func NewService(d Deps) *Service {
	if d.Stager == nil {
		d.Stager = media.Passthrough{}
	}
	if d.Logger == nil {
		d.Logger = logging.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		posts:     d.Posts,
		articles:  d.Articles,
		clients:   d.Clients,
		stager:    d.Stager,
		generator: d.Generator,
		metrics:   d.Metrics,
		log:       d.Logger.With("module", "publisher"),
		now:       d.Now,
	}
}

// Publish claims the post and publishes it now. A failed platform call is
// not an error: the returned post carries status failed and the message.
// Once claimed, the attempt runs to completion even if ctx is cancelled, so
// the post always reaches published or failed.
func (s *Service) Publish(ctx context.Context, id string) (*models.Post, error) {
	ok, err := s.posts.Claim(ctx, id, publishableFrom...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.refusal(ctx, id, "publish")
	}

	ctx = context.WithoutCancel(ctx)
	s.attempt(ctx, id)
	return s.posts.GetByID(ctx, id)
}

// Schedule sets the time a post is published by the scheduler. Times in the
// past are accepted; the next tick picks them up.
func (s *Service) Schedule(ctx context.Context, id string, at time.Time) (*models.Post, error) {
	if at.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", common.ErrInvalidSchedule)
	}
	ok, err := s.posts.Schedule(ctx, id, at.UTC(), publishableFrom...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.refusal(ctx, id, "schedule")
	}

	s.log.Info(ctx, "post scheduled", "post_id", id, "scheduled_at", at.UTC())
	return s.posts.GetByID(ctx, id)
}

func (s *Service) Unschedule(ctx context.Context, id string) (*models.Post, error) {
	ok, err := s.posts.Unschedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.refusal(ctx, id, "unschedule")
	}

	s.log.Info(ctx, "post unscheduled", "post_id", id)
	return s.posts.GetByID(ctx, id)
}

// refusal explains why a conditional transition did not apply.
func (s *Service) refusal(ctx context.Context, id, op string) error {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: cannot %s post %s in status %s", common.ErrInvalidTransition, op, id, p.Status)
}

// Summary counts the outcomes of one PublishDue run.
type Summary struct {
	Due       int
	Published int
	Failed    int
	// Skipped posts were claimed by someone else first.
	Skipped int
}

// PublishDue publishes every due post sequentially, earliest first. One
// post's failure or panic never stops the rest.
func (s *Service) PublishDue(ctx context.Context) (Summary, error) {
	due, err := s.posts.Due(ctx, s.now().UTC())
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Due: len(due)}
	for _, p := range due {
		ok, err := s.posts.Claim(ctx, p.ID, models.PostStatusScheduled)
		if err != nil {
			s.log.Error(ctx, "claim failed", "post_id", p.ID, "platform", string(p.Platform), "error", err)
			sum.Failed++
			continue
		}
		if !ok {
			sum.Skipped++
			continue
		}

		if s.attempt(ctx, p.ID).Success {
			sum.Published++
		} else {
			sum.Failed++
		}
	}

	s.metrics.ObserveTick(sum.Published, sum.Failed, sum.Skipped)
	if sum.Due > 0 {
		s.log.Info(ctx, "due posts processed",
			"due", sum.Due, "published", sum.Published, "failed", sum.Failed, "skipped", sum.Skipped)
	}
	return sum, nil
}

// attempt publishes a post already claimed into publishing and records the
// terminal state. Panics are recovered and recorded as the post's error.
func (s *Service) attempt(ctx context.Context, id string) (res models.PublishResult) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			s.log.Error(ctx, "publish attempt panicked", "post_id", id, "panic", msg, "stack", string(debug.Stack()))
			s.fail(ctx, id, "", msg)
			res = models.Failed(models.FailureInternal, msg)
		}
	}()

	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		s.fail(ctx, id, "", err.Error())
		return models.Failed(models.FailureInternal, err.Error())
	}
	log := s.log.With("post_id", p.ID, "platform", string(p.Platform))
	log.Info(ctx, "publishing post")

	client, err := s.clients.Client(p.Platform)
	if err != nil {
		msg := "Unknown platform: " + string(p.Platform)
		s.fail(ctx, p.ID, p.Platform, msg)
		return models.Failed(models.FailureUnknownPlatform, msg)
	}

	opts := s.options(ctx, p, client.Capabilities())

	start := s.now()
	res = client.Publish(ctx, p.FullContent(), opts)
	s.metrics.ObservePublish(string(p.Platform), res.Success, s.now().Sub(start))

	if !res.Success {
		if strings.TrimSpace(res.Error) == "" {
			res.Error = unknownError
		}
		s.fail(ctx, p.ID, p.Platform, res.Error)
		return res
	}

	if err := s.posts.MarkPublished(ctx, p.ID, res.ExternalID, s.now().UTC()); err != nil {
		// the platform has the post; leave the row in publishing for audit
		log.Error(ctx, "failed to record published post", "external_id", res.ExternalID, "error", err)
		return res
	}
	log.Info(ctx, "post published", "external_id", res.ExternalID)
	return res
}

func (s *Service) fail(ctx context.Context, id string, p models.Platform, msg string) {
	if err := s.posts.MarkFailed(ctx, id, msg); err != nil {
		s.log.Error(ctx, "failed to record failed post", "post_id", id, "platform", string(p), "error", err)
		return
	}
	s.log.Warn(ctx, "post failed", "post_id", id, "platform", string(p), "error", msg)
}

// options resolves the article image, best-effort.
func (s *Service) options(ctx context.Context, p *models.Post, caps models.Capabilities) models.PublishOptions {
	var opts models.PublishOptions
	if p.ArticleID == nil || s.articles == nil {
		return opts
	}

	a, err := s.articles.GetByID(ctx, *p.ArticleID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "article lookup failed", "post_id", p.ID, "article_id", *p.ArticleID, "error", err)
		}
		return opts
	}
	if a.ImageURL == nil || *a.ImageURL == "" {
		return opts
	}

	opts.ImageURL = *a.ImageURL
	if caps.RequiresImage {
		opts.ImageURL = s.stager.Stage(ctx, opts.ImageURL)
	}
	return opts
}
