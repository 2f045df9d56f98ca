package posts

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/models"
)

// PostPatch lists the mutable columns of a post. A nil field is left
// untouched; an invalid Null* value writes NULL.
type PostPatch struct {
	Content     *string
	Hashtags    *string
	Status      *models.PostStatus
	ScheduledAt *sql.NullTime
	PublishedAt *sql.NullTime
	ExternalID  *sql.NullString
	Error       *sql.NullString
}

type Repository interface {
	// Create stores p as a new draft, assigning ID and CreatedAt.
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns posts newest first; an empty status means all.
	List(ctx context.Context, status models.PostStatus) ([]models.Post, error)
	Update(ctx context.Context, id string, patch PostPatch) (*models.Post, error)
	Delete(ctx context.Context, id string) error

	// Due returns scheduled posts with scheduled_at <= now, earliest first.
	Due(ctx context.Context, now time.Time) ([]models.Post, error)
	// Claim moves the post to publishing if its status is one of from,
	// clearing error and scheduled_at. It reports false when the post was
	// not in an allowed status.
	Claim(ctx context.Context, id string, from ...models.PostStatus) (bool, error)
	// Schedule sets status scheduled and scheduled_at if the post is in one
	// of from. Unschedule returns a scheduled post to draft.
	Schedule(ctx context.Context, id string, at time.Time, from ...models.PostStatus) (bool, error)
	Unschedule(ctx context.Context, id string) (bool, error)
	MarkPublished(ctx context.Context, id, externalID string, at time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
}
