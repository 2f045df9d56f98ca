package models

import (
	"strings"
	"time"
)

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublishing, PostStatusPublished, PostStatusFailed:
		return true
	}
	return false
}

// Post is one piece of content targeted at one platform.
//
// ScheduledAt is set iff Status is scheduled. PublishedAt and ExternalID are
// set only after a successful publish. Error holds the last failure and is
// cleared when a new attempt starts.
type Post struct {
	ID          string     `json:"id"`
	ArticleID   *string    `json:"article_id"`
	Platform    Platform   `json:"platform"`
	Content     string     `json:"content"`
	Hashtags    string     `json:"hashtags"`
	Status      PostStatus `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	PublishedAt *time.Time `json:"published_at"`
	ExternalID  *string    `json:"external_id"`
	Error       *string    `json:"error"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FullContent is the text sent to the platform: body, blank line, hashtags.
// Hashtags are omitted when blank.
func (p *Post) FullContent() string {
	if strings.TrimSpace(p.Hashtags) == "" {
		return p.Content
	}
	return p.Content + "\n\n" + p.Hashtags
}
