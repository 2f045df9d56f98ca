package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/dbx"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/timex"
	"github.com/google/uuid"
)

const selectColumns = `id, article_id, platform, content, hashtags, status, scheduled_at, published_at, external_id, error, created_at`

type SQLRepository struct {
	db  dbx.Conn
	now func() time.Time
}

func NewSQLRepository(db dbx.Conn) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(s rowScanner) (*models.Post, error) {
	var (
		p                      models.Post
		articleID, externalID  sql.NullString
		errText                sql.NullString
		scheduledAt, published sql.NullString
		platform, status       string
		createdAt              string
	)
	if err := s.Scan(&p.ID, &articleID, &platform, &p.Content, &p.Hashtags, &status,
		&scheduledAt, &published, &externalID, &errText, &createdAt); err != nil {
		return nil, err
	}

	p.Platform = models.Platform(platform)
	p.Status = models.PostStatus(status)
	p.ArticleID = nullStringPtr(articleID)
	p.ExternalID = nullStringPtr(externalID)
	p.Error = nullStringPtr(errText)

	var err error
	if p.ScheduledAt, err = timex.ParseNull(scheduledAt); err != nil {
		return nil, fmt.Errorf("bad scheduled_at: %w", err)
	}
	if p.PublishedAt, err = timex.ParseNull(published); err != nil {
		return nil, fmt.Errorf("bad published_at: %w", err)
	}
	if p.CreatedAt, err = timex.Parse(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	return &p, nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func ptrNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *SQLRepository) Create(ctx context.Context, p *models.Post) error {
	p.ID = uuid.NewString()
	p.Status = models.PostStatusDraft
	p.CreatedAt = r.now().UTC()
	p.ScheduledAt, p.PublishedAt, p.ExternalID, p.Error = nil, nil, nil, nil

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (id, article_id, platform, content, hashtags, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, ptrNullString(p.ArticleID), string(p.Platform), p.Content, p.Hashtags, string(p.Status), timex.Format(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func getByID(ctx context.Context, db dbx.DBTX, id string) (*models.Post, error) {
	row := db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get post %s: %w", id, err)
	}
	return p, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return getByID(ctx, r.db, id)
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	result := make([]models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) List(ctx context.Context, status models.PostStatus) ([]models.Post, error) {
	if status == "" {
		return r.query(ctx, `SELECT `+selectColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
	}
	return r.query(ctx, `SELECT `+selectColumns+` FROM posts WHERE status = ? ORDER BY created_at DESC, id DESC`, string(status))
}

func (r *SQLRepository) Due(ctx context.Context, now time.Time) ([]models.Post, error) {
	return r.query(ctx, `
		SELECT `+selectColumns+` FROM posts
		WHERE status = 'scheduled' AND scheduled_at <= ?
		ORDER BY scheduled_at ASC, created_at ASC
	`, timex.Format(now))
}

// apply folds patch into p and restores the scheduled_at invariant.
func apply(p *models.Post, patch PostPatch) error {
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Hashtags != nil {
		p.Hashtags = *patch.Hashtags
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return fmt.Errorf("%w: unknown status %q", common.ErrInvalidTransition, *patch.Status)
		}
		p.Status = *patch.Status
	}
	if patch.ScheduledAt != nil {
		if patch.ScheduledAt.Valid {
			t := patch.ScheduledAt.Time.UTC()
			p.ScheduledAt = &t
		} else {
			p.ScheduledAt = nil
		}
	}
	if patch.PublishedAt != nil {
		if patch.PublishedAt.Valid {
			t := patch.PublishedAt.Time.UTC()
			p.PublishedAt = &t
		} else {
			p.PublishedAt = nil
		}
	}
	if patch.ExternalID != nil {
		p.ExternalID = nullStringPtr(*patch.ExternalID)
	}
	if patch.Error != nil {
		p.Error = nullStringPtr(*patch.Error)
	}

	switch {
	case p.Status == models.PostStatusScheduled && p.ScheduledAt == nil:
		return fmt.Errorf("%w: scheduled post needs scheduled_at", common.ErrInvalidSchedule)
	case p.Status != models.PostStatusScheduled && patch.ScheduledAt != nil && patch.ScheduledAt.Valid:
		return fmt.Errorf("%w: scheduled_at requires status scheduled", common.ErrInvalidSchedule)
	case p.Status != models.PostStatusScheduled:
		p.ScheduledAt = nil
	}
	return nil
}

func (r *SQLRepository) Update(ctx context.Context, id string, patch PostPatch) (*models.Post, error) {
	var updated *models.Post
	err := r.db.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		p, err := getByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := apply(p, patch); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE posts
			SET content = ?, hashtags = ?, status = ?, scheduled_at = ?, published_at = ?, external_id = ?, error = ?
			WHERE id = ?
		`, p.Content, p.Hashtags, string(p.Status), timex.FormatPtr(p.ScheduledAt), timex.FormatPtr(p.PublishedAt),
			ptrNullString(p.ExternalID), ptrNullString(p.Error), id)
		if err != nil {
			return fmt.Errorf("failed to update post %s: %w", id, err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete post %s: %w", id, err)
	}
	return nil
}

// inStatuses renders "status IN (?, ...)" and appends the values to args.
func inStatuses(args []any, from []models.PostStatus) (string, []any) {
	for _, s := range from {
		args = append(args, string(s))
	}
	return "status IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ") + ")", args
}

// conditional runs an UPDATE and reports whether exactly one row changed.
func (r *SQLRepository) conditional(ctx context.Context, op, id, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s post %s: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to %s post %s: %w", op, id, err)
	}
	return n == 1, nil
}

func (r *SQLRepository) Claim(ctx context.Context, id string, from ...models.PostStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	cond, args := inStatuses([]any{id}, from)
	return r.conditional(ctx, "claim", id, `
		UPDATE posts SET status = 'publishing', error = NULL, scheduled_at = NULL
		WHERE id = ? AND `+cond, args...)
}

func (r *SQLRepository) Schedule(ctx context.Context, id string, at time.Time, from ...models.PostStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	cond, args := inStatuses([]any{timex.Format(at), id}, from)
	return r.conditional(ctx, "schedule", id, `
		UPDATE posts SET status = 'scheduled', scheduled_at = ?
		WHERE id = ? AND `+cond, args...)
}

func (r *SQLRepository) Unschedule(ctx context.Context, id string) (bool, error) {
	return r.conditional(ctx, "unschedule", id, `
		UPDATE posts SET status = 'draft', scheduled_at = NULL
		WHERE id = ? AND status = 'scheduled'`, id)
}

func (r *SQLRepository) MarkPublished(ctx context.Context, id, externalID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts SET status = 'published', published_at = ?, external_id = ?, error = NULL
		WHERE id = ? AND status = 'publishing'
	`, timex.Format(at), externalID, id)
	return checkTransition(res, err, id, models.PostStatusPublished)
}

func (r *SQLRepository) MarkFailed(ctx context.Context, id, message string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts SET status = 'failed', error = ?, scheduled_at = NULL
		WHERE id = ? AND status = 'publishing'
	`, message, id)
	return checkTransition(res, err, id, models.PostStatusFailed)
}

func checkTransition(res sql.Result, err error, id string, to models.PostStatus) error {
	if err != nil {
		return fmt.Errorf("failed to mark post %s %s: %w", id, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark post %s %s: %w", id, to, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: post %s is not publishing", common.ErrInvalidTransition, id)
	}
	return nil
}
