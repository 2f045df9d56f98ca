package articles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/dbx"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/timex"
	"github.com/google/uuid"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Insert(ctx context.Context, a *models.Article) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	var image sql.NullString
	if a.ImageURL != nil {
		image = sql.NullString{String: *a.ImageURL, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (id, title, url, summary, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Title, a.URL, a.Summary, image, timex.Format(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	var (
		a         models.Article
		image     sql.NullString
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, url, summary, image_url, created_at FROM articles WHERE id = ?
	`, id).Scan(&a.ID, &a.Title, &a.URL, &a.Summary, &image, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get article %s: %w", id, err)
	}

	if image.Valid && image.String != "" {
		a.ImageURL = &image.String
	}
	if a.CreatedAt, err = timex.Parse(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for article %s: %w", id, err)
	}
	return &a, nil
}
