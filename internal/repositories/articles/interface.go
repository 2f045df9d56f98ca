// Package articles gives the publishing core read access to scraped news
// articles, plus Insert for the producer side and tests.
package articles

import (
	"context"

	"github.com/dmitrijs2005/newsnexus/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, a *models.Article) error
	// GetByID returns common.ErrorNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*models.Article, error)
}
