package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/models"
)

type Repository interface {
	// Replace removes any account of a.Platform and stores a in one
	// transaction. Missing ID and CreatedAt are filled in.
	Replace(ctx context.Context, a *models.SocialAccount) error
	// GetByPlatform returns common.ErrorNotFound when nothing is connected.
	GetByPlatform(ctx context.Context, p models.Platform) (*models.SocialAccount, error)
	// List omits token columns.
	List(ctx context.Context) ([]models.SocialAccount, error)
	DeleteByPlatform(ctx context.Context, p models.Platform) error
	DeleteByID(ctx context.Context, id string) error
	UpdateTokens(ctx context.Context, p models.Platform, accessEnc, refreshEnc string, expiresAt *time.Time) error
}
