package accounts

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
	db  dbx.Conn
	now func() time.Time
}

func NewSQLRepository(db dbx.Conn) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

func (r *SQLRepository) Replace(ctx context.Context, a *models.SocialAccount) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now().UTC()
	}

	return r.db.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM social_accounts WHERE platform = ?`, string(a.Platform)); err != nil {
			return fmt.Errorf("failed to delete previous %s account: %w", a.Platform, err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO social_accounts
				(id, platform, name, profile_url, access_token_encrypted, refresh_token_encrypted, token_expires_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, string(a.Platform), a.Name, a.ProfileURL, a.AccessTokenEncrypted, a.RefreshTokenEncrypted,
			timex.FormatPtr(a.TokenExpiresAt), timex.Format(a.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert %s account: %w", a.Platform, err)
		}
		return nil
	})
}

func (r *SQLRepository) GetByPlatform(ctx context.Context, p models.Platform) (*models.SocialAccount, error) {
	var (
		a         models.SocialAccount
		platform  string
		expiresAt sql.NullString
		createdAt string
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, platform, name, profile_url, access_token_encrypted, refresh_token_encrypted, token_expires_at, created_at
		FROM social_accounts WHERE platform = ?
	`, string(p)).Scan(&a.ID, &platform, &a.Name, &a.ProfileURL, &a.AccessTokenEncrypted, &a.RefreshTokenEncrypted, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get %s account: %w", p, err)
	}

	a.Platform = models.Platform(platform)
	if a.TokenExpiresAt, err = timex.ParseNull(expiresAt); err != nil {
		return nil, fmt.Errorf("bad token_expires_at for %s account: %w", p, err)
	}
	if a.CreatedAt, err = timex.Parse(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for %s account: %w", p, err)
	}
	return &a, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, platform, name, profile_url, token_expires_at, created_at
		FROM social_accounts ORDER BY platform
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	result := make([]models.SocialAccount, 0)
	for rows.Next() {
		var (
			a         models.SocialAccount
			platform  string
			expiresAt sql.NullString
			createdAt string
		)
		if err := rows.Scan(&a.ID, &platform, &a.Name, &a.ProfileURL, &expiresAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		a.Platform = models.Platform(platform)
		if a.TokenExpiresAt, err = timex.ParseNull(expiresAt); err != nil {
			return nil, fmt.Errorf("bad token_expires_at for %s account: %w", platform, err)
		}
		if a.CreatedAt, err = timex.Parse(createdAt); err != nil {
			return nil, fmt.Errorf("bad created_at for %s account: %w", platform, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account rows: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) DeleteByPlatform(ctx context.Context, p models.Platform) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM social_accounts WHERE platform = ?`, string(p)); err != nil {
		return fmt.Errorf("failed to delete %s account: %w", p, err)
	}
	return nil
}

func (r *SQLRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM social_accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, err)
	}
	return nil
}

func (r *SQLRepository) UpdateTokens(ctx context.Context, p models.Platform, accessEnc, refreshEnc string, expiresAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE social_accounts
		SET access_token_encrypted = ?, refresh_token_encrypted = ?, token_expires_at = ?
		WHERE platform = ?
	`, accessEnc, refreshEnc, timex.FormatPtr(expiresAt), string(p))
	if err != nil {
		return fmt.Errorf("failed to update %s tokens: %w", p, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s tokens: %w", p, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
