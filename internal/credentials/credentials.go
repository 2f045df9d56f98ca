// Package credentials stores the application-level OAuth client id/secret of
// each platform as a vault-encrypted blob in the settings table, falling back
// to environment variables.
//
// An absent blob means "not configured", which is reported as
// common.ErrNotConfigured. A blob that exists but cannot be decrypted is an
// encryption failure and never degrades to "not configured".
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/settings"
	"github.com/dmitrijs2005/newsnexus/internal/vault"
)

const (
	SourceStored = "stored"
	SourceEnv    = "env"
)

// AppCredentials is the decrypted client id/secret pair of one platform.
type AppCredentials struct {
	ClientID     string
	ClientSecret string
	Source       string
}

// Status describes configuration without revealing secrets.
type Status struct {
	Platform   models.Platform `json:"platform"`
	Configured bool            `json:"configured"`
	Source     string          `json:"source,omitempty"`
}

// Source is what platform clients depend on.
type Source interface {
	Get(ctx context.Context, p models.Platform) (*AppCredentials, error)
}

type blob struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type Service struct {
	settings settings.Repository
	vault    vault.Vault
	getenv   func(string) string
}

func NewService(s settings.Repository, v vault.Vault) *Service {
	return &Service{settings: s, vault: v, getenv: os.Getenv}
}

// Key is the settings key holding the blob of p.
func Key(p models.Platform) string {
	return string(p) + "_config"
}

// EnvNames returns the environment variables consulted for p.
func EnvNames(p models.Platform) (id, secret string) {
	switch p {
	case models.PlatformFacebook:
		return "FACEBOOK_APP_ID", "FACEBOOK_APP_SECRET"
	case models.PlatformInstagram:
		return "INSTAGRAM_APP_ID", "INSTAGRAM_APP_SECRET"
	default:
		prefix := strings.ToUpper(string(p))
		return prefix + "_CLIENT_ID", prefix + "_CLIENT_SECRET"
	}
}

func (s *Service) Get(ctx context.Context, p models.Platform) (*AppCredentials, error) {
	raw, ok, err := s.settings.Get(ctx, Key(p))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s credentials: %w", p, err)
	}
	if ok {
		var b blob
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("malformed %s credential blob: %w", p, err)
		}
		id, err := s.decrypt(b.ClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt %s client id: %w", p, err)
		}
		secret, err := s.decrypt(b.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt %s client secret: %w", p, err)
		}
		if id != "" && secret != "" {
			return &AppCredentials{ClientID: id, ClientSecret: secret, Source: SourceStored}, nil
		}
	}

	idVar, secretVar := EnvNames(p)
	if id, secret := s.getenv(idVar), s.getenv(secretVar); id != "" && secret != "" {
		return &AppCredentials{ClientID: id, ClientSecret: secret, Source: SourceEnv}, nil
	}

	return nil, fmt.Errorf("%w: %s client id and secret are missing (save them in settings or set %s and %s)",
		common.ErrNotConfigured, p, idVar, secretVar)
}

// decrypt reports every failure as an encryption failure.
func (s *Service) decrypt(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	plain, err := s.vault.Decrypt(v)
	if err == nil {
		return plain, nil
	}
	if errors.Is(err, common.ErrEncryptionUnavailable) {
		return "", err
	}
	return "", fmt.Errorf("%w: %v", common.ErrEncryptionUnavailable, err)
}

// Set encrypts and stores the pair. Nothing is written when the vault is
// unavailable.
func (s *Service) Set(ctx context.Context, p models.Platform, clientID, clientSecret string) error {
	clientID, clientSecret = strings.TrimSpace(clientID), strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("%w: %s client id and secret must both be set", common.ErrNotConfigured, p)
	}
	if !s.vault.IsAvailable() {
		return common.ErrEncryptionUnavailable
	}

	var (
		b   blob
		err error
	)
	if b.ClientID, err = s.vault.Encrypt(clientID); err != nil {
		return fmt.Errorf("failed to encrypt %s client id: %w", p, err)
	}
	if b.ClientSecret, err = s.vault.Encrypt(clientSecret); err != nil {
		return fmt.Errorf("failed to encrypt %s client secret: %w", p, err)
	}

	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := s.settings.Set(ctx, Key(p), string(raw)); err != nil {
		return fmt.Errorf("failed to store %s credentials: %w", p, err)
	}
	return nil
}

// Status reports where credentials for p would come from, without
// decrypting anything.
func (s *Service) Status(ctx context.Context, p models.Platform) (Status, error) {
	st := Status{Platform: p}

	_, ok, err := s.settings.Get(ctx, Key(p))
	if err != nil {
		return st, fmt.Errorf("failed to read %s credentials: %w", p, err)
	}
	if ok {
		st.Configured, st.Source = true, SourceStored
		return st, nil
	}

	idVar, secretVar := EnvNames(p)
	if s.getenv(idVar) != "" && s.getenv(secretVar) != "" {
		st.Configured, st.Source = true, SourceEnv
	}
	return st, nil
}

func (s *Service) Configured(ctx context.Context, p models.Platform) (bool, error) {
	st, err := s.Status(ctx, p)
	return st.Configured, err
}

func (s *Service) Delete(ctx context.Context, p models.Platform) error {
	if err := s.settings.Delete(ctx, Key(p)); err != nil {
		return fmt.Errorf("failed to delete %s credentials: %w", p, err)
	}
	return nil
}
