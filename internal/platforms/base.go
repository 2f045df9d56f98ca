package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/credentials"
	"github.com/dmitrijs2005/newsnexus/internal/logging"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/netx"
	"github.com/dmitrijs2005/newsnexus/internal/platforms/oauthflow"
	"golang.org/x/oauth2"
)

// base carries the behaviour every platform client shares.
type base struct {
	platform     models.Platform
	caps         models.Capabilities
	d            Deps
	ep           Endpoints
	scopes       []string
	hostSuffixes []string
	log          logging.Logger

	// refresh renews an expired access token; nil means the platform
	// requires a reconnect instead.
	refresh func(ctx context.Context, acc *models.SocialAccount) (string, error)
}

func newBase(p models.Platform, caps models.Capabilities, d Deps, ep Endpoints, scopes, hosts []string) base {
	d = d.withDefaults()
	return base{
		platform:     p,
		caps:         caps,
		d:            d,
		ep:           ep,
		scopes:       scopes,
		hostSuffixes: hosts,
		log:          d.Logger.With("module", "platforms", "platform", string(p)),
	}
}

func (b *base) Platform() models.Platform {
	return b.platform
}

func (b *base) Capabilities() models.Capabilities {
	return b.caps
}

func (b *base) IsConnected(ctx context.Context) (bool, error) {
	_, err := b.d.Accounts.GetByPlatform(ctx, b.platform)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *base) Disconnect(ctx context.Context) error {
	if err := b.d.Accounts.DeleteByPlatform(ctx, b.platform); err != nil {
		return err
	}
	b.log.Info(ctx, "account disconnected")
	return nil
}

func (b *base) oauthConfig(creds *credentials.AppCredentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   b.ep.AuthURL,
			TokenURL:  b.ep.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: b.scopes,
	}
}

// httpContext makes oauth2 use the client's HTTP client.
func (b *base) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.d.HTTPClient)
}

// authorize checks application credentials, runs the interactive flow and
// exchanges the code. No listener is started without credentials.
func (b *base) authorize(ctx context.Context) (*credentials.AppCredentials, *oauth2.Token, error) {
	creds, err := b.d.Credentials.Get(ctx, b.platform)
	if err != nil {
		return nil, nil, err
	}

	cfg := b.oauthConfig(creds)
	flow := oauthflow.New(oauthflow.Config{
		Port:         b.ep.CallbackPort,
		Timeout:      b.d.OAuthTimeout,
		HostSuffixes: b.hostSuffixes,
	}, b.d.Authorizer, b.log)

	grant, err := flow.Authorize(ctx, func(redirectURI, state string) string {
		cfg.RedirectURL = redirectURI
		return cfg.AuthCodeURL(state)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s authorization failed: %w", b.platform.DisplayName(), err)
	}

	tok, err := cfg.Exchange(b.httpContext(ctx), grant.Code)
	if err != nil {
		return nil, nil, fmt.Errorf("%s token exchange failed: %w", b.platform.DisplayName(), err)
	}
	return creds, tok, nil
}

// save encrypts the tokens and replaces the platform's account row. The
// vault is checked before anything is written.
func (b *base) save(ctx context.Context, acc *models.SocialAccount, access, refresh string) error {
	if !b.d.Vault.IsAvailable() {
		return fmt.Errorf("cannot store %s tokens: %w", b.platform.DisplayName(), common.ErrEncryptionUnavailable)
	}

	var err error
	if acc.AccessTokenEncrypted, err = b.d.Vault.Encrypt(access); err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	acc.RefreshTokenEncrypted = ""
	if refresh != "" {
		if acc.RefreshTokenEncrypted, err = b.d.Vault.Encrypt(refresh); err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	acc.ID = ""
	acc.Platform = b.platform
	acc.CreatedAt = b.d.Now().UTC()
	if err := b.d.Accounts.Replace(ctx, acc); err != nil {
		return err
	}

	b.log.Info(ctx, "account connected", "name", acc.Name, "profile", acc.ProfileURL)
	return nil
}

type session struct {
	token   string
	account *models.SocialAccount
}

// session resolves a usable access token, enforcing the stored expiry
// before any network call.
func (b *base) session(ctx context.Context) (*session, error) {
	acc, err := b.d.Accounts.GetByPlatform(ctx, b.platform)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrNotConnected
	}
	if err != nil {
		return nil, err
	}

	if acc.Expired(b.d.Now()) {
		if b.refresh == nil || acc.RefreshTokenEncrypted == "" {
			return nil, common.ErrReconnectRequired
		}
		tok, err := b.refresh(ctx, acc)
		if err != nil {
			b.log.Warn(ctx, "token refresh failed", "error", err)
			return nil, fmt.Errorf("%w: %v", common.ErrReconnectRequired, err)
		}
		return &session{token: tok, account: acc}, nil
	}

	tok, err := b.d.Vault.Decrypt(acc.AccessTokenEncrypted)
	if err != nil {
		if !errors.Is(err, common.ErrEncryptionUnavailable) {
			err = fmt.Errorf("%w: %v", common.ErrEncryptionUnavailable, err)
		}
		return nil, err
	}
	return &session{token: tok, account: acc}, nil
}

// failure converts err into the tagged publish result.
func (b *base) failure(err error) models.PublishResult {
	name := b.platform.DisplayName()

	if se, ok := netx.AsStatusError(err); ok {
		return models.Failed(models.FailureAPI, fmt.Sprintf("%s API error: %d %s", name, se.Status, se.Body))
	}

	var ue *url.Error
	switch {
	case errors.Is(err, common.ErrNotConnected):
		return models.Failed(models.FailureNotConnected, "Not connected to "+name)
	case errors.Is(err, common.ErrReconnectRequired):
		return models.Failed(models.FailureReconnectRequired, name+" access token has expired. Please reconnect.")
	case errors.Is(err, common.ErrEncryptionUnavailable):
		return models.Failed(models.FailureEncryption, err.Error())
	case errors.Is(err, common.ErrNotConfigured):
		return models.Failed(models.FailureConfig, err.Error())
	case errors.Is(err, common.ErrUnsupportedFeature):
		return models.Failed(models.FailureValidation, err.Error())
	case errors.As(err, &ue):
		return models.Failed(models.FailureNetwork, err.Error())
	default:
		return models.Failed(models.FailureInternal, err.Error())
	}
}

// checkLength rejects content over the platform limit.
func (b *base) checkLength(content string) *models.PublishResult {
	if n := utf8.RuneCountInString(content); b.caps.MaxLength > 0 && n > b.caps.MaxLength {
		r := models.Failed(models.FailureValidation,
			fmt.Sprintf("%s posts are limited to %d characters (got %d)", b.platform.DisplayName(), b.caps.MaxLength, n))
		return &r
	}
	return nil
}

func expiryOf(tok *oauth2.Token) *time.Time {
	if tok.Expiry.IsZero() {
		return nil
	}
	t := tok.Expiry.UTC()
	return &t
}
