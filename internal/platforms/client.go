package platforms

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/credentials"
	"github.com/dmitrijs2005/newsnexus/internal/logging"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/platforms/oauthflow"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/accounts"
	"github.com/dmitrijs2005/newsnexus/internal/vault"
)

type Client interface {
	Platform() models.Platform
	Capabilities() models.Capabilities
	// Connect runs the interactive OAuth flow and stores the account,
	// replacing any previous one for the platform.
	Connect(ctx context.Context) (*models.SocialAccount, error)
	Disconnect(ctx context.Context) error
	IsConnected(ctx context.Context) (bool, error)
	Publish(ctx context.Context, content string, opts models.PublishOptions) models.PublishResult
	GetComments(ctx context.Context, externalID string) []models.Comment
	ReplyToComment(ctx context.Context, commentID, text string) models.PublishResult
}

// Deps are the collaborators shared by every platform client.
type Deps struct {
	Credentials  credentials.Source
	Accounts     accounts.Repository
	Vault        vault.Vault
	Authorizer   oauthflow.Authorizer
	HTTPClient   *http.Client
	Logger       logging.Logger
	OAuthTimeout time.Duration
	Now          func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if d.Logger == nil {
		d.Logger = logging.Nop{}
	}
	if d.Authorizer == nil {
		d.Authorizer = oauthflow.BrowserAuthorizer{}
	}
	if d.OAuthTimeout <= 0 {
		d.OAuthTimeout = oauthflow.DefaultTimeout
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Endpoints are the remote URLs and local callback port of one platform.
// Tests point them at httptest servers and port 0.
type Endpoints struct {
	AuthURL      string
	TokenURL     string
	APIBase      string
	CallbackPort int
}
