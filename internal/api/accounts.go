package api

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/newsnexus/internal/credentials"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/gin-gonic/gin"
)

// platformInfo is one row of GET /api/platforms.
type platformInfo struct {
	Platform     models.Platform     `json:"platform"`
	Name         string              `json:"name"`
	Capabilities models.Capabilities `json:"capabilities"`
	Configured   bool                `json:"configured"`
	Connected    bool                `json:"connected"`
}

type credentialsRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

func (s *Server) listPlatforms(c *gin.Context) {
	ctx := c.Request.Context()

	out := make([]platformInfo, 0, len(models.Platforms()))
	for _, p := range models.Platforms() {
		client, err := s.Clients.Client(p)
		if err != nil {
			continue
		}
		info := platformInfo{Platform: p, Name: p.DisplayName(), Capabilities: client.Capabilities()}

		st, err := s.Credentials.Status(ctx, p)
		if err != nil {
			s.handleError(c, err)
			return
		}
		info.Configured = st.Configured

		if info.Connected, err = client.IsConnected(ctx); err != nil {
			s.handleError(c, err)
			return
		}
		out = append(out, info)
	}
	ok(c, http.StatusOK, out)
}

func (s *Server) listAccounts(c *gin.Context) {
	list, err := s.Accounts.List(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}
	if list == nil {
		list = []models.SocialAccount{}
	}
	ok(c, http.StatusOK, list)
}

// connectAccount blocks until the user finishes (or abandons) the browser
// authorization.
func (s *Server) connectAccount(c *gin.Context) {
	p, valid := platformParam(c)
	if !valid {
		return
	}
	client, err := s.Clients.Client(p)
	if err != nil {
		s.handleError(c, err)
		return
	}

	acc, err := client.Connect(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.logger.Info(c.Request.Context(), "account connected", "platform", string(p), "name", acc.Name)
	ok(c, http.StatusOK, acc)
}

func (s *Server) disconnectAccount(c *gin.Context) {
	p, valid := platformParam(c)
	if !valid {
		return
	}
	client, err := s.Clients.Client(p)
	if err != nil {
		s.handleError(c, err)
		return
	}

	if err := client.Disconnect(c.Request.Context()); err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}

func (s *Server) listCredentials(c *gin.Context) {
	out := make([]credentials.Status, 0, len(models.Platforms()))
	for _, p := range models.Platforms() {
		st, err := s.Credentials.Status(c.Request.Context(), p)
		if err != nil {
			s.handleError(c, err)
			return
		}
		out = append(out, st)
	}
	ok(c, http.StatusOK, out)
}

func (s *Server) getCredentials(c *gin.Context) {
	p, valid := platformParam(c)
	if !valid {
		return
	}
	st, err := s.Credentials.Status(c.Request.Context(), p)
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

func (s *Server) putCredentials(c *gin.Context) {
	p, valid := platformParam(c)
	if !valid {
		return
	}
	var req credentialsRequest
	if !s.bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if err := s.Credentials.Set(ctx, p, req.ClientID, req.ClientSecret); err != nil {
		s.handleError(c, err)
		return
	}
	if err := s.reload(ctx, p); err != nil {
		s.handleError(c, err)
		return
	}
	s.getCredentials(c)
}

func (s *Server) deleteCredentials(c *gin.Context) {
	p, valid := platformParam(c)
	if !valid {
		return
	}

	ctx := c.Request.Context()
	if err := s.Credentials.Delete(ctx, p); err != nil {
		s.handleError(c, err)
		return
	}
	if err := s.reload(ctx, p); err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}

// reload rebuilds the platform client so it picks up new application
// credentials.
func (s *Server) reload(ctx context.Context, p models.Platform) error {
	if err := s.Clients.Reload(ctx, p); err != nil {
		return err
	}
	s.logger.Info(ctx, "platform client reloaded", "platform", string(p))
	return nil
}
