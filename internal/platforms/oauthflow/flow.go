package oauthflow

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CallbackPath   = "/callback"
	DefaultTimeout = 5 * time.Minute

	pageDone   = `<html><body><h2>Authorization complete. You can close this window.</h2><script>window.close()</script></body></html>`
	pageFailed = `<html><body><h2>Authorization failed. Check newsnexus for details. You can close this window.</h2></body></html>`
)

type Config struct {
	// Port of the loopback listener; 0 picks a free port.
	Port int
	// Timeout without a callback before the attempt fails.
	Timeout time.Duration
	// HostSuffixes the authorization view may navigate to.
	HostSuffixes []string
}

// Grant is the outcome of a successful authorization.
type Grant struct {
	Code        string
	RedirectURI string
}

type Flow struct {
	cfg        Config
	authorizer Authorizer
	log        logging.Logger
	newState   func() string
}

func New(cfg Config, a Authorizer, l logging.Logger) *Flow {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if l == nil {
		l = logging.Nop{}
	}
	return &Flow{cfg: cfg, authorizer: a, log: l, newState: uuid.NewString}
}

type callbackResult struct {
	code string
	err  error
}

// Authorize binds the callback listener, opens the view on the URL built by
// authURL and waits for the outcome.
func (f *Flow) Authorize(ctx context.Context, authURL func(redirectURI, state string) string) (*Grant, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(f.cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to start oauth callback listener: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	// the redirect names the address actually bound, not "localhost",
	// which may resolve to ::1 first
	origin := "http://127.0.0.1:" + strconv.Itoa(port)
	redirectURI := origin + CallbackPath
	state := f.newState()

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           f.callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.log.Warn(ctx, "oauth callback server stopped", "error", err)
		}
	}()
	defer f.shutdown(srv)

	f.log.Info(ctx, "oauth callback listener started", "addr", ln.Addr().String())

	policy := NavigationPolicy{HostSuffixes: f.cfg.HostSuffixes, CallbackOrigin: origin}
	view, err := f.authorizer.Open(ctx, authURL(redirectURI, state), policy)
	if err != nil {
		return nil, err
	}
	defer view.Close()

	timer := time.NewTimer(f.cfg.Timeout)
	defer timer.Stop()

	select {
	case r := <-results:
		if r.err != nil {
			return nil, r.err
		}
		return &Grant{Code: r.code, RedirectURI: redirectURI}, nil
	case <-view.Done():
		return nil, common.ErrAuthorizationCancelled
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, common.ErrOAuthTimeout
	}
}

// callbackHandler answers exactly one callback request; later requests get
// 410 Gone.
func (f *Flow) callbackHandler(state string, results chan<- callbackResult) http.Handler {
	var once sync.Once

	r := gin.New()
	r.GET(CallbackPath, func(c *gin.Context) {
		handled := false
		once.Do(func() {
			handled = true
			res := evaluate(c, state)
			page := pageDone
			if res.err != nil {
				page = pageFailed
			}
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
			results <- res
		})
		if !handled {
			c.Status(http.StatusGone)
		}
	})
	return r
}

func evaluate(c *gin.Context, state string) callbackResult {
	if e := c.Query("error"); e != "" {
		msg := e
		if d := c.Query("error_description"); d != "" {
			msg += ": " + d
		}
		return callbackResult{err: fmt.Errorf("%w: %s", common.ErrOAuthDenied, msg)}
	}
	if c.Query("state") != state {
		return callbackResult{err: common.ErrStateMismatch}
	}
	code := c.Query("code")
	if code == "" {
		return callbackResult{err: common.ErrNoAuthorizationCode}
	}
	return callbackResult{code: code}
}

func (f *Flow) shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
	}
}
