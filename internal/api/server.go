package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/credentials"
	"github.com/dmitrijs2005/newsnexus/internal/logging"
	"github.com/dmitrijs2005/newsnexus/internal/metrics"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/platforms"
	"github.com/dmitrijs2005/newsnexus/internal/publisher"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PostService interface {
	Create(ctx context.Context, in publisher.NewPost) (*models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, status models.PostStatus) ([]models.Post, error)
	Edit(ctx context.Context, id string, content, hashtags *string) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	Publish(ctx context.Context, id string) (*models.Post, error)
	Schedule(ctx context.Context, id string, at time.Time) (*models.Post, error)
	Unschedule(ctx context.Context, id string) (*models.Post, error)
	GenerateDraft(ctx context.Context, articleID string, p models.Platform) (*models.Post, error)
	Comments(ctx context.Context, id string) ([]models.Comment, error)
	Reply(ctx context.Context, p models.Platform, commentID, text string) (models.PublishResult, error)
}

type Clients interface {
	platforms.Lookup
	Reload(ctx context.Context, p models.Platform) error
}

type AccountStore interface {
	List(ctx context.Context) ([]models.SocialAccount, error)
}

type CredentialStore interface {
	Status(ctx context.Context, p models.Platform) (credentials.Status, error)
	Set(ctx context.Context, p models.Platform, clientID, clientSecret string) error
	Delete(ctx context.Context, p models.Platform) error
}

type Config struct {
	Address        string
	AllowedOrigins []string
	// Token, when set, must be sent as "Authorization: Bearer <token>" on
	// every /api request.
	Token string
}

type Deps struct {
	Posts       PostService
	Clients     Clients
	Accounts    AccountStore
	Credentials CredentialStore
	Metrics     *metrics.Registry
	Gatherer    prometheus.Gatherer
	Logger      logging.Logger
}

type Server struct {
	config Config
	Deps
	logger logging.Logger
	router *gin.Engine
}

func NewServer(cfg Config, d Deps) *Server {
	l := d.Logger
	if l == nil {
		l = logging.Nop{}
	}
	s := &Server{config: cfg, Deps: d, logger: l.With("module", "api")}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if s.Metrics != nil {
		r.Use(metrics.GinMiddleware(s.Metrics))
	}
	r.Use(cors.New(s.corsConfig()))

	r.GET("/healthz", func(c *gin.Context) { ok(c, http.StatusOK, gin.H{"status": "ok"}) })
	if s.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api", s.tokenAuth())

	api.GET("/posts", s.listPosts)
	api.POST("/posts", s.createPost)
	api.POST("/posts/generate", s.generatePost)
	api.GET("/posts/:id", s.getPost)
	api.PATCH("/posts/:id", s.editPost)
	api.DELETE("/posts/:id", s.deletePost)
	api.POST("/posts/:id/publish", s.publishPost)
	api.POST("/posts/:id/schedule", s.schedulePost)
	api.POST("/posts/:id/unschedule", s.unschedulePost)
	api.GET("/posts/:id/comments", s.postComments)

	api.GET("/platforms", s.listPlatforms)
	api.POST("/platforms/:platform/comments/:commentId/reply", s.replyToComment)

	api.GET("/accounts", s.listAccounts)
	api.POST("/accounts/:platform/connect", s.connectAccount)
	api.DELETE("/accounts/:platform", s.disconnectAccount)

	api.GET("/credentials", s.listCredentials)
	api.GET("/credentials/:platform", s.getCredentials)
	api.PUT("/credentials/:platform", s.putCredentials)
	api.DELETE("/credentials/:platform", s.deleteCredentials)

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.config.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.config.AllowedOrigins
	}
	return cfg
}

// Run serves until ctx is cancelled and then shuts down gracefully.
// Connect requests block while the user authorizes in the browser, so no
// write timeout is set.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
