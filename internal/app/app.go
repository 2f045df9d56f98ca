// Package app wires the newsnexus daemon together: database, vault,
// platform clients, publisher, scheduler and the local HTTP API. It owns
// graceful shutdown on SIGINT/SIGTERM.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/api"
	"github.com/dmitrijs2005/newsnexus/internal/config"
	"github.com/dmitrijs2005/newsnexus/internal/credentials"
	"github.com/dmitrijs2005/newsnexus/internal/filex"
	"github.com/dmitrijs2005/newsnexus/internal/generator"
	"github.com/dmitrijs2005/newsnexus/internal/logging"
	"github.com/dmitrijs2005/newsnexus/internal/media"
	"github.com/dmitrijs2005/newsnexus/internal/metrics"
	"github.com/dmitrijs2005/newsnexus/internal/platforms"
	"github.com/dmitrijs2005/newsnexus/internal/publisher"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/repomanager"
	"github.com/dmitrijs2005/newsnexus/internal/scheduler"
	"github.com/dmitrijs2005/newsnexus/internal/vault"
	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	repos     repomanager.RepositoryManager
	registry  *platforms.Registry
	scheduler *scheduler.Scheduler
	server    *api.Server
}

// seams for tests
var logOutput io.Writer = os.Stdout

var (
	openRepos = func(ctx context.Context, driver, dsn string) (repomanager.RepositoryManager, error) {
		return repomanager.Open(ctx, driver, dsn)
	}
	newVault = func(service string) vault.Vault {
		return vault.NewKeyringVault(service)
	}
)

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(logOutput, c.SlogLevel())

	if err := config.LoadEnv(c.EnvFile); err != nil {
		return nil, fmt.Errorf("env file %s: %w", c.EnvFile, err)
	}

	dsn, err := databaseDSN(c)
	if err != nil {
		return nil, err
	}

	repos, err := openRepos(ctx, c.DatabaseDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	v := newVault(c.KeyringService)
	if !v.IsAvailable() {
		logger.Warn(ctx, "system keychain is not available; credentials and tokens cannot be stored or read")
	}

	creds := credentials.NewService(repos.Settings(), v)
	httpClient := &http.Client{Timeout: 30 * time.Second}

	registry, err := platforms.NewRegistry(ctx, platforms.DefaultFactories(platforms.Deps{
		Credentials:  creds,
		Accounts:     repos.Accounts(),
		Vault:        v,
		HTTPClient:   httpClient,
		Logger:       logger,
		OAuthTimeout: c.OAuthTimeout,
	}))
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	promRegistry := prometheus.NewRegistry()
	m := metrics.NewRegistry(promRegistry)

	var gen generator.Generator
	if cmd, args := c.GeneratorArgs(); cmd != "" {
		gen = generator.NewCommandGenerator(cmd, args, logger)
	}

	svc := publisher.NewService(publisher.Deps{
		Posts:    repos.Posts(),
		Articles: repos.Articles(),
		Clients:  registry,
		Stager: media.New(media.S3Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			User:         c.S3User,
			Password:     c.S3Password,
		}, httpClient, logger),
		Generator: gen,
		Metrics:   m,
		Logger:    logger,
	})

	server := api.NewServer(api.Config{
		Address:        c.ListenAddr,
		AllowedOrigins: c.AllowedOrigins,
		Token:          c.APIToken,
	}, api.Deps{
		Posts:       svc,
		Clients:     registry,
		Accounts:    repos.Accounts(),
		Credentials: creds,
		Metrics:     m,
		Gatherer:    promRegistry,
		Logger:      logger,
	})

	return &App{
		config:    c,
		logger:    logger,
		repos:     repos,
		registry:  registry,
		scheduler: scheduler.New(svc, c.SchedulerInterval, logger),
		server:    server,
	}, nil
}

// databaseDSN places a relative SQLite file in the data directory.
func databaseDSN(c *config.Config) (string, error) {
	if c.DatabaseDriver != "sqlite" {
		return c.DatabaseDSN, nil
	}

	var (
		dir string
		err error
	)
	if c.DataDir == "" {
		dir, err = filex.DataDir("newsnexus")
	} else {
		dir, err = filex.EnsureDir(c.DataDir)
	}
	if err != nil {
		return "", fmt.Errorf("data dir: %w", err)
	}
	return filex.InDir(c.DatabaseDSN, dir), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a signal arrives or the API server
// fails. In-flight scheduled publishes finish before the database closes.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "platforms", app.registry.Platforms())

	app.initSignalHandler(cancelFunc)

	if err := app.scheduler.Start(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.scheduler.Stop()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")

	return app.repos.Close()
}
