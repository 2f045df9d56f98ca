package app

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/config"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/accounts"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/articles"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/posts"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/repomanager"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/settings"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	keyring.MockInit()

	orig := logOutput
	logOutput = io.Discard
	t.Cleanup(func() { logOutput = orig })

	c := &config.Config{}
	c.LoadDefaults()
	c.ListenAddr = "127.0.0.1:0"
	c.DatabaseDSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	c.EnvFile = ""
	c.DataDir = t.TempDir()
	return c
}

func TestApp_RunStopsOnContextCancel(t *testing.T) {
	c := testConfig(t)

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
}

func TestApp_RunStopsWhenListenFails(t *testing.T) {
	c := testConfig(t)
	c.ListenAddr = "127.0.0.1:99999"

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after listen error")
	}
}

func TestNewApp_UnknownDriver(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDriver = "mysql"

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
}

type failingRepos struct {
	closed bool
}

func (f *failingRepos) RunMigrations(context.Context) error { return errors.New("disk full") }
func (f *failingRepos) Posts() posts.Repository             { return nil }
func (f *failingRepos) Accounts() accounts.Repository       { return nil }
func (f *failingRepos) Settings() settings.Repository       { return nil }
func (f *failingRepos) Articles() articles.Repository       { return nil }

func (f *failingRepos) Close() error {
	f.closed = true
	return nil
}

func TestNewApp_MigrationFailureClosesDB(t *testing.T) {
	c := testConfig(t)

	repos := &failingRepos{}
	orig := openRepos
	openRepos = func(context.Context, string, string) (repomanager.RepositoryManager, error) {
		return repos, nil
	}
	t.Cleanup(func() { openRepos = orig })

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, repos.closed)
}

func TestNewApp_MissingEnvFileIsFine(t *testing.T) {
	c := testConfig(t)
	c.EnvFile = t.TempDir() + "/absent.env"

	_, err := NewApp(context.Background(), c)
	require.NoError(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	dir := t.TempDir()

	c := &config.Config{DatabaseDriver: "sqlite", DatabaseDSN: "file:nn.db?_pragma=foreign_keys(1)", DataDir: dir}
	dsn, err := databaseDSN(c)
	require.NoError(t, err)
	assert.Equal(t, "file:"+filepath.Join(dir, "nn.db")+"?_pragma=foreign_keys(1)", dsn)

	c = &config.Config{DatabaseDriver: "pgx", DatabaseDSN: "postgres://db"}
	dsn, err = databaseDSN(c)
	require.NoError(t, err)
	assert.Equal(t, "postgres://db", dsn)
}

func TestNewApp_FileDatabaseInDataDir(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDSN = "file:newsnexus.db?_pragma=foreign_keys(1)"

	a, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.repos.Close() })

	assert.FileExists(t, filepath.Join(c.DataDir, "newsnexus.db"))
}
