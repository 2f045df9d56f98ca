package filex

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_RelativeToCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDir("data")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	want, err := os.Stat(filepath.Join(tmp, "data"))
	require.NoError(t, err)
	assert.True(t, os.SameFile(fi, want))

	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o700), fi.Mode().Perm())
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	first, err := EnsureDir(dir)
	require.NoError(t, err)
	second, err := EnsureDir(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureDir_FailsUnderAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := EnsureDir(filepath.Join(file, "sub"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mkdir")
}

func TestDataDir(t *testing.T) {
	base := t.TempDir()
	orig := userConfigDir
	t.Cleanup(func() { userConfigDir = orig })

	userConfigDir = func() (string, error) { return base, nil }
	got, err := DataDir("newsnexus")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "newsnexus"), got)
	assert.DirExists(t, got)

	userConfigDir = func() (string, error) { return "", errors.New("$HOME is not defined") }
	_, err = DataDir("newsnexus")
	assert.ErrorContains(t, err, "user config dir")
}

func TestInDir(t *testing.T) {
	dir := filepath.Join(string(filepath.Separator)+"data", "nn")
	abs := filepath.Join(string(filepath.Separator)+"srv", "nn.db")

	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"file uri with query", "file:newsnexus.db?_pragma=foreign_keys(1)", "file:" + filepath.Join(dir, "newsnexus.db") + "?_pragma=foreign_keys(1)"},
		{"bare path", "newsnexus.db", filepath.Join(dir, "newsnexus.db")},
		{"memory mode", "file:x?mode=memory&cache=shared", "file:x?mode=memory&cache=shared"},
		{"memory name", ":memory:", ":memory:"},
		{"absolute", "file:" + abs, "file:" + abs},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InDir(tt.dsn, dir))
		})
	}
}
