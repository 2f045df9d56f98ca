// Package filex resolves where the daemon keeps its files.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// seam for tests
var userConfigDir = os.UserConfigDir

// EnsureDir creates dir with owner-only permissions if needed and returns
// its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// DataDir returns the per-user application directory, e.g.
// ~/.config/newsnexus on Linux, creating it on first use.
func DataDir(app string) (string, error) {
	base, err := userConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return EnsureDir(filepath.Join(base, app))
}

// InDir places a relative SQLite file DSN under dir. In-memory and
// absolute DSNs are returned unchanged.
func InDir(dsn, dir string) string {
	prefix := ""
	rest := dsn
	if strings.HasPrefix(rest, "file:") {
		prefix, rest = "file:", strings.TrimPrefix(rest, "file:")
	}

	path, query, hasQuery := strings.Cut(rest, "?")
	if path == "" || path == ":memory:" || strings.Contains(query, "mode=memory") || filepath.IsAbs(path) {
		return dsn
	}

	out := prefix + filepath.Join(dir, path)
	if hasQuery {
		out += "?" + query
	}
	return out
}
