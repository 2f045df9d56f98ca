// Package config handles configuration for the newsnexus daemon,
// including defaults, JSON overlay, command-line flags and an optional
// .env file for platform credentials.
package config

import (
	"log/slog"
	"strings"
	"time"
)

// Config holds runtime settings for the daemon.
//
// Fields:
//   - ListenAddr: bind address of the local HTTP API.
//   - DatabaseDriver / DatabaseDSN: "sqlite" (default) or "pgx" and its DSN.
//   - DataDir: where a relative SQLite file lives; empty means the per-user
//     config directory.
//   - SchedulerInterval: how often due posts are looked up.
//   - OAuthTimeout: how long a connect flow waits for the browser callback.
//   - KeyringService: OS keyring service holding the vault master key.
//   - AllowedOrigins: CORS origins of the local API; empty allows any.
//   - APIToken: optional bearer token required on /api requests.
//   - GeneratorCommand: external LLM CLI used to draft posts; empty disables it.
//   - S3*: media staging bucket for Instagram images; empty bucket disables it.
//   - EnvFile: .env file loaded before credentials fall back to env vars.
//   - LogLevel: slog level name.
type Config struct {
	ListenAddr        string
	DatabaseDriver    string
	DatabaseDSN       string
	DataDir           string
	SchedulerInterval time.Duration
	OAuthTimeout      time.Duration
	KeyringService    string
	AllowedOrigins    []string
	APIToken          string
	GeneratorCommand  string
	S3User            string
	S3Password        string
	S3Bucket          string
	S3Region          string
	S3BaseEndpoint    string
	EnvFile           string
	LogLevel          string
}

// LoadDefaults populates Config with local desktop defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = "127.0.0.1:8787"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:newsnexus.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	c.SchedulerInterval = 60 * time.Second
	c.OAuthTimeout = 5 * time.Minute
	c.KeyringService = "newsnexus"
	c.S3Region = "us-east-1"
	c.EnvFile = ".env"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// GeneratorArgs splits GeneratorCommand into the program and its arguments.
func (c *Config) GeneratorArgs() (string, []string) {
	fields := strings.Fields(c.GeneratorCommand)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
