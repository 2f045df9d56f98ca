package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string       API listen address (e.g. "127.0.0.1:8787")
//	-driver string  database driver, "sqlite" or "pgx"
//	-d string       database DSN
//	-data string    data directory
//	-i int          scheduler interval, seconds
//	-o int          OAuth callback timeout, seconds
//	-k string       keyring service name
//	-origins string comma separated CORS origins
//	-token string   API bearer token
//	-g string       generator command line
//	-u string       S3 user
//	-p string       S3 password
//	-b string       S3 bucket
//	-r string       S3 region
//	-e string       S3 base endpoint
//	-env string     .env file path
//	-l string       log level
func parseFlags(config *Config) {
	args := flagx.Pick(os.Args[1:],
		"a", "driver", "d", "data", "i", "o", "k", "origins", "token",
		"g", "u", "p", "b", "r", "e", "env", "l",
	)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "API listen address")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver (sqlite or pgx)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DataDir, "data", config.DataDir, "data directory")

	interval := fs.Int("i", int(config.SchedulerInterval.Seconds()), "scheduler interval (in seconds)")
	oauthTimeout := fs.Int("o", int(config.OAuthTimeout.Seconds()), "OAuth callback timeout (in seconds)")

	fs.StringVar(&config.KeyringService, "k", config.KeyringService, "keyring service name")
	origins := fs.String("origins", strings.Join(config.AllowedOrigins, ","), "comma separated CORS origins")
	fs.StringVar(&config.APIToken, "token", config.APIToken, "API bearer token")
	fs.StringVar(&config.GeneratorCommand, "g", config.GeneratorCommand, "content generator command")

	fs.StringVar(&config.S3User, "u", config.S3User, "S3 user")
	fs.StringVar(&config.S3Password, "p", config.S3Password, "S3 password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.EnvFile, "env", config.EnvFile, ".env file")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SchedulerInterval = time.Duration(*interval) * time.Second
	config.OAuthTimeout = time.Duration(*oauthTimeout) * time.Second
	config.AllowedOrigins = splitOrigins(*origins)
}
