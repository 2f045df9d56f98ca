package cli

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/flagx"
)

// Config holds runtime settings for nexusctl.
//
// Fields:
//   - APIAddr: base URL of the daemon's local API.
//   - Token: bearer token, when the daemon requires one.
//   - Timeout: per-request deadline; connect flows get ConnectTimeout.
type Config struct {
	APIAddr        string
	Token          string
	Timeout        time.Duration
	ConnectTimeout time.Duration
}

// TokenEnv is read when no -t flag is given.
const TokenEnv = "NEWSNEXUS_API_TOKEN"

func (c *Config) LoadDefaults() {
	c.APIAddr = "http://127.0.0.1:8787"
	c.Token = os.Getenv(TokenEnv)
	c.Timeout = 30 * time.Second
	c.ConnectTimeout = 6 * time.Minute
}

// LoadConfig applies defaults and then command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)
	return cfg
}

// parseFlags populates Config from:
//
//	-a string   daemon API base URL
//	-t string   API bearer token
//	-w int      request timeout, seconds
func parseFlags(cfg *Config) {
	args := flagx.Pick(os.Args[1:], "a", "t", "w")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIAddr, "a", cfg.APIAddr, "daemon API base URL")
	fs.StringVar(&cfg.Token, "t", cfg.Token, "API bearer token")
	timeout := fs.Int("w", int(cfg.Timeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.Timeout = time.Duration(*timeout) * time.Second
}
