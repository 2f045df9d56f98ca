package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

type App struct {
	config *Config
	api    *Client
	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time
}

func NewApp(c *Config) *App {
	return &App{
		config: c,
		api:    NewClient(c.APIAddr, c.Token, nil),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		now:    time.Now,
	}
}

// Run greets the user and starts the REPL on stdin.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintf(a.out, "newsnexus CLI, daemon at %s (type 'help' for commands)\n", a.config.APIAddr)
	runREPL(ctx, a, a.reader)
}

func (a *App) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.Timeout)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
