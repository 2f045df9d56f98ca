package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App implements
// it; tests use a stub. args are the words after the command name.
type execIface interface {
	Posts(ctx context.Context, args []string) error
	Create(ctx context.Context, args []string) error
	Generate(ctx context.Context, args []string) error
	Publish(ctx context.Context, args []string) error
	Schedule(ctx context.Context, args []string) error
	Unschedule(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Comments(ctx context.Context, args []string) error
	Reply(ctx context.Context, args []string) error
	Accounts(ctx context.Context, args []string) error
	Connect(ctx context.Context, args []string) error
	Disconnect(ctx context.Context, args []string) error
	Credentials(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  posts [status]                    list posts, optionally by status
  create <platform>                 write a draft
  generate <article-id> <platform>  draft a post with the content generator
  publish <id>                      publish now
  schedule <id> <time>              schedule (RFC3339 or "2006-01-02 15:04")
  unschedule <id>                   back to draft
  delete <id>                       delete a post
  comments <id>                     show comments of a published post
  reply <platform> <comment-id>     reply to a comment
  accounts                          platform status and connected accounts
  connect <platform>                authorize an account in the browser
  disconnect <platform>             forget the connected account
  credentials <platform> [delete]   set or remove the platform app id/secret
  exit | quit                       leave`

// errUsage marks a command called with wrong arguments; the REPL prints the
// message without the "Error:" prefix.
var errUsage = errors.New("usage")

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

// runREPL reads commands line by line from reader and dispatches them to a
// until EOF, "exit" or "quit". Command errors are printed and the loop
// continues.
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader) {
	for {
		printlnFn("nexus> ")
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "posts", "l", "list":
			cmdErr = a.Posts(ctx, args)
		case "create":
			cmdErr = a.Create(ctx, args)
		case "generate":
			cmdErr = a.Generate(ctx, args)
		case "publish":
			cmdErr = a.Publish(ctx, args)
		case "schedule":
			cmdErr = a.Schedule(ctx, args)
		case "unschedule":
			cmdErr = a.Unschedule(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx, args)
		case "comments":
			cmdErr = a.Comments(ctx, args)
		case "reply":
			cmdErr = a.Reply(ctx, args)
		case "accounts":
			cmdErr = a.Accounts(ctx, args)
		case "connect":
			cmdErr = a.Connect(ctx, args)
		case "disconnect":
			cmdErr = a.Disconnect(ctx, args)
		case "credentials":
			cmdErr = a.Credentials(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		switch {
		case cmdErr == nil:
		case errors.Is(cmdErr, errUsage):
			printlnFn(strings.Replace(cmdErr.Error(), "usage: ", "Usage: ", 1))
		default:
			printlnFn("Error:", cmdErr)
		}

		if err != nil {
			return
		}
	}
}
