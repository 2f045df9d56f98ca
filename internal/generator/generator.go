// Package generator turns articles into draft posts by running an external
// LLM command line tool.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/logging"
	"github.com/dmitrijs2005/newsnexus/internal/models"
)

const DefaultTimeout = 2 * time.Minute

// Request describes what to write.
type Request struct {
	Article   models.Article
	Platform  models.Platform
	MaxLength int
}

type Generator interface {
	Generate(ctx context.Context, req Request) (*models.Draft, error)
}

// CommandGenerator pipes the prompt into Command's stdin and reads the post
// from stdout.
type CommandGenerator struct {
	Command string
	Args    []string
	Timeout time.Duration
	Env     []string
	log     logging.Logger
}

func NewCommandGenerator(command string, args []string, l logging.Logger) *CommandGenerator {
	if l == nil {
		l = logging.Nop{}
	}
	return &CommandGenerator{
		Command: command,
		Args:    args,
		Timeout: DefaultTimeout,
		log:     l.With("module", "generator"),
	}
}

func (g *CommandGenerator) Generate(ctx context.Context, req Request) (*models.Draft, error) {
	if strings.TrimSpace(g.Command) == "" {
		return nil, fmt.Errorf("%w: no generator command set", common.ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.Command, g.Args...)
	cmd.Stdin = strings.NewReader(Prompt(req))
	if len(g.Env) > 0 {
		cmd.Env = g.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("generator timed out after %s", g.Timeout)
		}
		return nil, fmt.Errorf("generator failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	d, err := Parse(stdout.String())
	if err != nil {
		return nil, err
	}
	g.log.Info(ctx, "draft generated",
		"article_id", req.Article.ID, "platform", string(req.Platform),
		"length", len([]rune(d.Content)), "took", time.Since(start))
	return d, nil
}

// Prompt renders the instruction sent to the model.
func Prompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s post based on this article.\n", req.Platform.DisplayName())
	fmt.Fprintf(&b, "Title: %s\n", req.Article.Title)
	if req.Article.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", req.Article.Summary)
	}
	if req.Article.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", req.Article.URL)
	}
	if req.MaxLength > 0 {
		fmt.Fprintf(&b, "Keep post and hashtags under %d characters.\n", req.MaxLength)
	}
	b.WriteString("Never invent facts that are not in the article.\n")
	b.WriteString(`Respond with JSON only: {"content": "...", "hashtags": ["#tag"]}` + "\n")
	return b.String()
}

var hashtagLine = regexp.MustCompile(`^#\w`)

type jsonDraft struct {
	Content     string          `json:"content"`
	PostContent string          `json:"post_content"`
	Hashtags    json.RawMessage `json:"hashtags"`
}

// Parse reads JSON {content, hashtags} output; hashtags may be a string or
// a list. Any other output is treated as text whose trailing lines starting
// with '#' are the hashtags.
func Parse(out string) (*models.Draft, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, errors.New("generator returned no output")
	}

	if raw := stripFence(out); strings.HasPrefix(raw, "{") {
		var j jsonDraft
		if err := json.Unmarshal([]byte(raw), &j); err == nil {
			content := j.Content
			if content == "" {
				content = j.PostContent
			}
			if content != "" {
				return &models.Draft{Content: strings.TrimSpace(content), Hashtags: hashtags(j.Hashtags)}, nil
			}
		}
	}

	lines := strings.Split(out, "\n")
	i := len(lines)
	for i > 0 && hashtagLine.MatchString(strings.TrimSpace(lines[i-1])) {
		i--
	}
	content := strings.TrimSpace(strings.Join(lines[:i], "\n"))
	tags := make([]string, 0, len(lines)-i)
	for _, l := range lines[i:] {
		tags = append(tags, strings.TrimSpace(l))
	}
	if content == "" {
		return &models.Draft{Content: out}, nil
	}
	return &models.Draft{Content: content, Hashtags: strings.Join(tags, " ")}, nil
}

func hashtags(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, " ")
	}
	return ""
}

// stripFence removes a surrounding ``` block.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
