package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/models"
)

const snippetLen = 48

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= snippetLen {
		return s
	}
	return string(r[:snippetLen-1]) + "…"
}

func platformArg(args []string, i int, cmd string) (models.Platform, error) {
	if len(args) <= i {
		return "", usage("%s", cmd)
	}
	return models.ParsePlatform(strings.ToLower(args[i]))
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// parseWhen accepts RFC3339 or a local "2006-01-02 15:04".
func parseWhen(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse time %q", s)
	}
	return t, nil
}

func (a *App) Posts(ctx context.Context, args []string) error {
	status := ""
	if len(args) > 0 {
		status = args[0]
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	list, err := a.api.ListPosts(ctx, status)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.printf("No posts.\n")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLATFORM\tSTATUS\tWHEN\tCONTENT")
	for _, p := range list {
		when := fmtTime(p.ScheduledAt)
		if p.PublishedAt != nil {
			when = fmtTime(p.PublishedAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Platform, p.Status, when, snippet(p.Content))
	}
	return w.Flush()
}

func (a *App) Create(ctx context.Context, args []string) error {
	p, err := platformArg(args, 0, "create <platform>")
	if err != nil {
		return err
	}

	content, err := GetMultiline(a.reader, "Post text", a.out)
	if err != nil {
		return err
	}
	hashtags, err := GetSimpleText(a.reader, "Hashtags (optional)", a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	post, err := a.api.CreatePost(ctx, p, content, hashtags)
	if err != nil {
		return err
	}
	a.printf("Draft %s created for %s.\n", post.ID, p.DisplayName())
	return nil
}

func (a *App) Generate(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("generate <article-id> <platform>")
	}
	p, err := platformArg(args, 1, "generate <article-id> <platform>")
	if err != nil {
		return err
	}

	// generation can take a while
	ctx, cancel := context.WithTimeout(ctx, a.config.ConnectTimeout)
	defer cancel()

	post, err := a.api.GeneratePost(ctx, args[0], p)
	if err != nil {
		return err
	}
	a.printf("Draft %s generated:\n\n%s\n", post.ID, post.FullContent())
	return nil
}

func (a *App) Publish(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("publish <id>")
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	post, err := a.api.Publish(ctx, args[0])
	if err != nil {
		return err
	}
	a.reportPublish(post)
	return nil
}

func (a *App) reportPublish(p *models.Post) {
	switch {
	case p.Status == models.PostStatusPublished && p.ExternalID != nil:
		a.printf("Published to %s (%s).\n", p.Platform.DisplayName(), *p.ExternalID)
	case p.Error != nil:
		a.printf("Publish failed: %s\n", *p.Error)
	default:
		a.printf("Post is %s.\n", p.Status)
	}
}

func (a *App) Schedule(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage(`schedule <id> <RFC3339 | "2006-01-02 15:04">`)
	}
	at, err := parseWhen(strings.Join(args[1:], " "), time.Local)
	if err != nil {
		return err
	}
	if at.Before(a.now()) {
		a.printf("Time is in the past; the post goes out on the next scheduler tick.\n")
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	post, err := a.api.Schedule(ctx, args[0], at)
	if err != nil {
		return err
	}
	a.printf("Post %s scheduled for %s.\n", post.ID, fmtTime(post.ScheduledAt))
	return nil
}

func (a *App) Unschedule(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("unschedule <id>")
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	post, err := a.api.Unschedule(ctx, args[0])
	if err != nil {
		return err
	}
	a.printf("Post %s is a %s again.\n", post.ID, post.Status)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("delete <id>")
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	if err := a.api.DeletePost(ctx, args[0]); err != nil {
		return err
	}
	a.printf("Deleted.\n")
	return nil
}

func (a *App) Comments(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("comments <id>")
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	list, err := a.api.Comments(ctx, args[0])
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.printf("No comments.\n")
		return nil
	}
	for _, c := range list {
		a.printf("[%s] %s: %s\n", c.ID, c.AuthorName, c.Content)
	}
	return nil
}

func (a *App) Reply(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("reply <platform> <comment-id>")
	}
	p, err := platformArg(args, 0, "reply <platform> <comment-id>")
	if err != nil {
		return err
	}
	text, err := GetSimpleText(a.reader, "Reply", a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	res, err := a.api.Reply(ctx, p, args[1], text)
	if err != nil {
		return err
	}
	a.printf("Reply posted (%s).\n", res.ExternalID)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (a *App) Accounts(ctx context.Context, _ []string) error {
	ctx, cancel := a.call(ctx)
	defer cancel()

	list, err := a.api.Platforms(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tCONFIGURED\tCONNECTED\tMAX LENGTH")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.Name, yesNo(p.Configured), yesNo(p.Connected), p.Capabilities.MaxLength)
	}
	return w.Flush()
}

func (a *App) Connect(ctx context.Context, args []string) error {
	p, err := platformArg(args, 0, "connect <platform>")
	if err != nil {
		return err
	}

	a.printf("Complete the %s authorization in your browser...\n", p.DisplayName())

	ctx, cancel := context.WithTimeout(ctx, a.config.ConnectTimeout)
	defer cancel()

	acc, err := a.api.Connect(ctx, p)
	if err != nil {
		return err
	}
	a.printf("Connected %s as %s.\n", p.DisplayName(), acc.Name)
	return nil
}

func (a *App) Disconnect(ctx context.Context, args []string) error {
	p, err := platformArg(args, 0, "disconnect <platform>")
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	if err := a.api.Disconnect(ctx, p); err != nil {
		return err
	}
	a.printf("Disconnected %s.\n", p.DisplayName())
	return nil
}

func (a *App) Credentials(ctx context.Context, args []string) error {
	p, err := platformArg(args, 0, "credentials <platform> [delete]")
	if err != nil {
		return err
	}

	if len(args) > 1 && args[1] == "delete" {
		ctx, cancel := a.call(ctx)
		defer cancel()
		if err := a.api.DeleteCredentials(ctx, p); err != nil {
			return err
		}
		a.printf("%s credentials removed.\n", p.DisplayName())
		return nil
	}

	id, err := GetSimpleText(a.reader, p.DisplayName()+" client id", a.out)
	if err != nil {
		return err
	}
	secret, err := GetSecret(p.DisplayName()+" client secret", a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	st, err := a.api.SetCredentials(ctx, p, id, secret)
	if err != nil {
		return err
	}
	a.printf("%s credentials saved (%s).\n", p.DisplayName(), st.Source)
	return nil
}
